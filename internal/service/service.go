package service

import (
	"context"
	"net/url"

	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/pkg/edge"
)

// EdgeClient is the voter-facing half of edge.Client.
type EdgeClient interface {
	Get(ctx context.Context, path string, params url.Values) (*edge.Response, error)
	Post(ctx context.Context, path string, body any) (*edge.Response, error)
}

// AdminEdgeClient is the bearer-authenticated half of edge.Client.
type AdminEdgeClient interface {
	AdminGet(ctx context.Context, path string, params url.Values) (*edge.Response, error)
	AdminPost(ctx context.Context, path string, body any) (*edge.Response, error)
}

// SessionStore keeps one VoterSession per chat user. Load returns the
// initial session for users it has never seen.
type SessionStore interface {
	Load(ctx context.Context, userID string) (models.VoterSession, error)
	Save(ctx context.Context, userID string, session models.VoterSession) error
	Delete(ctx context.Context, userID string) error
}
