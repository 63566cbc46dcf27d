package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/pkg/edge"
	"github.com/jaam8/council_bot/pkg/logger"
	"go.uber.org/zap"
)

const maxResumeCodeLen = 12

// BallotService drives one voter from validation through draft to a final
// ballot. Every failure leaves the stored session as it was.
type BallotService struct {
	c        EdgeClient
	resolver *RegionResolver
	store    SessionStore
	l        *zap.Logger
}

func NewBallotService(c EdgeClient, resolver *RegionResolver, store SessionStore, l *zap.Logger) *BallotService {
	return &BallotService{
		c:        c,
		resolver: resolver,
		store:    store,
		l:        l,
	}
}

func (s *BallotService) Session(ctx context.Context, userID string) (models.VoterSession, error) {
	session, err := s.store.Load(ctx, userID)
	if err != nil {
		s.l.Error("failed to load session", zap.String("user_id", userID), zap.Error(err))
		return models.NewVoterSession(), fmt.Errorf("service: failed to load session: %w", err)
	}
	return session, nil
}

func (s *BallotService) Validate(ctx context.Context, userID, acp string) (models.VoterSession, error) {
	acp = strings.TrimSpace(acp)
	if acp == "" {
		return models.NewVoterSession(), models.ErrEmptyIdentifier
	}
	res, err := s.resolver.ValidateAcrossRegions(ctx, acp, models.AllRegions())
	if err != nil {
		s.logRefusal("validate", userID, acp, err)
		return models.NewVoterSession(), err
	}

	session := models.NewVoterSession()
	session.Authenticate(res.Grant.Token, res.Region, res.Grant.Draft, res.Grant.ResumeCode)
	if err := s.store.Save(ctx, userID, session); err != nil {
		s.l.Error("failed to save session", zap.String("user_id", userID), zap.Error(err))
		return models.NewVoterSession(), fmt.Errorf("service: failed to save session: %w", err)
	}
	s.l.Info("voter validated",
		zap.String("user_id", userID),
		zap.String("region", string(session.Region)),
		zap.Int("draft_size", len(session.Draft)))
	return session, nil
}

func (s *BallotService) Resume(ctx context.Context, userID, acp, resumeCode string) (models.VoterSession, error) {
	acp = strings.TrimSpace(acp)
	resumeCode = strings.TrimSpace(resumeCode)
	if acp == "" {
		return models.NewVoterSession(), models.ErrEmptyIdentifier
	}
	if resumeCode == "" || utf8.RuneCountInString(resumeCode) > maxResumeCodeLen {
		return models.NewVoterSession(), models.ErrInvalidResumeCode
	}
	res, err := s.resolver.ResumeAcrossRegions(ctx, acp, resumeCode, models.AllRegions())
	if err != nil {
		s.logRefusal("resume", userID, acp, err)
		return models.NewVoterSession(), err
	}

	session := models.NewVoterSession()
	session.Authenticate(res.Grant.Token, res.Region, res.Grant.Draft, resumeCode)
	if err := s.store.Save(ctx, userID, session); err != nil {
		s.l.Error("failed to save session", zap.String("user_id", userID), zap.Error(err))
		return models.NewVoterSession(), fmt.Errorf("service: failed to save session: %w", err)
	}
	s.l.Info("voter session resumed",
		zap.String("user_id", userID),
		zap.String("region", string(session.Region)),
		zap.Int("draft_size", len(session.Draft)))
	return session, nil
}

// ToggleCandidate flips one selection locally. Going over the limit is
// allowed here and only blocks Submit.
func (s *BallotService) ToggleCandidate(ctx context.Context, userID string, id models.CandidateID) (models.VoterSession, bool, error) {
	if id.IsZero() {
		return models.NewVoterSession(), false, models.ErrEmptyCandidateID
	}
	session, err := s.authenticated(ctx, userID)
	if err != nil {
		return session, false, err
	}
	selected := session.Toggle(id)
	if err := s.store.Save(ctx, userID, session); err != nil {
		s.l.Error("failed to save session", zap.String("user_id", userID), zap.Error(err))
		return session, false, fmt.Errorf("service: failed to save session: %w", err)
	}
	s.l.Debug("candidate toggled",
		zap.String("user_id", userID),
		zap.String("candidate_id", id.String()),
		zap.Bool("selected", selected),
		zap.Int("draft_size", len(session.Draft)))
	return session, selected, nil
}

func (s *BallotService) SaveDraft(ctx context.Context, userID string) (models.VoterSession, error) {
	session, err := s.authenticated(ctx, userID)
	if err != nil {
		return session, err
	}
	ids := session.DraftIDs()
	if err := s.postBallot(ctx, "save_draft", edge.PathSaveDraft, session.Token, ids); err != nil {
		return session, err
	}

	// The service keeps exactly what was sent.
	session.Draft = ids
	if err := s.store.Save(ctx, userID, session); err != nil {
		s.l.Error("failed to save session", zap.String("user_id", userID), zap.Error(err))
		return session, fmt.Errorf("service: failed to save session: %w", err)
	}
	s.l.Info("draft saved",
		zap.String("user_id", userID),
		zap.String("region", string(session.Region)),
		zap.Int("draft_size", len(ids)))
	return session, nil
}

// Submit casts the ballot. Success ends the session for good; a new
// validation is needed to act again.
func (s *BallotService) Submit(ctx context.Context, userID string) (models.VoterSession, error) {
	session, err := s.authenticated(ctx, userID)
	if err != nil {
		return session, err
	}
	if !session.ReadyToSubmit() {
		s.l.Debug("submit refused locally",
			zap.String("user_id", userID),
			zap.Int("draft_size", len(session.Draft)))
		return session, models.ErrSelectionCount
	}
	if err := s.postBallot(ctx, "submit_vote", edge.PathSubmitVote, session.Token, session.DraftIDs()); err != nil {
		return session, err
	}

	region := session.Region
	session.Reset()
	if err := s.store.Delete(ctx, userID); err != nil {
		// The ballot is already final; a stale token only earns already_voted.
		s.l.Error("failed to clear session after submit", zap.String("user_id", userID), zap.Error(err))
	}
	s.l.Info("ballot submitted",
		zap.String("user_id", userID),
		zap.String("region", string(region)))
	return session, nil
}

func (s *BallotService) authenticated(ctx context.Context, userID string) (models.VoterSession, error) {
	session, err := s.Session(ctx, userID)
	if err != nil {
		return session, err
	}
	if !session.Authenticated() {
		return session, models.ErrNotAuthenticated
	}
	return session, nil
}

func (s *BallotService) postBallot(ctx context.Context, op, path, token string, ids []models.CandidateID) error {
	resp, err := s.c.Post(ctx, path, models.BallotRequest{Token: token, CandidateIDs: ids})
	if err != nil {
		s.l.Error("edge call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("service: %s: %w: %v", op, models.ErrEdgeUnavailable, err)
	}
	if !resp.Accepted() {
		reason := resp.Message()
		s.l.Warn("edge refused ballot call",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode),
			zap.String("reason", reason))
		return &models.ReasonError{Op: op, Reason: reason}
	}
	return nil
}

func (s *BallotService) logRefusal(op, userID, acp string, err error) {
	var reasonErr *models.ReasonError
	if errors.As(err, &reasonErr) {
		s.l.Warn("voter refused",
			zap.String("op", op),
			zap.String("user_id", userID),
			logger.Masked("acp", acp),
			zap.String("reason", reasonErr.Reason))
		return
	}
	s.l.Error("voter lookup failed",
		zap.String("op", op),
		zap.String("user_id", userID),
		logger.Masked("acp", acp),
		zap.Error(err))
}
