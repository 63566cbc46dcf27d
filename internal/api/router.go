package api

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mattermost/mattermost-server/v6/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	BallotCommand  = "/ballot"
	CouncilCommand = "/council"
)

var commandsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ballot_bot_commands_total",
		Help: "Bot commands handled, by command and subcommand",
	},
	[]string{"command", "subcommand"},
)

// Messenger is the part of model.Client4 the bot uses.
type Messenger interface {
	CreatePost(post *model.Post) (*model.Post, *model.Response, error)
	CreatePostEphemeral(post *model.PostEphemeral) (*model.Post, *model.Response, error)
	GetChannel(channelID, etag string) (*model.Channel, *model.Response, error)
	GetFileInfo(fileID string) (*model.FileInfo, *model.Response, error)
	GetFile(fileID string) ([]byte, *model.Response, error)
	UploadFile(data []byte, channelID string, filename string) (*model.FileUploadResponse, *model.Response, error)
}

// Reply is what a command answers with. Message goes out as an ephemeral
// post; attached files need a regular post in the same direct channel.
type Reply struct {
	Message string
	FileIDs []string
}

type Router struct {
	ballot  *BallotHandler
	admin   *AdminHandler
	m       Messenger
	l       *zap.Logger
	limiter *userLimiter
}

func NewRouter(ballot *BallotHandler, admin *AdminHandler, m Messenger, l *zap.Logger, perSecond float64, burst int) *Router {
	return &Router{
		ballot:  ballot,
		admin:   admin,
		m:       m,
		l:       l,
		limiter: newUserLimiter(perSecond, burst),
	}
}

// HandleEvent decodes a websocket "posted" event and handles the post.
func (r *Router) HandleEvent(ctx context.Context, event *model.WebSocketEvent, botID string) {
	r.handlePosted(ctx, event.GetData(), botID)
}

func (r *Router) handlePosted(ctx context.Context, data map[string]any, botID string) {
	raw, ok := data["post"].(string)
	if !ok {
		r.l.Error("posted event without post payload")
		return
	}
	post := &model.Post{}
	if err := json.Unmarshal([]byte(raw), post); err != nil {
		r.l.Error("error unmarshalling post", zap.Error(err))
		return
	}
	if post.UserId == botID {
		return
	}
	r.Handle(ctx, post)
}

func (r *Router) Handle(ctx context.Context, post *model.Post) {
	args := strings.Fields(post.Message)
	if len(args) == 0 || (args[0] != BallotCommand && args[0] != CouncilCommand) {
		return
	}
	subcommand := "help"
	if len(args) > 1 {
		subcommand = strings.ToLower(args[1])
	}
	commandsTotal.WithLabelValues(args[0], subcommand).Inc()
	r.l.Info("new request for the bot",
		zap.String("command", args[0]),
		zap.String("subcommand", subcommand),
		zap.String("user_id", post.UserId),
		zap.String("channel_id", post.ChannelId))

	channel, resp, err := r.m.GetChannel(post.ChannelId, "")
	if err != nil {
		r.l.Error("failed to get channel", zap.String("channel_id", post.ChannelId), zap.Int("status_code", statusCode(resp)), zap.Error(err))
		r.send(post, Reply{Message: msgSomethingWrong})
		return
	}
	if channel.Type != model.ChannelTypeDirect {
		r.send(post, Reply{Message: msgDirectOnly})
		return
	}
	if !r.limiter.allow(post.UserId) {
		r.l.Warn("rate limit exceeded", zap.String("user_id", post.UserId))
		r.send(post, Reply{Message: msgSlowDown})
		return
	}

	var reply Reply
	switch args[0] {
	case BallotCommand:
		reply = r.ballot.Handle(ctx, post, args[1:])
	case CouncilCommand:
		reply = r.admin.Handle(ctx, post, args[1:])
	}
	r.send(post, reply)
}

func (r *Router) send(post *model.Post, reply Reply) {
	if reply.Message != "" {
		ephemeral := &model.PostEphemeral{
			UserID: post.UserId,
			Post:   &model.Post{ChannelId: post.ChannelId, Message: reply.Message},
		}
		if _, resp, err := r.m.CreatePostEphemeral(ephemeral); err != nil {
			r.l.Error("failed sending reply", zap.Int("status_code", statusCode(resp)), zap.Error(err))
		}
	}
	if len(reply.FileIDs) > 0 {
		attachment := &model.Post{ChannelId: post.ChannelId, FileIds: reply.FileIDs}
		if _, resp, err := r.m.CreatePost(attachment); err != nil {
			r.l.Error("failed sending attachment", zap.Int("status_code", statusCode(resp)), zap.Error(err))
		}
	}
}

func statusCode(resp *model.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
