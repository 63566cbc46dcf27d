package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/internal/service"
	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"
)

// BallotHandler is the voter-facing command surface.
type BallotHandler struct {
	s       *service.BallotService
	c       *service.CandidateService
	l       *zap.Logger
	contact string
}

func NewBallotHandler(s *service.BallotService, c *service.CandidateService, l *zap.Logger, contact string) *BallotHandler {
	return &BallotHandler{
		s:       s,
		c:       c,
		l:       l,
		contact: contact,
	}
}

func (h *BallotHandler) Handle(ctx context.Context, post *model.Post, args []string) Reply {
	if len(args) == 0 {
		return Reply{Message: h.help()}
	}
	userID := post.UserId
	switch strings.ToLower(args[0]) {
	case "validate":
		if len(args) < 2 {
			return Reply{Message: "Usage: `/ballot validate <ACP number>`"}
		}
		return h.validate(ctx, userID, args[1])
	case "resume":
		if len(args) < 3 {
			return Reply{Message: "Usage: `/ballot resume <ACP number> <resume code>`"}
		}
		return h.resume(ctx, userID, args[1], args[2])
	case "candidates":
		return h.candidates(ctx, userID)
	case "pick":
		if len(args) < 2 {
			return Reply{Message: "Usage: `/ballot pick <candidate id>`"}
		}
		return h.pick(ctx, userID, args[1])
	case "draft":
		return h.draft(ctx, userID)
	case "save":
		return h.save(ctx, userID)
	case "submit":
		return h.submit(ctx, userID)
	default:
		return Reply{Message: h.help()}
	}
}

func (h *BallotHandler) validate(ctx context.Context, userID, acp string) Reply {
	session, err := h.s.Validate(ctx, userID, acp)
	if err != nil {
		return Reply{Message: h.withContact(voterMessage(err, msgValidateFailed))}
	}
	msg := fmt.Sprintf("Validated for region **%s**. Your session is active.", session.Region.Pretty())
	if session.ResumeCode != "" {
		msg += fmt.Sprintf("\nYour resume code: **%s** (save this if you need to come back)", session.ResumeCode)
	}
	if len(session.Draft) > 0 {
		msg += "\n" + formatDraft(session)
	}
	msg += "\nNext: `/ballot candidates`"
	return Reply{Message: msg}
}

func (h *BallotHandler) resume(ctx context.Context, userID, acp, code string) Reply {
	session, err := h.s.Resume(ctx, userID, acp, code)
	if err != nil {
		return Reply{Message: h.withContact(voterMessage(err, msgResumeFailed))}
	}
	return Reply{Message: fmt.Sprintf("Session resumed for region **%s**.\n%s", session.Region.Pretty(), formatDraft(session))}
}

func (h *BallotHandler) candidates(ctx context.Context, userID string) Reply {
	session, err := h.s.Session(ctx, userID)
	if err != nil {
		return Reply{Message: msgSomethingWrong}
	}
	if !session.Authenticated() {
		return Reply{Message: msgValidateFirst}
	}
	list, err := h.c.List(ctx, session.Region)
	if err != nil {
		return Reply{Message: voterMessage(err, msgSomethingWrong)}
	}
	if len(list) == 0 {
		return Reply{Message: msgNoCandidates}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#### Candidates for %s (choose %d)\n", session.Region.Pretty(), models.MaxSelections)
	for _, c := range list {
		b.WriteString(formatCandidate(c, session.Selected(c.ID)))
	}
	b.WriteString("\nSelect with `/ballot pick <candidate id>`.\n")
	b.WriteString(formatDraft(session))
	return Reply{Message: b.String()}
}

func (h *BallotHandler) pick(ctx context.Context, userID, raw string) Reply {
	session, err := h.s.Session(ctx, userID)
	if err != nil {
		return Reply{Message: msgSomethingWrong}
	}
	if !session.Authenticated() {
		return Reply{Message: msgValidateFirst}
	}
	id := h.resolveID(ctx, session, raw)
	session, selected, err := h.s.ToggleCandidate(ctx, userID, id)
	if err != nil {
		return Reply{Message: voterMessage(err, msgSomethingWrong)}
	}
	verb := "removed from"
	if selected {
		verb = "added to"
	}
	return Reply{Message: fmt.Sprintf("Candidate `%s` %s your selection.\n%s", id, verb, formatDraft(session))}
}

// resolveID prefers the id as the edge service issued it: from the draft it
// returned, then from the slate. Unknown ids are sent as strings.
func (h *BallotHandler) resolveID(ctx context.Context, session models.VoterSession, raw string) models.CandidateID {
	typed := models.TextID(raw)
	for _, id := range session.Draft {
		if id.Same(typed) {
			return id
		}
	}
	if id, ok := h.c.Lookup(ctx, session.Region, raw); ok {
		return id
	}
	return typed
}

func (h *BallotHandler) draft(ctx context.Context, userID string) Reply {
	session, err := h.s.Session(ctx, userID)
	if err != nil {
		return Reply{Message: msgSomethingWrong}
	}
	if !session.Authenticated() {
		return Reply{Message: msgValidateFirst}
	}
	msg := formatDraft(session)
	if session.ResumeCode != "" {
		msg += fmt.Sprintf("\nResume code: **%s**", session.ResumeCode)
	}
	return Reply{Message: msg + "\n" + msgComeBack}
}

func (h *BallotHandler) save(ctx context.Context, userID string) Reply {
	session, err := h.s.SaveDraft(ctx, userID)
	if err != nil {
		return Reply{Message: h.withContact(voterMessage(err, msgSaveFailed))}
	}
	return Reply{Message: msgDraftSaved + "\n" + formatDraft(session)}
}

func (h *BallotHandler) submit(ctx context.Context, userID string) Reply {
	if _, err := h.s.Submit(ctx, userID); err != nil {
		return Reply{Message: h.withContact(voterMessage(err, msgSubmitFailed))}
	}
	return Reply{Message: msgVoteRecorded}
}

func (h *BallotHandler) help() string {
	return h.withContact(ballotHelp + "\n\n" + msgComeBack)
}

func (h *BallotHandler) withContact(msg string) string {
	if h.contact == "" {
		return msg
	}
	return msg + "\nQuestions? Contact " + h.contact
}
