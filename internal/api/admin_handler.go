package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jaam8/council_bot/internal/ingest"
	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/internal/service"
	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"
)

const (
	previewRows = 10
	maxListRows = 50
)

// AdminHandler is the registry and reporting command surface.
type AdminHandler struct {
	s *service.AdminService
	m Messenger
	l *zap.Logger
}

func NewAdminHandler(s *service.AdminService, m Messenger, l *zap.Logger) *AdminHandler {
	return &AdminHandler{
		s: s,
		m: m,
		l: l,
	}
}

func (h *AdminHandler) Handle(ctx context.Context, post *model.Post, args []string) Reply {
	if len(args) == 0 {
		return Reply{Message: councilHelp}
	}
	userID := post.UserId
	sub := strings.ToLower(args[0])
	switch sub {
	case "help":
		return Reply{Message: councilHelp}
	case "unlock":
		if len(args) < 2 {
			return Reply{Message: "Usage: `/council unlock <passphrase>`"}
		}
		if err := h.s.Gate().Unlock(userID, strings.Join(args[1:], " ")); err != nil {
			h.l.Warn("admin unlock refused", zap.String("user_id", userID))
			return Reply{Message: "Incorrect passphrase."}
		}
		h.l.Info("admin unlocked", zap.String("user_id", userID))
		return Reply{Message: msgAccessGranted}
	case "lock":
		h.s.Gate().Lock(userID)
		return Reply{Message: msgLocked}
	}

	if !h.s.Gate().Unlocked(userID) {
		return Reply{Message: msgAdminLocked}
	}
	switch sub {
	case "upload":
		return h.upload(ctx, post, args[1:])
	case "nonvoters", "non-voters":
		region, reply, ok := regionArg(args, "nonvoters")
		if !ok {
			return reply
		}
		return h.nonVoters(ctx, post, region)
	case "tallies":
		region, reply, ok := regionArg(args, "tallies")
		if !ok {
			return reply
		}
		return h.tallies(ctx, userID, region)
	default:
		return Reply{Message: councilHelp}
	}
}

func regionArg(args []string, sub string) (models.Region, Reply, bool) {
	if len(args) < 2 {
		return "", Reply{Message: fmt.Sprintf("Usage: `/council %s <WEST|SOUTHEAST|EAST>`", sub)}, false
	}
	region, err := models.ParseRegion(args[1])
	if err != nil {
		return "", Reply{Message: fmt.Sprintf("Unknown region %q. Use WEST, SOUTHEAST or EAST.", args[1])}, false
	}
	return region, Reply{}, true
}

type uploadFlags struct {
	sync    bool
	strict  bool
	preview bool
}

func parseUploadFlags(args []string) uploadFlags {
	var f uploadFlags
	for _, a := range args {
		switch strings.ToLower(strings.TrimLeft(a, "-")) {
		case "sync":
			f.sync = true
		case "strict":
			f.strict = true
		case "preview":
			f.preview = true
		}
	}
	return f
}

func (h *AdminHandler) upload(ctx context.Context, post *model.Post, args []string) Reply {
	flags := parseUploadFlags(args)
	if len(post.FileIds) == 0 {
		return Reply{Message: capitalize(models.ErrNoFileAttached.Error()) + "."}
	}
	fileID := post.FileIds[0]
	info, resp, err := h.m.GetFileInfo(fileID)
	if err != nil {
		h.l.Error("failed to get file info", zap.String("file_id", fileID), zap.Int("status_code", statusCode(resp)), zap.Error(err))
		return Reply{Message: msgSomethingWrong}
	}
	data, resp, err := h.m.GetFile(fileID)
	if err != nil {
		h.l.Error("failed to download file", zap.String("file_id", fileID), zap.Int("status_code", statusCode(resp)), zap.Error(err))
		return Reply{Message: msgSomethingWrong}
	}

	table, err := ingest.Read(info.Name, data, flags.strict)
	if err != nil {
		h.l.Warn("registry file rejected", zap.String("file", info.Name), zap.Error(err))
		return Reply{Message: fmt.Sprintf("Could not read file: %v", err)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Parsed rows: **%d**, columns: **%d**", len(table.Rows), table.Columns())
	if table.Skipped > 0 {
		fmt.Fprintf(&b, ", skipped malformed rows: **%d**", table.Skipped)
	}
	b.WriteString("\n")
	b.WriteString(markdownTable(table.Header, table.Preview(previewRows)))

	rows, err := ingest.RegistryRows(table)
	if err != nil {
		fmt.Fprintf(&b, "\n%s", capitalize(err.Error()))
		return Reply{Message: b.String()}
	}
	if flags.preview {
		fmt.Fprintf(&b, "\nPreview only, nothing was sent. Sync mode: **%t**.", flags.sync)
		return Reply{Message: b.String()}
	}

	res, err := h.s.UpsertRegistry(ctx, post.UserId, rows, flags.sync)
	if res != nil {
		fmt.Fprintf(&b, "\n```json\n%s\n```\n", strings.TrimSpace(string(res.Body)))
	}
	if err != nil {
		b.WriteString("\n" + adminMessage(err, msgUploadFailed))
		return Reply{Message: b.String()}
	}
	h.l.Info("registry uploaded",
		zap.String("user_id", post.UserId),
		zap.Int("rows", len(rows)),
		zap.Bool("sync", flags.sync))
	b.WriteString(msgUploadOK)
	return Reply{Message: b.String()}
}

func (h *AdminHandler) nonVoters(ctx context.Context, post *model.Post, region models.Region) Reply {
	res, err := h.s.NonVoters(ctx, post.UserId, region)
	if err != nil {
		return Reply{Message: adminFailure(err)}
	}
	if len(res.Records) == 0 {
		return Reply{Message: msgNoNonVoters}
	}

	header, rows := flattenRecords(res.Records)
	msg := fmt.Sprintf("#### Non-voters in %s: %d\n", region.Pretty(), len(rows))
	shown := rows
	if len(shown) > maxListRows {
		shown = shown[:maxListRows]
		msg += fmt.Sprintf("Showing the first %d, the attached CSV has all of them.\n", maxListRows)
	}
	msg += markdownTable(header, shown)

	reply := Reply{Message: msg}
	data, err := recordsCSV(header, rows)
	if err != nil {
		h.l.Error("failed to render non-voters csv", zap.Error(err))
		return reply
	}
	filename := fmt.Sprintf("non_voters_%s.csv", region)
	uploaded, resp, err := h.m.UploadFile(data, post.ChannelId, filename)
	if err != nil || len(uploaded.FileInfos) == 0 {
		h.l.Error("failed to upload non-voters csv", zap.Int("status_code", statusCode(resp)), zap.Error(err))
		reply.Message += "\nThe CSV export could not be attached."
		return reply
	}
	reply.FileIDs = []string{uploaded.FileInfos[0].Id}
	return reply
}

func (h *AdminHandler) tallies(ctx context.Context, userID string, region models.Region) Reply {
	res, err := h.s.LiveTallies(ctx, userID, region)
	if err != nil {
		return Reply{Message: adminFailure(err)}
	}
	if len(res.Records) == 0 {
		return Reply{Message: msgNoTallies + "\n" + msgTalliesFootnote}
	}
	header, rows := flattenRecords(res.Records)
	return Reply{Message: fmt.Sprintf("#### Live tallies for %s\n%s\n%s", region.Pretty(), markdownTable(header, rows), msgTalliesFootnote)}
}

// adminFailure shows the raw answer; admins are trusted to read it.
func adminFailure(err error) string {
	var respErr *models.AdminResponseError
	if errors.As(err, &respErr) {
		return fmt.Sprintf("Error: %d\n```json\n%s\n```", respErr.StatusCode, strings.TrimSpace(string(respErr.Body)))
	}
	return adminMessage(err, msgSomethingWrong)
}

func adminMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, models.ErrAdminLocked):
		return msgAdminLocked
	case errors.Is(err, models.ErrAdminNotConfigured):
		return msgAdminNoKey
	case errors.Is(err, models.ErrEdgeUnavailable):
		return msgUnavailable
	}
	return fallback
}
