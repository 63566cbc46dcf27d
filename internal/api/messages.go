package api

import (
	"errors"
	"strings"

	"github.com/jaam8/council_bot/internal/models"
)

const (
	msgSomethingWrong  = "Something went wrong. Please try again."
	msgDirectOnly      = "Please send ballot and council commands in a direct message to the bot."
	msgSlowDown        = "Too many requests. Please wait a moment and try again."
	msgUnavailable     = "Could not complete the request. Please try again later."
	msgAlreadyVoted    = "Our records show you have already submitted a ballot."
	msgNotEligible     = "We could not find an eligible voter record for this ACP number."
	msgValidateFirst   = "Validate first to begin voting: `/ballot validate <ACP number>`."
	msgValidateFailed  = "Validation failed."
	msgResumeFailed    = "Could not resume. Check your code."
	msgSaveFailed      = "Could not save draft."
	msgSubmitFailed    = "Could not submit your vote."
	msgDraftSaved      = "Draft saved."
	msgVoteRecorded    = "Thank you! Your vote has been recorded."
	msgTooMany         = "You can select at most 3 candidates. Uncheck some choices."
	msgNoCandidates    = "No candidates available for this region yet."
	msgComeBack        = "If you leave before submitting, use `/ballot resume <ACP number> <resume code>` to continue later."
	msgAccessGranted   = "Access granted."
	msgLocked          = "Admin dashboard locked."
	msgAdminLocked     = "Admin dashboard is locked. Use `/council unlock <passphrase>` first."
	msgAdminNoKey      = "Missing ADMIN_API_KEY. Ask the operator to configure the bot."
	msgUploadOK        = "Registry updated successfully."
	msgUploadFailed    = "Upload failed. See response above."
	msgNoNonVoters     = "No non-voters found for this region."
	msgNoTallies       = "No tallies yet."
	msgTalliesFootnote = "_Tallies are computed from submitted ballots in real time._"
)

const ballotHelp = "I know these ballot commands:\n" +
	"- `/ballot validate <ACP number>` start or restart your session\n" +
	"- `/ballot resume <ACP number> <resume code>` continue a saved session\n" +
	"- `/ballot candidates` review the candidates for your region\n" +
	"- `/ballot pick <candidate id>` select or unselect a candidate\n" +
	"- `/ballot draft` show your current selection\n" +
	"- `/ballot save` save your selection as a draft\n" +
	"- `/ballot submit` cast your final ballot (exactly 3 candidates)\n" +
	"- `/ballot help`"

const councilHelp = "**Admin commands**\n" +
	"- `/council unlock <passphrase>` / `/council lock`\n" +
	"- `/council upload [sync] [strict] [preview]` with a CSV or Excel file attached\n" +
	"- `/council nonvoters <WEST|SOUTHEAST|EAST>` eligible members who have not voted, with a CSV export\n" +
	"- `/council tallies <WEST|SOUTHEAST|EAST>` live tallies by candidate\n\n" +
	"**Upload Registry**: columns `RegionCode` (PAW/PAS/PAE), `CustomerID`, `Email`, `MemberStatus`. " +
	"`RegionCode` and `CustomerID` are required.\n" +
	"- **sync** marks anyone **not** in the uploaded file as **ineligible** for the regions present in the upload.\n" +
	"- **strict** fails on malformed rows instead of skipping them.\n" +
	"- **preview** only parses the file and shows what would be sent.\n\n" +
	"**Opening / Closing Voting**\n" +
	"- Open: upload the final registry (optionally with sync), verify counts, then announce the voting link.\n" +
	"- Close: stop accepting submissions and export tallies."

// voterMessage turns a ballot failure into the text a voter sees.
func voterMessage(err error, fallback string) string {
	var reasonErr *models.ReasonError
	switch {
	case errors.Is(err, models.ErrAlreadyVoted):
		return msgAlreadyVoted
	case errors.Is(err, models.ErrNotEligible):
		return msgNotEligible
	case errors.Is(err, models.ErrEdgeUnavailable):
		return msgUnavailable
	case errors.Is(err, models.ErrNotAuthenticated):
		return msgValidateFirst
	case errors.Is(err, models.ErrEmptyIdentifier),
		errors.Is(err, models.ErrSelectionCount),
		errors.Is(err, models.ErrInvalidResumeCode),
		errors.Is(err, models.ErrEmptyCandidateID):
		return capitalize(err.Error()) + "."
	case errors.As(err, &reasonErr):
		switch reasonErr.Code() {
		case "", models.ReasonValidationFailed, models.ReasonResumeFailed:
			return fallback
		}
		return reasonErr.Reason
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
