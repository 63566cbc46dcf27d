package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/internal/repository"
	"github.com/jaam8/council_bot/pkg/edge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const voter = "mm-user-1"

func newBallotService(t *testing.T, f *fakeEdge) (*BallotService, *repository.MemorySessionStore) {
	t.Helper()
	c := newEdgeClient(t, f)
	store := repository.NewMemorySessionStore(time.Hour, zap.NewNop())
	return NewBallotService(c, NewRegionResolver(c, zap.NewNop()), store, zap.NewNop()), store
}

func authenticate(t *testing.T, store *repository.MemorySessionStore, draft ...models.CandidateID) {
	t.Helper()
	session := models.NewVoterSession()
	session.Authenticate("tok", models.RegionEast, draft, "AB12CD")
	require.NoError(t, store.Save(context.Background(), voter, session))
}

func TestBallot_ValidateEmptyIdentifier(t *testing.T) {
	f := newFakeEdge()
	s, _ := newBallotService(t, f)

	_, err := s.Validate(context.Background(), voter, "   ")
	require.ErrorIs(t, err, models.ErrEmptyIdentifier)
	assert.Empty(t, f.recorded())
}

func TestBallot_ValidateFailureKeepsState(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathValidate, "", http.StatusNotFound, `{"ok":false,"reason":"not_eligible"}`)
	s, store := newBallotService(t, f)
	authenticate(t, store, numericIDs("1")...)

	_, err := s.Validate(context.Background(), voter, "99999")
	require.ErrorIs(t, err, models.ErrNotEligible)

	session, err := store.Load(context.Background(), voter)
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Token)
	assert.Equal(t, numericIDs("1"), session.Draft)
}

func TestBallot_ToggleRequiresSession(t *testing.T) {
	f := newFakeEdge()
	s, _ := newBallotService(t, f)

	_, _, err := s.ToggleCandidate(context.Background(), voter, models.NumericID("7"))
	require.ErrorIs(t, err, models.ErrNotAuthenticated)
}

func TestBallot_DoubleToggleRestoresDraft(t *testing.T) {
	f := newFakeEdge()
	s, store := newBallotService(t, f)
	authenticate(t, store, numericIDs("1", "2")...)

	_, selected, err := s.ToggleCandidate(context.Background(), voter, models.NumericID("5"))
	require.NoError(t, err)
	assert.True(t, selected)
	session, selected, err := s.ToggleCandidate(context.Background(), voter, models.NumericID("5"))
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, numericIDs("1", "2"), session.Draft)
	assert.Empty(t, f.recorded())
}

func TestBallot_FourthSelectionIsFlaggedNotBlocked(t *testing.T) {
	f := newFakeEdge()
	s, store := newBallotService(t, f)
	authenticate(t, store, numericIDs("1", "2", "3")...)

	session, _, err := s.ToggleCandidate(context.Background(), voter, models.NumericID("4"))
	require.NoError(t, err)
	assert.True(t, session.OverLimit())

	_, err = s.Submit(context.Background(), voter)
	require.ErrorIs(t, err, models.ErrSelectionCount)
	assert.Empty(t, f.recorded())
}

func TestBallot_SubmitWrongCountIsLocal(t *testing.T) {
	for _, draft := range [][]models.CandidateID{nil, numericIDs("1"), numericIDs("1", "2"), numericIDs("1", "2", "3", "4")} {
		f := newFakeEdge()
		s, store := newBallotService(t, f)
		authenticate(t, store, draft...)
		before, err := store.Load(context.Background(), voter)
		require.NoError(t, err)

		_, err = s.Submit(context.Background(), voter)
		require.ErrorIs(t, err, models.ErrSelectionCount)
		assert.Empty(t, f.recorded())

		after, err := store.Load(context.Background(), voter)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}
}

func TestBallot_SubmitFailureKeepsDraft(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathSubmitVote, "", http.StatusConflict, `{"ok":false,"reason":"already_voted","error":"dup"}`)
	s, store := newBallotService(t, f)
	authenticate(t, store, numericIDs("1", "2", "3")...)

	_, err := s.Submit(context.Background(), voter)
	require.ErrorIs(t, err, models.ErrAlreadyVoted)

	session, err := store.Load(context.Background(), voter)
	require.NoError(t, err)
	assert.True(t, session.Authenticated())
	assert.Equal(t, numericIDs("1", "2", "3"), session.Draft)
}

func TestBallot_SaveDraftFailureKeepsDraft(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathSaveDraft, "", http.StatusUnauthorized, `{"ok":false,"error":"invalid_token"}`)
	s, store := newBallotService(t, f)
	authenticate(t, store, numericIDs("1")...)

	_, err := s.SaveDraft(context.Background(), voter)
	require.Error(t, err)
	assert.Equal(t, "invalid_token", err.Error())
}

func TestBallot_SaveDraftSendsEmptyList(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathSaveDraft, "", http.StatusOK, `{"ok":true}`)
	s, store := newBallotService(t, f)
	authenticate(t, store)

	_, err := s.SaveDraft(context.Background(), voter)
	require.NoError(t, err)

	calls := f.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, []any{}, calls[0].Body["candidate_ids"])
	assert.Equal(t, "tok", calls[0].Body["token"])
}

func TestBallot_ResumeRejectsBadCode(t *testing.T) {
	f := newFakeEdge()
	s, _ := newBallotService(t, f)

	_, err := s.Resume(context.Background(), voter, "12345", "")
	require.ErrorIs(t, err, models.ErrInvalidResumeCode)
	_, err = s.Resume(context.Background(), voter, "12345", "ABCDEFGHIJKLM")
	require.ErrorIs(t, err, models.ErrInvalidResumeCode)
	assert.Empty(t, f.recorded())
}

// draftKeeper stands in for the edge service's draft persistence.
type draftKeeper struct {
	mu    sync.Mutex
	draft []any
}

func (d *draftKeeper) handle(c call) (reply, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch c.Path {
	case edge.PathSaveDraft:
		d.draft, _ = c.Body["candidate_ids"].([]any)
		return reply{status: http.StatusOK, body: `{"ok":true}`}, true
	case edge.PathResume:
		if c.Region != "EAST" || c.Body["resume_code"] != "AB12CD" {
			return reply{status: http.StatusNotFound, body: `{"ok":false,"reason":"not_eligible"}`}, true
		}
		raw, _ := json.Marshal(map[string]any{"ok": true, "token": "tok2", "draft": d.draft})
		return reply{status: http.StatusOK, body: string(raw)}, true
	}
	return reply{}, false
}

func TestBallot_SaveThenResumeRestoresDraft(t *testing.T) {
	f := newFakeEdge()
	keeper := &draftKeeper{}
	f.handle = keeper.handle
	f.on(edge.PathValidate, "EAST", http.StatusOK, `{"ok":true,"token":"tok","draft":[],"resume_code":"AB12CD"}`)
	f.on(edge.PathValidate, "", http.StatusNotFound, `{"ok":false,"reason":"not_eligible"}`)
	s, store := newBallotService(t, f)
	ctx := context.Background()

	_, err := s.Validate(ctx, voter, "12345")
	require.NoError(t, err)
	for _, id := range numericIDs("7", "9", "3") {
		_, _, err = s.ToggleCandidate(ctx, voter, id)
		require.NoError(t, err)
	}
	saved, err := s.SaveDraft(ctx, voter)
	require.NoError(t, err)

	// Closing the chat loses the local session.
	require.NoError(t, store.Delete(ctx, voter))

	resumed, err := s.Resume(ctx, voter, "12345", " AB12CD ")
	require.NoError(t, err)
	assert.ElementsMatch(t, saved.Draft, resumed.Draft)
	assert.Equal(t, "tok2", resumed.Token)
	assert.Equal(t, "AB12CD", resumed.ResumeCode)
	assert.Equal(t, models.RegionEast, resumed.Region)
}

func TestBallot_FullScenario(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathValidate, "WEST", http.StatusNotFound, `{"ok":false,"reason":"not_eligible"}`)
	f.on(edge.PathValidate, "SOUTHEAST", http.StatusNotFound, `{"ok":false,"reason":"not_eligible"}`)
	f.on(edge.PathValidate, "EAST", http.StatusOK, `{"ok":true,"token":"tok","draft":[],"resume_code":"AB12CD","region":"EAST"}`)
	f.on(edge.PathSaveDraft, "", http.StatusOK, `{"ok":true}`)
	f.on(edge.PathSubmitVote, "", http.StatusOK, `{"ok":true}`)
	s, store := newBallotService(t, f)
	ctx := context.Background()

	session, err := s.Validate(ctx, voter, "12345")
	require.NoError(t, err)
	assert.Equal(t, models.RegionEast, session.Region)
	assert.Equal(t, "AB12CD", session.ResumeCode)
	assert.Empty(t, session.Draft)

	for _, id := range numericIDs("7", "9") {
		_, _, err = s.ToggleCandidate(ctx, voter, id)
		require.NoError(t, err)
	}
	session, _, err = s.ToggleCandidate(ctx, voter, models.NumericID("3"))
	require.NoError(t, err)
	assert.ElementsMatch(t, numericIDs("7", "9", "3"), session.Draft)

	session, err = s.SaveDraft(ctx, voter)
	require.NoError(t, err)
	assert.ElementsMatch(t, numericIDs("7", "9", "3"), session.Draft)

	session, err = s.Submit(ctx, voter)
	require.NoError(t, err)
	assert.Equal(t, models.NewVoterSession(), session)

	stored, err := store.Load(ctx, voter)
	require.NoError(t, err)
	assert.Equal(t, models.NewVoterSession(), stored)

	calls := f.recorded()
	last := calls[len(calls)-1]
	assert.Equal(t, edge.PathSubmitVote, last.Path)
	assert.Equal(t, []any{float64(7), float64(9), float64(3)}, last.Body["candidate_ids"])

	_, err = s.Submit(ctx, voter)
	require.ErrorIs(t, err, models.ErrNotAuthenticated)
}

func TestBallot_SubmitFailureShowsServerText(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathSubmitVote, "", http.StatusConflict, `{"ok":false,"error":" Voting closed for EAST at 17:00 UTC "}`)
	s, store := newBallotService(t, f)
	authenticate(t, store, numericIDs("1", "2", "3")...)

	_, err := s.Submit(context.Background(), voter)
	require.Error(t, err)
	assert.Equal(t, "Voting closed for EAST at 17:00 UTC", err.Error())
	assert.NotErrorIs(t, err, models.ErrAlreadyVoted)
}

func TestBallot_SaveDraftMixedCaseReasonStillMatches(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathSaveDraft, "", http.StatusForbidden, `{"ok":false,"reason":"Already_Voted"}`)
	s, store := newBallotService(t, f)
	authenticate(t, store, numericIDs("1")...)

	_, err := s.SaveDraft(context.Background(), voter)
	require.ErrorIs(t, err, models.ErrAlreadyVoted)
	assert.Equal(t, "Already_Voted", err.Error())
}

func TestBallot_TextIDsGoBackAsStrings(t *testing.T) {
	f := newFakeEdge()
	f.on(edge.PathValidate, "", http.StatusOK, `{"ok":true,"token":"tok","draft":["7"]}`)
	f.on(edge.PathSubmitVote, "", http.StatusOK, `{"ok":true}`)
	s, _ := newBallotService(t, f)
	ctx := context.Background()

	session, err := s.Validate(ctx, voter, "12345")
	require.NoError(t, err)
	require.Equal(t, []models.CandidateID{models.TextID("7")}, session.Draft)
	for _, id := range []models.CandidateID{models.TextID("9"), models.NumericID("3")} {
		_, _, err = s.ToggleCandidate(ctx, voter, id)
		require.NoError(t, err)
	}

	_, err = s.Submit(ctx, voter)
	require.NoError(t, err)
	calls := f.recorded()
	assert.Equal(t, []any{"7", "9", float64(3)}, calls[len(calls)-1].Body["candidate_ids"])
}
