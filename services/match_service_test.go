package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Dosada05/esport-core/events"
	"github.com/Dosada05/esport-core/models"
	"github.com/Dosada05/esport-core/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory fakes ----

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{matches: make(map[int]*models.Match)}
	for _, match := range matches {
		repo.matches[match.ID] = copyMatch(match)
	}
	return repo
}

func copyMatch(m *models.Match) *models.Match {
	out := *m
	out.ConfirmedBy = append(models.ConfirmationSet(nil), m.ConfirmedBy...)
	out.TeamAID = copyIntPtr(m.TeamAID)
	out.TeamBID = copyIntPtr(m.TeamBID)
	out.WinnerTeamID = copyIntPtr(m.WinnerTeamID)
	return &out
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return copyMatch(match), nil
}

func (r *fakeMatchRepo) GetBySlot(_ context.Context, _ repositories.SQLExecutor, tournamentID, round, slot int) (*models.Match, error) {
	for _, match := range r.matches {
		if match.TournamentID == tournamentID && match.Round == round && match.Slot == slot {
			return copyMatch(match), nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, match := range r.matches {
		if match.TournamentID == tournamentID {
			out = append(out, copyMatch(match))
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	stored, ok := r.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if stored.Version != match.Version {
		return repositories.ErrMatchVersionConflict
	}
	match.Version++
	r.matches[match.ID] = copyMatch(match)
	return nil
}

// conflictingMatchRepo fails the first N updates with a version conflict.
type conflictingMatchRepo struct {
	*fakeMatchRepo
	failures int
}

func (r *conflictingMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if r.failures > 0 {
		r.failures--
		return repositories.ErrMatchVersionConflict
	}
	return r.fakeMatchRepo.Update(ctx, exec, match)
}

type fakeRatingRepo struct {
	ratings map[int]*models.TeamRating
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{ratings: make(map[int]*models.TeamRating)}
}

func copyRating(r *models.TeamRating) *models.TeamRating {
	out := *r
	out.RecentResults = append([]models.MatchResult(nil), r.RecentResults...)
	return &out
}

func (r *fakeRatingRepo) GetOrCreate(_ context.Context, teamID int) (*models.TeamRating, error) {
	if record, ok := r.ratings[teamID]; ok {
		return copyRating(record), nil
	}
	record := models.TeamRating{TeamID: teamID, Rating: 1000, Level: 1}
	r.ratings[teamID] = copyRating(&record)
	return copyRating(&record), nil
}

func (r *fakeRatingRepo) GetByTeam(_ context.Context, teamID int) (*models.TeamRating, error) {
	record, ok := r.ratings[teamID]
	if !ok {
		return nil, repositories.ErrTeamRatingNotFound
	}
	return copyRating(record), nil
}

func (r *fakeRatingRepo) List(_ context.Context) ([]*models.TeamRating, error) {
	out := make([]*models.TeamRating, 0, len(r.ratings))
	for _, record := range r.ratings {
		out = append(out, copyRating(record))
	}
	return out, nil
}

func (r *fakeRatingRepo) Update(_ context.Context, _ repositories.SQLExecutor, rating *models.TeamRating) error {
	stored, ok := r.ratings[rating.TeamID]
	if !ok {
		return repositories.ErrTeamRatingNotFound
	}
	if stored.Version != rating.Version {
		return repositories.ErrTeamRatingVersionConflict
	}
	rating.Version++
	r.ratings[rating.TeamID] = copyRating(rating)
	return nil
}

type publishedEvent struct {
	tournamentID int
	eventType    string
	payload      interface{}
}

type recordingPublisher struct {
	published []publishedEvent
}

func (p *recordingPublisher) Publish(tournamentID int, eventType string, payload interface{}) {
	p.published = append(p.published, publishedEvent{tournamentID, eventType, payload})
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.published))
	for i, event := range p.published {
		out[i] = event.eventType
	}
	return out
}

// ---- fixtures ----

const (
	teamAlpha = 101
	teamBeta  = 102
)

func testMatch(id int) *models.Match {
	a, b := teamAlpha, teamBeta
	return &models.Match{
		ID:           id,
		TournamentID: 1,
		Round:        1,
		Slot:         0,
		TeamAID:      &a,
		TeamBID:      &b,
		Status:       models.MatchStatusPending,
	}
}

func captainOf(teamID int) models.Caller {
	return models.Caller{UserID: teamID * 10, Role: models.RoleUser, CaptainTeamIDs: []int{teamID}}
}

func moderator() models.Caller {
	return models.Caller{UserID: 900, Role: models.RoleModerator}
}

func bystander() models.Caller {
	return models.Caller{UserID: 999, Role: models.RoleUser, CaptainTeamIDs: []int{555}}
}

type serviceFixture struct {
	service    MatchService
	matchRepo  *fakeMatchRepo
	ratingRepo *fakeRatingRepo
	publisher  *recordingPublisher
}

func newFixture(t *testing.T, matches ...*models.Match) *serviceFixture {
	t.Helper()
	matchRepo := newFakeMatchRepo(matches...)
	ratingRepo := newFakeRatingRepo()
	publisher := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &serviceFixture{
		service:    NewMatchService(fakeTxManager{}, matchRepo, ratingRepo, publisher, logger),
		matchRepo:  matchRepo,
		ratingRepo: ratingRepo,
		publisher:  publisher,
	}
}

func (f *serviceFixture) stored(t *testing.T, matchID int) *models.Match {
	t.Helper()
	match, err := f.matchRepo.GetByID(context.Background(), matchID)
	require.NoError(t, err)
	return match
}

// ---- ProposeScore ----

func TestProposeScoreStartsMatch(t *testing.T) {
	f := newFixture(t, testMatch(1))

	match, err := f.service.ProposeScore(context.Background(), captainOf(teamAlpha), 1, 16, 14)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.Equal(t, 16, match.ScoreA)
	assert.Equal(t, 14, match.ScoreB)
	assert.Empty(t, match.ConfirmedBy)

	stored := f.stored(t, 1)
	assert.Equal(t, models.MatchStatusInProgress, stored.Status)
	assert.Equal(t, []string{events.TypeMatchUpdated}, f.publisher.types())
}

func TestProposeScoreClearsConfirmations(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA, seed.ScoreB = 16, 14
	seed.ConfirmedBy = models.ConfirmationSet{models.SideA}
	f := newFixture(t, seed)

	match, err := f.service.ProposeScore(context.Background(), captainOf(teamBeta), 1, 14, 16)
	require.NoError(t, err)

	assert.Empty(t, match.ConfirmedBy)
	assert.Equal(t, 14, match.ScoreA)
	assert.Equal(t, 16, match.ScoreB)
}

func TestProposeScoreRejectsOutsiders(t *testing.T) {
	f := newFixture(t, testMatch(1))

	_, err := f.service.ProposeScore(context.Background(), bystander(), 1, 1, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// No side effects on a rejected proposal.
	assert.Equal(t, models.MatchStatusPending, f.stored(t, 1).Status)
	assert.Empty(t, f.publisher.published)
}

func TestProposeScoreModeratorAllowed(t *testing.T) {
	f := newFixture(t, testMatch(1))

	match, err := f.service.ProposeScore(context.Background(), moderator(), 1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, match.Status)
}

func TestProposeScoreRequiresBothTeams(t *testing.T) {
	seed := testMatch(1)
	seed.TeamBID = nil
	f := newFixture(t, seed)

	_, err := f.service.ProposeScore(context.Background(), captainOf(teamAlpha), 1, 1, 0)
	assert.ErrorIs(t, err, ErrMatchTeamsNotSet)
}

func TestProposeScoreOnCompletedMatch(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusCompleted
	f := newFixture(t, seed)

	_, err := f.service.ProposeScore(context.Background(), captainOf(teamAlpha), 1, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProposeScoreMatchMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ProposeScore(context.Background(), captainOf(teamAlpha), 42, 1, 0)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

// ---- ConfirmResult ----

func TestConfirmResultSingleSide(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA, seed.ScoreB = 16, 14
	f := newFixture(t, seed)

	match, err := f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.True(t, match.ConfirmedBy.Has(models.SideA))
	assert.False(t, match.ConfirmedBy.HasBoth())
	assert.Nil(t, match.WinnerTeamID)
}

func TestConfirmResultCompletesMatch(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA, seed.ScoreB = 16, 14
	f := newFixture(t, seed)

	_, err := f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
	require.NoError(t, err)
	match, err := f.service.ConfirmResult(context.Background(), captainOf(teamBeta), 1)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, match.Status)
	require.NotNil(t, match.WinnerTeamID)
	assert.Equal(t, teamAlpha, *match.WinnerTeamID)
	assert.NotNil(t, match.CompletedAt)
	assert.False(t, match.ModeratorVerified)

	winner, err := f.ratingRepo.GetByTeam(context.Background(), teamAlpha)
	require.NoError(t, err)
	loser, err := f.ratingRepo.GetByTeam(context.Background(), teamBeta)
	require.NoError(t, err)
	assert.Equal(t, 1016, winner.Rating)
	assert.Equal(t, 984, loser.Rating)
	assert.Equal(t, 50, winner.XP)
	assert.Equal(t, 10, loser.XP)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1, loser.Losses)

	types := f.publisher.types()
	assert.Contains(t, types, events.TypeMatchCompleted)
}

func TestConfirmResultSameSideTwice(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA, seed.ScoreB = 16, 14
	f := newFixture(t, seed)

	_, err := f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
	require.NoError(t, err)
	match, err := f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
	require.NoError(t, err)

	// A repeated confirmation from the same side never completes the match.
	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.Len(t, match.ConfirmedBy, 1)
}

func TestConfirmResultTieRejected(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA, seed.ScoreB = 15, 15
	seed.ConfirmedBy = models.ConfirmationSet{models.SideA}
	f := newFixture(t, seed)

	_, err := f.service.ConfirmResult(context.Background(), captainOf(teamBeta), 1)
	assert.ErrorIs(t, err, ErrAmbiguousResult)

	// The rejected confirmation leaves no trace.
	stored := f.stored(t, 1)
	assert.Equal(t, models.MatchStatusInProgress, stored.Status)
	assert.False(t, stored.ConfirmedBy.Has(models.SideB))
	assert.Empty(t, f.publisher.published)
}

func TestConfirmResultModeratorCannotConfirm(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA = 1
	f := newFixture(t, seed)

	_, err := f.service.ConfirmResult(context.Background(), moderator(), 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestConfirmResultWrongStatus(t *testing.T) {
	for _, status := range []models.MatchStatus{
		models.MatchStatusPending,
		models.MatchStatusDisputed,
		models.MatchStatusCompleted,
	} {
		seed := testMatch(1)
		seed.Status = status
		f := newFixture(t, seed)

		_, err := f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
		assert.ErrorIs(t, err, ErrInvalidTransition, "status %s", status)
	}
}

// ---- Moderate ----

func TestModerateRequiresModerator(t *testing.T) {
	f := newFixture(t, testMatch(1))

	_, err := f.service.Moderate(context.Background(), captainOf(teamAlpha), 1, models.ModerationDispute, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestModerateDisputeAndReopen(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA, seed.ScoreB = 16, 14
	seed.ConfirmedBy = models.ConfirmationSet{models.SideA}
	f := newFixture(t, seed)

	match, err := f.service.Moderate(context.Background(), moderator(), 1, models.ModerationDispute, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusDisputed, match.Status)

	// Captains cannot act on a disputed match.
	_, err = f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	match, err = f.service.Moderate(context.Background(), moderator(), 1, models.ModerationReopen, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.Empty(t, match.ConfirmedBy)
}

func TestModerateVerifyCompletes(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusDisputed
	seed.ScoreA, seed.ScoreB = 14, 16
	f := newFixture(t, seed)

	match, err := f.service.Moderate(context.Background(), moderator(), 1, models.ModerationVerify, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, match.Status)
	require.NotNil(t, match.WinnerTeamID)
	assert.Equal(t, teamBeta, *match.WinnerTeamID)
	assert.True(t, match.ModeratorVerified)
}

func TestModerateVerifyTie(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusDisputed
	seed.ScoreA, seed.ScoreB = 15, 15
	f := newFixture(t, seed)

	_, err := f.service.Moderate(context.Background(), moderator(), 1, models.ModerationVerify, nil)
	assert.ErrorIs(t, err, ErrAmbiguousResult)
}

func TestModerateForceCompleteTie(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusDisputed
	seed.ScoreA, seed.ScoreB = 15, 15
	f := newFixture(t, seed)

	winner := teamBeta
	match, err := f.service.Moderate(context.Background(), moderator(), 1, models.ModerationForceComplete, &winner)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, match.Status)
	assert.Equal(t, teamBeta, *match.WinnerTeamID)
	assert.True(t, match.ModeratorVerified)

	record, err := f.ratingRepo.GetByTeam(context.Background(), teamBeta)
	require.NoError(t, err)
	assert.Equal(t, 1016, record.Rating)
}

func TestModerateForceCompleteForeignWinner(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusInProgress
	seed.ScoreA = 1
	f := newFixture(t, seed)

	winner := 777
	_, err := f.service.Moderate(context.Background(), moderator(), 1, models.ModerationForceComplete, &winner)
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)
	assert.Equal(t, models.MatchStatusInProgress, f.stored(t, 1).Status)
}

func TestModerateCompletedIsTerminal(t *testing.T) {
	seed := testMatch(1)
	seed.Status = models.MatchStatusCompleted
	f := newFixture(t, seed)

	for _, action := range []models.ModerationAction{
		models.ModerationDispute,
		models.ModerationReopen,
		models.ModerationVerify,
		models.ModerationForceComplete,
	} {
		winner := teamAlpha
		_, err := f.service.Moderate(context.Background(), moderator(), 1, action, &winner)
		assert.ErrorIs(t, err, ErrInvalidTransition, "action %s", action)
	}
}

func TestModerateUnknownAction(t *testing.T) {
	f := newFixture(t, testMatch(1))

	_, err := f.service.Moderate(context.Background(), moderator(), 1, models.ModerationAction("escalate"), nil)
	assert.ErrorIs(t, err, ErrUnknownModerationAction)
}

// ---- advancement ----

func TestCompletionAdvancesWinner(t *testing.T) {
	source := testMatch(1)
	source.Round, source.Slot = 1, 1
	source.Status = models.MatchStatusInProgress
	source.ScoreA, source.ScoreB = 16, 14

	next := &models.Match{ID: 2, TournamentID: 1, Round: 2, Slot: 0, Status: models.MatchStatusPending}
	f := newFixture(t, source, next)

	_, err := f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
	require.NoError(t, err)
	_, err = f.service.ConfirmResult(context.Background(), captainOf(teamBeta), 1)
	require.NoError(t, err)

	// Slot 1 is odd, so the winner lands on side B of the downstream match.
	advanced := f.stored(t, 2)
	require.NotNil(t, advanced.TeamBID)
	assert.Equal(t, teamAlpha, *advanced.TeamBID)
	assert.Nil(t, advanced.TeamAID)

	assert.NotContains(t, f.publisher.types(), events.TypeTournamentCompleted)
}

func TestFinalCompletionAnnouncesTournament(t *testing.T) {
	final := testMatch(1)
	final.Round, final.Slot = 3, 0
	final.Status = models.MatchStatusInProgress
	final.ScoreA, final.ScoreB = 2, 0
	f := newFixture(t, final)

	_, err := f.service.ConfirmResult(context.Background(), captainOf(teamAlpha), 1)
	require.NoError(t, err)
	_, err = f.service.ConfirmResult(context.Background(), captainOf(teamBeta), 1)
	require.NoError(t, err)

	types := f.publisher.types()
	assert.Contains(t, types, events.TypeMatchCompleted)
	assert.Contains(t, types, events.TypeTournamentCompleted)

	last := f.publisher.published[len(f.publisher.published)-1]
	payload, ok := last.payload.(events.TournamentCompletedPayload)
	require.True(t, ok)
	assert.Equal(t, teamAlpha, payload.WinnerTeamID)
}

// ---- contention ----

func TestRetryOnVersionConflict(t *testing.T) {
	matchRepo := &conflictingMatchRepo{fakeMatchRepo: newFakeMatchRepo(testMatch(1)), failures: 1}
	publisher := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewMatchService(fakeTxManager{}, matchRepo, newFakeRatingRepo(), publisher, logger)

	match, err := service.ProposeScore(context.Background(), captainOf(teamAlpha), 1, 16, 14)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.Equal(t, 0, matchRepo.failures)
}

func TestRetriesExhausted(t *testing.T) {
	matchRepo := &conflictingMatchRepo{fakeMatchRepo: newFakeMatchRepo(testMatch(1)), failures: maxUpdateAttempts}
	publisher := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewMatchService(fakeTxManager{}, matchRepo, newFakeRatingRepo(), publisher, logger)

	_, err := service.ProposeScore(context.Background(), captainOf(teamAlpha), 1, 16, 14)
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Empty(t, publisher.published)
}
