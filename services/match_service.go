package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esport-core/brackets"
	"github.com/Dosada05/esport-core/events"
	"github.com/Dosada05/esport-core/models"
	"github.com/Dosada05/esport-core/ratings"
	"github.com/Dosada05/esport-core/repositories"
	"golang.org/x/sync/errgroup"
)

// How many times a mutating operation is retried against fresh state before
// contention is surfaced to the caller.
const maxUpdateAttempts = 3

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)

	// ProposeScore records a score pair on behalf of a captain or moderator.
	// Any change to the scores wipes all standing confirmations.
	ProposeScore(ctx context.Context, caller models.Caller, matchID, scoreA, scoreB int) (*models.Match, error)

	// ConfirmResult records the caller's side as agreeing with the current
	// scores. When both sides have confirmed, the match completes and
	// ratings, XP and bracket advancement are applied atomically.
	ConfirmResult(ctx context.Context, caller models.Caller, matchID int) (*models.Match, error)

	// Moderate applies one of the moderator-only arbitration actions.
	Moderate(ctx context.Context, caller models.Caller, matchID int, action models.ModerationAction, winnerTeamID *int) (*models.Match, error)
}

type matchService struct {
	tx         repositories.TxManager
	matchRepo  repositories.MatchRepository
	ratingRepo repositories.TeamRatingRepository
	publisher  events.Publisher
	logger     *slog.Logger
}

func NewMatchService(
	tx repositories.TxManager,
	matchRepo repositories.MatchRepository,
	ratingRepo repositories.TeamRatingRepository,
	publisher events.Publisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:         tx,
		matchRepo:  matchRepo,
		ratingRepo: ratingRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	return match, nil
}

func (s *matchService) ListMatchesByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}

func (s *matchService) ProposeScore(ctx context.Context, caller models.Caller, matchID, scoreA, scoreB int) (*models.Match, error) {
	var updated *models.Match

	err := s.withRetry(ctx, matchID, func(exec repositories.SQLExecutor, match *models.Match) error {
		if _, _, err := authorizeParticipant(match, caller); err != nil {
			return err
		}
		if match.Status != models.MatchStatusPending && match.Status != models.MatchStatusInProgress {
			return ErrInvalidTransition
		}
		if match.TeamAID == nil || match.TeamBID == nil {
			return ErrMatchTeamsNotSet
		}

		match.ScoreA = scoreA
		match.ScoreB = scoreB
		// A confirmation only ever covers the score pair it was given for.
		match.ConfirmedBy.Clear()
		if match.Status == models.MatchStatusPending {
			match.Status = models.MatchStatusInProgress
		}

		if err := s.matchRepo.Update(ctx, exec, match); err != nil {
			return err
		}
		updated = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(updated.TournamentID, events.TypeMatchUpdated, updated)
	return updated, nil
}

func (s *matchService) ConfirmResult(ctx context.Context, caller models.Caller, matchID int) (*models.Match, error) {
	var updated *models.Match
	var completion *completionResult

	err := s.withRetry(ctx, matchID, func(exec repositories.SQLExecutor, match *models.Match) error {
		completion = nil

		side, ok := callerSide(match, caller)
		if !ok {
			// Confirmation is a captain act; moderators use Moderate.
			return ErrUnauthorized
		}
		if match.Status != models.MatchStatusInProgress {
			return ErrInvalidTransition
		}

		match.ConfirmedBy.Record(side)

		if !match.ConfirmedBy.HasBoth() {
			if err := s.matchRepo.Update(ctx, exec, match); err != nil {
				return err
			}
			updated = match
			return nil
		}

		winnerSide, decided := match.LeadingSide()
		if !decided {
			return ErrAmbiguousResult
		}

		result, err := s.completeMatch(ctx, exec, match, *match.TeamOnSide(winnerSide), false)
		if err != nil {
			return err
		}
		completion = result
		updated = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completion != nil {
		s.announceCompletion(completion)
	} else {
		s.publisher.Publish(updated.TournamentID, events.TypeMatchUpdated, updated)
	}
	return updated, nil
}

func (s *matchService) Moderate(ctx context.Context, caller models.Caller, matchID int, action models.ModerationAction, winnerTeamID *int) (*models.Match, error) {
	if !caller.Role.CanModerate() {
		return nil, ErrUnauthorized
	}

	var updated *models.Match
	var completion *completionResult

	err := s.withRetry(ctx, matchID, func(exec repositories.SQLExecutor, match *models.Match) error {
		completion = nil

		switch action {
		case models.ModerationDispute:
			if match.Status != models.MatchStatusInProgress {
				return ErrInvalidTransition
			}
			match.Status = models.MatchStatusDisputed
			if err := s.matchRepo.Update(ctx, exec, match); err != nil {
				return err
			}

		case models.ModerationReopen:
			if match.Status != models.MatchStatusDisputed {
				return ErrInvalidTransition
			}
			match.Status = models.MatchStatusInProgress
			match.ConfirmedBy.Clear()
			if err := s.matchRepo.Update(ctx, exec, match); err != nil {
				return err
			}

		case models.ModerationVerify:
			winnerSide, decided := match.LeadingSide()
			if !decided {
				return ErrAmbiguousResult
			}
			result, err := s.completeMatch(ctx, exec, match, *match.TeamOnSide(winnerSide), true)
			if err != nil {
				return err
			}
			completion = result

		case models.ModerationForceComplete:
			winner := 0
			if winnerTeamID != nil {
				winner = *winnerTeamID
			} else {
				winnerSide, decided := match.LeadingSide()
				if !decided {
					return ErrAmbiguousResult
				}
				winner = *match.TeamOnSide(winnerSide)
			}
			result, err := s.completeMatch(ctx, exec, match, winner, true)
			if err != nil {
				return err
			}
			completion = result

		default:
			return ErrUnknownModerationAction
		}

		updated = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completion != nil {
		s.announceCompletion(completion)
	} else {
		s.publisher.Publish(updated.TournamentID, events.TypeMatchUpdated, updated)
	}
	return updated, nil
}

// completionResult carries what announceCompletion needs once the
// transaction has committed.
type completionResult struct {
	match          *models.Match
	winnerTeamID   int
	loserTeamID    int
	tournamentDone bool
}

// completeMatch moves the match to its terminal state and applies every
// consequence in the caller's transaction: rating and XP for both teams,
// and the winner's advancement into the downstream bracket slot. Ratings
// are applied here and nowhere else, so a match pays out exactly once.
func (s *matchService) completeMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerTeamID int, verified bool) (*completionResult, error) {
	if !canTransition(match.Status, models.MatchStatusCompleted) {
		return nil, ErrInvalidTransition
	}
	if match.TeamAID == nil || match.TeamBID == nil {
		return nil, ErrMatchTeamsNotSet
	}
	if !match.HasTeam(winnerTeamID) {
		return nil, ErrWinnerNotInMatch
	}

	loserTeamID := *match.TeamAID
	if loserTeamID == winnerTeamID {
		loserTeamID = *match.TeamBID
	}

	// Rating reads go to the pool, not the open transaction: GetOrCreate may
	// insert the baseline row, and a *sql.Tx must not be shared across
	// goroutines anyway. The conditional updates below still catch any
	// concurrent writer.
	var winnerRating, loserRating *models.TeamRating
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		winnerRating, err = s.ratingRepo.GetOrCreate(gCtx, winnerTeamID)
		return err
	})
	g.Go(func() error {
		var err error
		loserRating, err = s.ratingRepo.GetOrCreate(gCtx, loserTeamID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load team ratings: %w", err)
	}

	newWinner, newLoser := ratings.Apply(*winnerRating, *loserRating)
	newWinner.Version = winnerRating.Version
	newLoser.Version = loserRating.Version

	now := time.Now().UTC()
	winner := winnerTeamID
	match.Status = models.MatchStatusCompleted
	match.WinnerTeamID = &winner
	match.CompletedAt = &now
	match.ModeratorVerified = verified

	if err := s.matchRepo.Update(ctx, exec, match); err != nil {
		return nil, err
	}
	if err := s.ratingRepo.Update(ctx, exec, &newWinner); err != nil {
		return nil, err
	}
	if err := s.ratingRepo.Update(ctx, exec, &newLoser); err != nil {
		return nil, err
	}

	result := &completionResult{
		match:        match,
		winnerTeamID: winnerTeamID,
		loserTeamID:  loserTeamID,
	}

	nextRound, nextSlot := brackets.NextSlot(match.Round, match.Slot)
	next, err := s.matchRepo.GetBySlot(ctx, exec, match.TournamentID, nextRound, nextSlot)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			// No downstream slot: this was the final.
			result.tournamentDone = true
			return result, nil
		}
		return nil, err
	}

	if brackets.Advance(next, match.Slot, winnerTeamID) {
		if err := s.matchRepo.Update(ctx, exec, next); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *matchService) announceCompletion(result *completionResult) {
	match := result.match
	s.publisher.Publish(match.TournamentID, events.TypeMatchCompleted, events.MatchCompletedPayload{
		MatchID:      match.ID,
		TournamentID: match.TournamentID,
		WinnerTeamID: result.winnerTeamID,
		LoserTeamID:  result.loserTeamID,
		ScoreA:       match.ScoreA,
		ScoreB:       match.ScoreB,
	})

	if result.tournamentDone {
		s.publisher.Publish(match.TournamentID, events.TypeTournamentCompleted, events.TournamentCompletedPayload{
			TournamentID: match.TournamentID,
			WinnerTeamID: result.winnerTeamID,
		})
	}

	s.logger.Info("match completed",
		slog.Int("match_id", match.ID),
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("winner_team_id", result.winnerTeamID),
		slog.Bool("tournament_done", result.tournamentDone),
	)
}

// withRetry loads the match, runs op inside a transaction, and retries on
// optimistic version conflicts with freshly loaded state. Every attempt
// starts from the stored row, so a retried operation never sees its own
// half-applied changes.
func (s *matchService) withRetry(ctx context.Context, matchID int, op func(exec repositories.SQLExecutor, match *models.Match) error) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		match, err := s.matchRepo.GetByID(ctx, matchID)
		if err != nil {
			return mapMatchRepoError(err)
		}

		err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			return op(exec, match)
		})
		if err == nil {
			return nil
		}
		if isVersionConflict(err) {
			continue
		}
		return mapMatchRepoError(err)
	}
	return ErrConcurrentModification
}

func isVersionConflict(err error) bool {
	return errors.Is(err, repositories.ErrMatchVersionConflict) ||
		errors.Is(err, repositories.ErrTeamRatingVersionConflict)
}

func mapMatchRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTeamRatingNotFound):
		return ErrTeamRatingNotFound
	default:
		return err
	}
}
