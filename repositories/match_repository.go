package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esport-core/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchVersionConflict means the row changed between read and write.
	// Callers reload the match and retry the whole operation.
	ErrMatchVersionConflict = errors.New("match was modified concurrently")

	ErrMatchTeamInvalid = errors.New("match team conflict or invalid")
)

type MatchRepository interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// GetBySlot finds the match occupying a bracket coordinate, used to
	// locate the downstream slot a winner advances into.
	GetBySlot(ctx context.Context, exec SQLExecutor, tournamentID, round, slot int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// Update persists every mutable field. The write is conditional on
	// match.Version; on success the in-memory version is bumped to match
	// the stored row.
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, round, slot, team_a_id, team_b_id, score_a, score_b,
	status, confirmed_by, moderator_verified, winner_team_id, completed_at,
	created_at, version`

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM bracket_matches WHERE id = $1`
	return r.scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetBySlot(ctx context.Context, exec SQLExecutor, tournamentID, round, slot int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM bracket_matches WHERE tournament_id = $1 AND round = $2 AND slot = $3`
	return r.scanMatch(exec.QueryRowContext(ctx, query, tournamentID, round, slot))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM bracket_matches WHERE tournament_id = $1 ORDER BY round ASC, slot ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatchRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE bracket_matches
		SET team_a_id = $1, team_b_id = $2, score_a = $3, score_b = $4,
		    status = $5, confirmed_by = $6, moderator_verified = $7,
		    winner_team_id = $8, completed_at = $9, version = version + 1
		WHERE id = $10 AND version = $11`

	result, err := exec.ExecContext(ctx, query,
		match.TeamAID,
		match.TeamBID,
		match.ScoreA,
		match.ScoreB,
		match.Status,
		pq.Array(confirmationsToStrings(match.ConfirmedBy)),
		match.ModeratorVerified,
		match.WinnerTeamID,
		match.CompletedAt,
		match.ID,
		match.Version,
	)
	if err != nil {
		return r.handleMatchError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a stale version from a missing row.
		var exists bool
		if checkErr := exec.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM bracket_matches WHERE id = $1)`, match.ID,
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("failed to check match %d existence: %w", match.ID, checkErr)
		}
		if !exists {
			return ErrMatchNotFound
		}
		return ErrMatchVersionConflict
	}

	match.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresMatchRepository) scanMatch(row *sql.Row) (*models.Match, error) {
	match, err := r.scanMatchRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) scanMatchRow(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	var confirmed pq.StringArray
	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.Round,
		&match.Slot,
		&match.TeamAID,
		&match.TeamBID,
		&match.ScoreA,
		&match.ScoreB,
		&match.Status,
		&confirmed,
		&match.ModeratorVerified,
		&match.WinnerTeamID,
		&match.CompletedAt,
		&match.CreatedAt,
		&match.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan match row: %w", err)
	}
	match.ConfirmedBy = confirmationsFromStrings(confirmed)
	return match, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "bracket_matches_team_a_id_fkey", "bracket_matches_team_b_id_fkey", "bracket_matches_winner_team_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return err
}

func confirmationsToStrings(set models.ConfirmationSet) []string {
	out := make([]string, len(set))
	for i, side := range set {
		out[i] = string(side)
	}
	return out
}

func confirmationsFromStrings(raw []string) models.ConfirmationSet {
	out := make(models.ConfirmationSet, len(raw))
	for i, side := range raw {
		out[i] = models.Side(side)
	}
	return out
}
