package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esport-core/models"
	"github.com/Dosada05/esport-core/ratings"
	"github.com/lib/pq"
)

var (
	ErrTeamRatingNotFound = errors.New("team rating not found")

	// ErrTeamRatingVersionConflict signals a lost-update race on the same
	// team record; the caller retries against fresh state.
	ErrTeamRatingVersionConflict = errors.New("team rating was modified concurrently")
)

type TeamRatingRepository interface {
	// GetOrCreate returns the team's record, inserting the baseline row on
	// first contact (original teams start at 1000 rating, level 1).
	GetOrCreate(ctx context.Context, teamID int) (*models.TeamRating, error)
	GetByTeam(ctx context.Context, teamID int) (*models.TeamRating, error)
	List(ctx context.Context) ([]*models.TeamRating, error)
	// Update is conditional on rating.Version, same discipline as matches.
	Update(ctx context.Context, exec SQLExecutor, rating *models.TeamRating) error
}

type postgresTeamRatingRepository struct {
	db *sql.DB
}

func NewPostgresTeamRatingRepository(db *sql.DB) TeamRatingRepository {
	return &postgresTeamRatingRepository{db: db}
}

const teamRatingColumns = `team_id, rating, xp, level, wins, losses, recent_results, updated_at, version`

func (r *postgresTeamRatingRepository) GetOrCreate(ctx context.Context, teamID int) (*models.TeamRating, error) {
	record, err := r.GetByTeam(ctx, teamID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrTeamRatingNotFound) {
		return nil, err
	}

	baseline := ratings.NewTeamRating(teamID)
	query := `
		INSERT INTO team_ratings (team_id, rating, xp, level, wins, losses, recent_results)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (team_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query,
		baseline.TeamID,
		baseline.Rating,
		baseline.XP,
		baseline.Level,
		baseline.Wins,
		baseline.Losses,
		pq.Array(resultsToStrings(baseline.RecentResults)),
	); err != nil {
		return nil, fmt.Errorf("failed to insert baseline rating for team %d: %w", teamID, err)
	}

	// Re-read so a concurrent insert still yields the stored row and version.
	return r.GetByTeam(ctx, teamID)
}

func (r *postgresTeamRatingRepository) GetByTeam(ctx context.Context, teamID int) (*models.TeamRating, error) {
	query := `SELECT ` + teamRatingColumns + ` FROM team_ratings WHERE team_id = $1`
	return scanTeamRating(r.db.QueryRowContext(ctx, query, teamID))
}

func (r *postgresTeamRatingRepository) List(ctx context.Context) ([]*models.TeamRating, error) {
	query := `SELECT ` + teamRatingColumns + ` FROM team_ratings ORDER BY rating DESC, team_id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query team ratings: %w", err)
	}
	defer rows.Close()

	records := make([]*models.TeamRating, 0)
	for rows.Next() {
		record := &models.TeamRating{}
		var recent pq.StringArray
		if scanErr := rows.Scan(
			&record.TeamID,
			&record.Rating,
			&record.XP,
			&record.Level,
			&record.Wins,
			&record.Losses,
			&recent,
			&record.UpdatedAt,
			&record.Version,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team rating row: %w", scanErr)
		}
		record.RecentResults = resultsFromStrings(recent)
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rating rows iteration: %w", err)
	}
	return records, nil
}

func (r *postgresTeamRatingRepository) Update(ctx context.Context, exec SQLExecutor, rating *models.TeamRating) error {
	query := `
		UPDATE team_ratings
		SET rating = $1, xp = $2, level = $3, wins = $4, losses = $5,
		    recent_results = $6, updated_at = NOW(), version = version + 1
		WHERE team_id = $7 AND version = $8`

	result, err := exec.ExecContext(ctx, query,
		rating.Rating,
		rating.XP,
		rating.Level,
		rating.Wins,
		rating.Losses,
		pq.Array(resultsToStrings(rating.RecentResults)),
		rating.TeamID,
		rating.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating for team %d: %w", rating.TeamID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if checkErr := exec.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM team_ratings WHERE team_id = $1)`, rating.TeamID,
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("failed to check team rating %d existence: %w", rating.TeamID, checkErr)
		}
		if !exists {
			return ErrTeamRatingNotFound
		}
		return ErrTeamRatingVersionConflict
	}

	rating.Version++
	return nil
}

func scanTeamRating(row *sql.Row) (*models.TeamRating, error) {
	record := &models.TeamRating{}
	var recent pq.StringArray
	err := row.Scan(
		&record.TeamID,
		&record.Rating,
		&record.XP,
		&record.Level,
		&record.Wins,
		&record.Losses,
		&recent,
		&record.UpdatedAt,
		&record.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamRatingNotFound
		}
		return nil, fmt.Errorf("failed to scan team rating: %w", err)
	}
	record.RecentResults = resultsFromStrings(recent)
	return record, nil
}

func resultsToStrings(results []models.MatchResult) []string {
	out := make([]string, len(results))
	for i, result := range results {
		out[i] = string(result)
	}
	return out
}

func resultsFromStrings(raw []string) []models.MatchResult {
	out := make([]models.MatchResult, len(raw))
	for i, result := range raw {
		out[i] = models.MatchResult(result)
	}
	return out
}
