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
	ErrEvidenceNotFound     = errors.New("evidence item not found")
	ErrEvidenceMatchInvalid = errors.New("evidence match conflict or invalid")
)

type EvidenceRepository interface {
	Create(ctx context.Context, exec SQLExecutor, item *models.EvidenceItem) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.EvidenceItem, error)
	CountByMatchTeam(ctx context.Context, exec SQLExecutor, matchID, teamID int) (int, error)
}

type postgresEvidenceRepository struct {
	db *sql.DB
}

func NewPostgresEvidenceRepository(db *sql.DB) EvidenceRepository {
	return &postgresEvidenceRepository{db: db}
}

func (r *postgresEvidenceRepository) Create(ctx context.Context, exec SQLExecutor, item *models.EvidenceItem) error {
	query := `
		INSERT INTO match_evidence (match_id, team_id, url, uploader_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, uploaded_at`

	err := exec.QueryRowContext(ctx, query,
		item.MatchID,
		item.TeamID,
		item.URL,
		item.UploaderID,
	).Scan(&item.ID, &item.UploadedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "match_evidence_match_id_fkey", "match_evidence_team_id_fkey":
				return ErrEvidenceMatchInvalid
			}
		}
		return fmt.Errorf("failed to insert evidence for match %d: %w", item.MatchID, err)
	}
	return nil
}

func (r *postgresEvidenceRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.EvidenceItem, error) {
	query := `
		SELECT id, match_id, team_id, url, uploader_id, uploaded_at
		FROM match_evidence
		WHERE match_id = $1
		ORDER BY uploaded_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence for match %d: %w", matchID, err)
	}
	defer rows.Close()

	items := make([]*models.EvidenceItem, 0)
	for rows.Next() {
		item := &models.EvidenceItem{}
		if scanErr := rows.Scan(
			&item.ID,
			&item.MatchID,
			&item.TeamID,
			&item.URL,
			&item.UploaderID,
			&item.UploadedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan evidence row: %w", scanErr)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during evidence rows iteration: %w", err)
	}
	return items, nil
}

func (r *postgresEvidenceRepository) CountByMatchTeam(ctx context.Context, exec SQLExecutor, matchID, teamID int) (int, error) {
	var count int
	err := exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_evidence WHERE match_id = $1 AND team_id = $2`,
		matchID, teamID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evidence for match %d team %d: %w", matchID, teamID, err)
	}
	return count, nil
}
