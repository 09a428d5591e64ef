package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/esport-core/models"
	"github.com/Dosada05/esport-core/repositories"
	"github.com/Dosada05/esport-core/storage"
)

// DefaultEvidenceLimit caps screenshots per (match, team) pair.
const DefaultEvidenceLimit = 5

type EvidenceService interface {
	// Attach uploads a screenshot and registers it against the match for
	// the caller's team. The caller must captain teamID on this match.
	Attach(ctx context.Context, caller models.Caller, matchID, teamID int, file io.Reader, contentType string) (*models.EvidenceItem, error)

	// List returns every evidence item of a match, oldest first.
	// Read access is unrestricted.
	List(ctx context.Context, matchID int) ([]*models.EvidenceItem, error)
}

type evidenceService struct {
	tx           repositories.TxManager
	matchRepo    repositories.MatchRepository
	evidenceRepo repositories.EvidenceRepository
	uploader     storage.FileUploader
	limit        int
	logger       *slog.Logger
}

func NewEvidenceService(
	tx repositories.TxManager,
	matchRepo repositories.MatchRepository,
	evidenceRepo repositories.EvidenceRepository,
	uploader storage.FileUploader,
	limit int,
	logger *slog.Logger,
) EvidenceService {
	if limit <= 0 {
		limit = DefaultEvidenceLimit
	}
	return &evidenceService{
		tx:           tx,
		matchRepo:    matchRepo,
		evidenceRepo: evidenceRepo,
		uploader:     uploader,
		limit:        limit,
		logger:       logger,
	}
}

func (s *evidenceService) Attach(ctx context.Context, caller models.Caller, matchID, teamID int, file io.Reader, contentType string) (*models.EvidenceItem, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrEvidenceNotImage
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if !match.HasTeam(teamID) || !caller.IsCaptainOf(teamID) {
		return nil, ErrUnauthorized
	}

	key := evidenceKey(matchID, teamID, contentType)
	uploadResult, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload evidence for match %d: %w", matchID, err)
	}

	item := &models.EvidenceItem{
		MatchID:    matchID,
		TeamID:     teamID,
		URL:        s.uploader.GetPublicURL(uploadResult.Key),
		UploaderID: caller.UserID,
	}

	// Count and insert in one transaction so the cap holds under
	// concurrent uploads for the same pair.
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		count, countErr := s.evidenceRepo.CountByMatchTeam(ctx, exec, matchID, teamID)
		if countErr != nil {
			return countErr
		}
		if count >= s.limit {
			return ErrEvidenceLimitExceeded
		}
		return s.evidenceRepo.Create(ctx, exec, item)
	})
	if err != nil {
		// The registration failed after the blob landed; drop the orphan.
		if errors.Is(err, ErrEvidenceLimitExceeded) {
			if delErr := s.uploader.Delete(ctx, uploadResult.Key); delErr != nil {
				s.logger.Warn("failed to delete orphaned evidence upload",
					slog.String("key", uploadResult.Key),
					slog.Any("error", delErr),
				)
			}
		}
		return nil, err
	}

	s.logger.Info("evidence attached",
		slog.Int("match_id", matchID),
		slog.Int("team_id", teamID),
		slog.Int("uploader_id", caller.UserID),
	)
	return item, nil
}

func (s *evidenceService) List(ctx context.Context, matchID int) ([]*models.EvidenceItem, error) {
	if _, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		return nil, mapMatchRepoError(err)
	}
	items, err := s.evidenceRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence for match %d: %w", matchID, err)
	}
	return items, nil
}

func evidenceKey(matchID, teamID int, contentType string) string {
	ext := ".png"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	return fmt.Sprintf("evidence/match_%d/team_%d/%d%s", matchID, teamID, time.Now().UnixNano(), ext)
}
