package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/esport-core/models"
	"github.com/Dosada05/esport-core/repositories"
)

// RatingService is read-only: rating records are only ever written as a side
// effect of match completion.
type RatingService interface {
	GetTeamRating(ctx context.Context, teamID int) (*models.TeamRating, error)
	ListTeamRatings(ctx context.Context) ([]*models.TeamRating, error)
}

type ratingService struct {
	ratingRepo repositories.TeamRatingRepository
}

func NewRatingService(ratingRepo repositories.TeamRatingRepository) RatingService {
	return &ratingService{ratingRepo: ratingRepo}
}

func (s *ratingService) GetTeamRating(ctx context.Context, teamID int) (*models.TeamRating, error) {
	record, err := s.ratingRepo.GetByTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamRatingNotFound) {
			return nil, ErrTeamRatingNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *ratingService) ListTeamRatings(ctx context.Context) ([]*models.TeamRating, error) {
	records, err := s.ratingRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list team ratings: %w", err)
	}
	return records, nil
}
