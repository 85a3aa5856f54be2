package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"aeroclub/backend/internal/domain"
	"aeroclub/backend/internal/store"
)

type ClubRepo struct {
	db *bun.DB
}

func NewClubRepo(db *bun.DB) *ClubRepo {
	return &ClubRepo{db: db}
}

func (r *ClubRepo) GetClub(ctx context.Context, clubID uuid.UUID) (domain.Club, error) {
	var club domain.Club
	err := r.db.NewSelect().
		Model(&club).
		Where("id = ?", clubID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Club{}, store.ErrNotFound
		}
		return domain.Club{}, err
	}
	return club, nil
}

// GetCoordinates returns (nil, nil) when the club has no stored
// position or the stored position is out of geographic range, so the
// engine falls back to fixed operating bounds.
func (r *ClubRepo) GetCoordinates(ctx context.Context, clubID uuid.UUID) (*domain.Coordinates, error) {
	club, err := r.GetClub(ctx, clubID)
	if err != nil {
		return nil, err
	}
	coords := club.Coordinates()
	if coords == nil || !coords.Valid() {
		return nil, nil
	}
	return coords, nil
}

func (r *ClubRepo) GetNightFlightsEnabled(ctx context.Context, clubID uuid.UUID) (bool, error) {
	club, err := r.GetClub(ctx, clubID)
	if err != nil {
		return false, err
	}
	return club.NightFlightsEnabled, nil
}
