package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Club is an aeroclub operating base. Coordinates and the night-flight
// flag drive operating-window computation; both are optional per club.
type Club struct {
	bun.BaseModel `bun:"table:clubs"`

	ID                  uuid.UUID `bun:"id,pk,type:uuid"`
	Name                string    `bun:"name,notnull"`
	Latitude            *float64  `bun:"latitude"`
	Longitude           *float64  `bun:"longitude"`
	Timezone            string    `bun:"timezone,notnull"`
	NightFlightsEnabled bool      `bun:"night_flights_enabled,notnull"`
	CreatedAt           time.Time `bun:"created_at,notnull"`
	UpdatedAt           time.Time `bun:"updated_at,notnull"`
}

func (c *Club) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			c.ID = id
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}

// Coordinates returns the club's home field position, or nil when
// either coordinate is unset.
func (c Club) Coordinates() *Coordinates {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

// Aircraft is a schedulable club aircraft.
type Aircraft struct {
	bun.BaseModel `bun:"table:aircraft"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	ClubID       uuid.UUID `bun:"club_id,notnull,type:uuid"`
	Registration string    `bun:"registration,notnull"`
	Model        string    `bun:"model"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func (a *Aircraft) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
