package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"aeroclub/backend/internal/domain"
	"aeroclub/backend/internal/store"
)

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

type schedulingTx struct {
	tx bun.Tx
}

func (r *SchedulingRepo) ListAvailabilityEntries(ctx context.Context, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]domain.AvailabilityEntry, error) {
	return selectAvailabilityEntries(ctx, r.db.NewSelect(), filter, windowStart, windowEnd)
}

func (r *SchedulingRepo) ListReservations(ctx context.Context, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	return selectReservations(ctx, r.db.NewSelect(), filter, windowStart, windowEnd)
}

func (r *SchedulingRepo) CreateAvailabilityEntry(ctx context.Context, entry domain.AvailabilityEntry) (domain.AvailabilityEntry, error) {
	var out domain.AvailabilityEntry
	err := r.InAircraftTransaction(ctx, lockKeyForEntry(entry), func(ctx context.Context, tx store.SchedulingTx) error {
		e, err := tx.CreateAvailabilityEntry(ctx, entry)
		if err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return domain.AvailabilityEntry{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) DeleteAvailabilityEntry(ctx context.Context, clubID, entryID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.AvailabilityEntry)(nil)).
		Where("club_id = ?", clubID).
		Where("id = ?", entryID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SchedulingRepo) CreateReservation(ctx context.Context, reservation domain.Reservation) (domain.Reservation, error) {
	var out domain.Reservation
	err := r.InAircraftTransaction(ctx, reservation.AircraftID.String(), func(ctx context.Context, tx store.SchedulingTx) error {
		res, err := tx.CreateReservation(ctx, reservation)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return out, nil
}

func (r *SchedulingRepo) CancelReservation(ctx context.Context, clubID, reservationID uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Reservation)(nil)).
		Set("status = ?", domain.ReservationStatusCancelled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("club_id = ?", clubID).
		Where("id = ?", reservationID).
		Where("status = ?", domain.ReservationStatusConfirmed).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InAircraftTransaction serializes writers touching the same aircraft
// calendar with a transaction-scoped advisory lock, so the advisory
// conflict pre-check and the insert observe a stable snapshot.
func (r *SchedulingRepo) InAircraftTransaction(ctx context.Context, lockKey string, fn func(ctx context.Context, tx store.SchedulingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockAircraftCalendar(ctx, tx, lockKey); err != nil {
			return err
		}
		return fn(ctx, schedulingTx{tx: tx})
	})
}

func lockAircraftCalendar(ctx context.Context, tx bun.Tx, lockKey string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Exec(ctx)
	return err
}

func lockKeyForEntry(entry domain.AvailabilityEntry) string {
	if entry.AircraftID != nil {
		return entry.AircraftID.String()
	}
	if entry.UserID != nil {
		return *entry.UserID
	}
	return entry.ClubID.String()
}

func (t schedulingTx) CreateReservation(ctx context.Context, reservation domain.Reservation) (domain.Reservation, error) {
	m := reservation
	if m.Status == "" {
		m.Status = domain.ReservationStatusConfirmed
	}

	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if mapped := mapReservationInsertError(pgErr); mapped != nil {
				if errors.Is(mapped, store.ErrIdempotencyConflict) {
					return t.resolveIdempotentReplay(ctx, reservation, err)
				}
				return domain.Reservation{}, mapped
			}
		}
		return domain.Reservation{}, err
	}

	return m, nil
}

// mapReservationInsertError translates Postgres constraint failures
// into store sentinels. The exclusion constraint is the authoritative
// double-booking signal; the advisory pre-check is only advisory.
func mapReservationInsertError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case "23P01":
		if pgErr.ConstraintName == "reservations_no_overlap" || pgErr.ConstraintName == "reservations_no_instructor_overlap" {
			return store.ErrConflict
		}
		return nil
	case "23505":
		return store.ErrIdempotencyConflict
	case "23503":
		return store.ErrNotFound
	}
	return nil
}

// resolveIdempotentReplay handles a duplicate-key insert: an identical
// replay returns the original row, a divergent payload is an
// idempotency conflict.
func (t schedulingTx) resolveIdempotentReplay(ctx context.Context, reservation domain.Reservation, insertErr error) (domain.Reservation, error) {
	var existing domain.Reservation
	err := t.tx.NewSelect().
		Model(&existing).
		Where("id = ?", reservation.ID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Reservation{}, insertErr
	}

	if existing.AircraftID != reservation.AircraftID ||
		existing.PilotID != reservation.PilotID ||
		!equalStringPtr(existing.InstructorID, reservation.InstructorID) ||
		!existing.StartTime.Equal(reservation.StartTime) ||
		!existing.EndTime.Equal(reservation.EndTime) {
		return domain.Reservation{}, store.ErrIdempotencyConflict
	}

	return existing, nil
}

func (t schedulingTx) ListReservations(ctx context.Context, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	return selectReservations(ctx, t.tx.NewSelect(), filter, windowStart, windowEnd)
}

func selectReservations(ctx context.Context, q *bun.SelectQuery, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	q = q.Model(&rows).
		Where("club_id = ?", filter.ClubID).
		Where("status = ?", domain.ReservationStatusConfirmed).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart)
	q = applyReservationAxisFilter(q, filter)
	if err := q.OrderExpr("start_time ASC, id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t schedulingTx) ListAvailabilityEntries(ctx context.Context, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]domain.AvailabilityEntry, error) {
	return selectAvailabilityEntries(ctx, t.tx.NewSelect(), filter, windowStart, windowEnd)
}

func selectAvailabilityEntries(ctx context.Context, q *bun.SelectQuery, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]domain.AvailabilityEntry, error) {
	var rows []domain.AvailabilityEntry
	q = q.Model(&rows).Where("club_id = ?", filter.ClubID)
	q = applyEntryAxisFilter(q, filter)
	q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("NOT is_recurring").
					Where("start_time < ?", windowEnd).
					Where("end_time > ?", windowStart)
			}).
			WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("is_recurring").
					Where("start_time < ?", windowEnd).
					WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
						return q.Where("recurrence_end_date IS NULL").
							WhereOr("recurrence_end_date >= ?", windowStart)
					})
			})
	})
	if err := q.OrderExpr("start_time ASC, id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t schedulingTx) CancelReservation(ctx context.Context, clubID, reservationID uuid.UUID) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Reservation)(nil)).
		Set("status = ?", domain.ReservationStatusCancelled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("club_id = ?", clubID).
		Where("id = ?", reservationID).
		Where("status = ?", domain.ReservationStatusConfirmed).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t schedulingTx) CreateAvailabilityEntry(ctx context.Context, entry domain.AvailabilityEntry) (domain.AvailabilityEntry, error) {
	m := entry
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return domain.AvailabilityEntry{}, store.ErrNotFound
			case "23514":
				return domain.AvailabilityEntry{}, store.ErrConflict
			}
		}
		return domain.AvailabilityEntry{}, err
	}
	return m, nil
}

func (t schedulingTx) DeleteAvailabilityEntry(ctx context.Context, clubID, entryID uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.AvailabilityEntry)(nil)).
		Where("club_id = ?", clubID).
		Where("id = ?", entryID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Entries may target a person, an aircraft or both; a filter naming
// both axes matches entries touching either one.
func applyEntryAxisFilter(q *bun.SelectQuery, filter store.ResourceFilter) *bun.SelectQuery {
	switch {
	case filter.AircraftID != nil && filter.UserID != nil:
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("aircraft_id = ?", *filter.AircraftID).
				WhereOr("user_id = ?", *filter.UserID)
		})
	case filter.AircraftID != nil:
		return q.Where("aircraft_id = ?", *filter.AircraftID)
	case filter.UserID != nil:
		return q.Where("user_id = ?", *filter.UserID)
	}
	return q
}

func applyReservationAxisFilter(q *bun.SelectQuery, filter store.ResourceFilter) *bun.SelectQuery {
	switch {
	case filter.AircraftID != nil && filter.UserID != nil:
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("aircraft_id = ?", *filter.AircraftID).
				WhereOr("instructor_id = ?", *filter.UserID)
		})
	case filter.AircraftID != nil:
		return q.Where("aircraft_id = ?", *filter.AircraftID)
	case filter.UserID != nil:
		return q.Where("instructor_id = ?", *filter.UserID)
	}
	return q
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
