// Package postgres stores slots in a single PostgreSQL table. Conditional
// updates run as one UPDATE statement over a row-locked candidate, and a
// partial unique index keeps a plate from holding two bookings.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
)

const (
	uniqueViolation = "23505"
	slotColumns     = "slot_id, category, status, occupant_plate, parked_at"
)

type Store struct {
	db Querier
}

func New(db Querier) *Store {
	return &Store{db: db}
}

var _ parking.Store = (*Store)(nil)

func (s *Store) FindOneAndUpdate(ctx context.Context, m parking.Match, mut parking.Mutation) (parking.Slot, error) {
	probe := parking.Slot{ID: 1, Status: mut.Status, Plate: mut.Plate, ParkedAt: mut.ParkedAt}
	if err := probe.Validate(); err != nil {
		return parking.Slot{}, fmt.Errorf("invalid mutation: %w", err)
	}

	where, matchArgs := buildWhere(m, "", 3)
	recheck, _ := buildWhere(m, "s.", 3)
	args := append([]any{string(mut.Status), nullString(mut.Plate), mut.ParkedAt}, matchArgs...)

	sql := `
		WITH target AS (
			SELECT slot_id FROM parking_slots` + where + `
			ORDER BY slot_id
			LIMIT 1
			FOR UPDATE
		)
		UPDATE parking_slots s
		SET status = $1, occupant_plate = $2, parked_at = $3
		FROM target
		WHERE s.slot_id = target.slot_id` + andClause(recheck) + `
		RETURNING s.slot_id, s.category, s.status, s.occupant_plate, s.parked_at`

	slot, err := scanSlot(s.db.QueryRow(ctx, sql, args...))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return parking.Slot{}, parking.ErrNoMatch
	case isBookedPlateViolation(err):
		return parking.Slot{}, parking.ErrDuplicateBooking
	case err != nil:
		return parking.Slot{}, err
	}
	return slot, nil
}

func (s *Store) FindOne(ctx context.Context, m parking.Match) (parking.Slot, error) {
	where, args := buildWhere(m, "", 0)
	slot, err := scanSlot(s.db.QueryRow(ctx,
		`SELECT `+slotColumns+` FROM parking_slots`+where+` ORDER BY slot_id LIMIT 1`, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return parking.Slot{}, parking.ErrNoMatch
	}
	return slot, err
}

func (s *Store) Find(ctx context.Context, m parking.Match) ([]parking.Slot, error) {
	where, args := buildWhere(m, "", 0)
	rows, err := s.db.Query(ctx,
		`SELECT `+slotColumns+` FROM parking_slots`+where+` ORDER BY slot_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []parking.Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *Store) InsertMany(ctx context.Context, slots []parking.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, slot := range slots {
		if err := slot.Validate(); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		batch.Queue(`
			INSERT INTO parking_slots (`+slotColumns+`)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (slot_id) DO NOTHING`,
			slot.ID, slot.Category, string(slot.Status), nullString(slot.Plate), slot.ParkedAt)
	}

	err := s.db.SendBatch(ctx, batch).Close()
	if isBookedPlateViolation(err) {
		return parking.ErrDuplicateBooking
	}
	return err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM parking_slots`).Scan(&n)
	return n, err
}

// buildWhere renders m as a WHERE clause whose placeholders are numbered
// after the first offset arguments, and returns the arguments it binds.
func buildWhere(m parking.Match, prefix string, offset int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, value any) {
		args = append(args, value)
		conds = append(conds, prefix+fmt.Sprintf(format, offset+len(args)))
	}

	if m.SlotID != 0 {
		add("slot_id = $%d", m.SlotID)
	}
	if m.Status != "" {
		add("status = $%d", string(m.Status))
	}
	if m.Plate != "" {
		add("occupant_plate = $%d", m.Plate)
	}
	if len(m.Plates) > 0 {
		add("occupant_plate = ANY($%d)", m.Plates)
	}
	if m.ParkedAt != nil {
		add("parked_at = $%d", *m.ParkedAt)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func andClause(where string) string {
	return strings.Replace(where, " WHERE ", " AND ", 1)
}

func scanSlot(row pgx.Row) (parking.Slot, error) {
	var (
		slot     parking.Slot
		status   string
		plate    *string
		parkedAt *time.Time
	)
	if err := row.Scan(&slot.ID, &slot.Category, &status, &plate, &parkedAt); err != nil {
		return parking.Slot{}, err
	}

	st, err := parking.ParseStatus(status)
	if err != nil {
		return parking.Slot{}, err
	}
	slot.Status = st
	if plate != nil {
		slot.Plate = *plate
	}
	slot.ParkedAt = parkedAt
	return slot, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isBookedPlateViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == bookedPlateIndex
}
