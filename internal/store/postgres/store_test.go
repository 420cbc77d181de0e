package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
)

func TestBuildWhere(t *testing.T) {
	parkedAt := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		match    parking.Match
		prefix   string
		offset   int
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "empty",
			match:   parking.Match{},
			wantSQL: "",
		},
		{
			name:     "slot and status",
			match:    parking.Match{SlotID: 4, Status: parking.StatusFree},
			wantSQL:  " WHERE slot_id = $1 AND status = $2",
			wantArgs: []any{4, "free"},
		},
		{
			name:     "offset and prefix",
			match:    parking.Match{SlotID: 4, Status: parking.StatusParked, Plate: "ABC123", ParkedAt: &parkedAt},
			prefix:   "s.",
			offset:   3,
			wantSQL:  " WHERE s.slot_id = $4 AND s.status = $5 AND s.occupant_plate = $6 AND s.parked_at = $7",
			wantArgs: []any{4, "parked", "ABC123", parkedAt},
		},
		{
			name:     "plate list",
			match:    parking.Match{Status: parking.StatusParked, Plates: []string{"A", "B"}},
			wantSQL:  " WHERE status = $1 AND occupant_plate = ANY($2)",
			wantArgs: []any{"parked", []string{"A", "B"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildWhere(tt.match, tt.prefix, tt.offset)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestAndClause(t *testing.T) {
	assert.Equal(t, " AND s.slot_id = $4", andClause(" WHERE s.slot_id = $4"))
	assert.Equal(t, "", andClause(""))
}

func TestIsBookedPlateViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: bookedPlateIndex}
	pk := &pgconn.PgError{Code: "23505", ConstraintName: "parking_slots_pkey"}

	assert.True(t, isBookedPlateViolation(dup))
	assert.True(t, isBookedPlateViolation(errors.Join(errors.New("batch"), dup)))
	assert.False(t, isBookedPlateViolation(pk))
	assert.False(t, isBookedPlateViolation(nil))
}

func TestFindOneAndUpdateRejectsInconsistentMutation(t *testing.T) {
	s := New(nil)

	_, err := s.FindOneAndUpdate(context.Background(), parking.Match{SlotID: 1},
		parking.Mutation{Status: parking.StatusParked, Plate: "ABC123"})
	assert.Error(t, err)
}

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("PARKING_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PARKING_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE parking_slots`)
	require.NoError(t, err)
	return New(pool)
}

func TestPostgresLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	m := parking.NewManager(store, parking.WithClock(func() time.Time { return clock }))

	created, err := m.InitPool(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, created)

	created, err = m.InitPool(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, created)

	_, err = m.Book(ctx, 41, "abc123", "cars")
	require.NoError(t, err)

	_, err = m.Book(ctx, 42, "ABC123", "cars")
	assert.ErrorIs(t, err, parking.ErrPlateAlreadyBooked)

	parked, err := m.Park(ctx, 41, "ABC123")
	require.NoError(t, err)
	require.NotNil(t, parked.ParkedAt)

	clock = clock.Add(90 * time.Minute)
	fee, err := m.Clear(ctx, 41, "ABC123", 10)
	require.NoError(t, err)
	assert.Equal(t, 15.0, fee.Fee)

	slots, err := m.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 100)
	for _, s := range slots {
		require.NoError(t, s.Validate())
	}
}

func TestPostgresBookedPlateIndex(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	require.NoError(t, store.InsertMany(ctx, []parking.Slot{parking.NewSlot(1, "cars"), parking.NewSlot(2, "cars")}))

	_, err := store.FindOneAndUpdate(ctx, parking.Match{SlotID: 1, Status: parking.StatusFree},
		parking.Mutation{Status: parking.StatusBooked, Plate: "ABC123"})
	require.NoError(t, err)

	_, err = store.FindOneAndUpdate(ctx, parking.Match{SlotID: 2, Status: parking.StatusFree},
		parking.Mutation{Status: parking.StatusBooked, Plate: "ABC123"})
	assert.ErrorIs(t, err, parking.ErrDuplicateBooking)

	_, err = store.FindOneAndUpdate(ctx, parking.Match{SlotID: 1, Status: parking.StatusFree},
		parking.Mutation{Status: parking.StatusBooked, Plate: "XYZ999"})
	assert.ErrorIs(t, err, parking.ErrNoMatch)
}

func TestPostgresConcurrentBooking(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	require.NoError(t, store.InsertMany(ctx, []parking.Slot{parking.NewSlot(1, "cars")}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, plate := range []string{"A1", "B2", "C3", "D4", "E5", "F6"} {
		wg.Add(1)
		go func(plate string) {
			defer wg.Done()
			_, err := store.FindOneAndUpdate(ctx, parking.Match{SlotID: 1, Status: parking.StatusFree},
				parking.Mutation{Status: parking.StatusBooked, Plate: plate})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(plate)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
