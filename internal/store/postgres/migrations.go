package postgres

import (
	"context"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
)

const bookedPlateIndex = "parking_slots_booked_plate"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS parking_slots (
		slot_id INTEGER PRIMARY KEY CHECK (slot_id > 0),
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('free', 'booked', 'parked')),
		occupant_plate TEXT,
		parked_at TIMESTAMP WITH TIME ZONE,
		CHECK ((status = 'free') = (occupant_plate IS NULL)),
		CHECK ((status = 'parked') = (parked_at IS NOT NULL))
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS ` + bookedPlateIndex + `
		ON parking_slots (occupant_plate) WHERE status = 'booked'`,

	`CREATE INDEX IF NOT EXISTS parking_slots_status ON parking_slots (status)`,
}

func Migrate(ctx context.Context, db Querier) error {
	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			logging.Error(ctx, "migration failed", "index", i, "error", err)
			return err
		}
	}
	logging.Info(ctx, "migrations completed", "count", len(migrations))
	return nil
}
