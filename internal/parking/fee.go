package parking

import (
	"math"
	"time"
)

const DefaultRatePerHour = 10.0

// FeeRecord is the bill produced by clearing a slot. It is not persisted.
type FeeRecord struct {
	SlotID        int       `json:"slot_id"`
	Plate         string    `json:"plate"`
	ParkedAt      time.Time `json:"parked_at"`
	ClearedAt     time.Time `json:"cleared_at"`
	DurationHours float64   `json:"duration_hours"`
	RatePerHour   float64   `json:"rate_per_hour"`
	Fee           float64   `json:"fee"`
}

// ComputeFee returns the unrounded parked duration in hours and the fee
// rounded to cents. A clear time before the park time counts as zero.
func ComputeFee(parkedAt, clearedAt time.Time, ratePerHour float64) (hours, fee float64) {
	elapsed := clearedAt.Sub(parkedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	hours = elapsed.Seconds() / 3600
	fee = math.Round(hours*ratePerHour*100) / 100
	return hours, fee
}

func newFeeRecord(slot Slot, clearedAt time.Time, ratePerHour float64) FeeRecord {
	parkedAt := *slot.ParkedAt
	hours, fee := ComputeFee(parkedAt, clearedAt, ratePerHour)
	return FeeRecord{
		SlotID:        slot.ID,
		Plate:         slot.Plate,
		ParkedAt:      parkedAt,
		ClearedAt:     clearedAt,
		DurationHours: hours,
		RatePerHour:   ratePerHour,
		Fee:           fee,
	}
}
