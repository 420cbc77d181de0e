package parking

import (
	"context"
	"errors"
	"fmt"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
)

type AutoParkOutcome string

const (
	AutoParkNoPlate      AutoParkOutcome = "no_plate"
	AutoParkNoBooking    AutoParkOutcome = "no_matching_booking"
	AutoParkParked       AutoParkOutcome = "parked"
	AutoParkFailed       AutoParkOutcome = "failed"
	AutoParkLookupFailed AutoParkOutcome = "lookup_failed"
)

// AutoParkResult describes what a recognition event did. It is reported next
// to the recognition output and never replaces it.
type AutoParkResult struct {
	Plate      string          `json:"plate"`
	Outcome    AutoParkOutcome `json:"outcome"`
	AutoParked bool            `json:"auto_parked"`
	SlotID     int             `json:"slot_id,omitempty"`
	Slot       *Slot           `json:"slot,omitempty"`
	Message    string          `json:"message"`
}

// Parker is the transition the coordinator drives.
type Parker interface {
	Park(ctx context.Context, slotID int, plate string) (Slot, error)
}

// AutoParker parks the booked slot of a recognized plate. It goes through
// Parker for the transition itself, so it races manual parking on equal terms.
type AutoParker struct {
	store  Store
	parker Parker
}

func NewAutoParker(store Store, parker Parker) *AutoParker {
	return &AutoParker{store: store, parker: parker}
}

// AutoParkFromRecognition never returns an error: every failure becomes the
// result's message.
func (a *AutoParker) AutoParkFromRecognition(ctx context.Context, recognizedPlate string) AutoParkResult {
	plate := NormalizePlate(recognizedPlate)
	result := AutoParkResult{Plate: plate}

	if plate == "" {
		result.Outcome = AutoParkNoPlate
		result.Message = "no plate recognized"
		return result
	}

	booked, err := a.store.FindOne(ctx, Match{Status: StatusBooked, Plate: plate})
	switch {
	case errors.Is(err, ErrNoMatch):
		result.Outcome = AutoParkNoBooking
		result.Message = fmt.Sprintf("no matching booking for %s", plate)
		return result
	case err != nil:
		logging.Warn(ctx, "auto-park lookup failed", "plate", plate, "error", err)
		result.Outcome = AutoParkLookupFailed
		result.Message = fmt.Sprintf("auto-park lookup failed: %v", storeError("auto-park", err))
		return result
	}

	result.SlotID = booked.ID
	slot, err := a.parker.Park(ctx, booked.ID, plate)
	if err != nil {
		logging.Warn(ctx, "auto-park failed", "plate", plate, "slot_id", booked.ID, "error", err)
		result.Outcome = AutoParkFailed
		result.Message = fmt.Sprintf("auto-park failed: %v", err)
		return result
	}

	result.Outcome = AutoParkParked
	result.AutoParked = true
	result.Slot = &slot
	result.Message = fmt.Sprintf("auto-parked %s in slot %d", plate, slot.ID)
	return result
}
