package parking

import (
	"errors"
	"fmt"
)

// Caller-visible failure kinds. Operations wrap them with context, so match
// with errors.Is.
var (
	ErrSlotUnavailable       = errors.New("slot unavailable")
	ErrPlateAlreadyBooked    = errors.New("plate already holds a booking")
	ErrSlotNotBookedForPlate = errors.New("slot not booked for plate")
	ErrSlotNotParked         = errors.New("slot not parked")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrSlotOutOfRange        = errors.New("slot out of category range")
	ErrInvalidPlate          = errors.New("invalid plate")
	ErrInvalidPoolSize       = errors.New("invalid pool size")

	// ErrStoreUnavailable wraps every failure reported by the slot store.
	// It is the only kind worth retrying without new information.
	ErrStoreUnavailable = errors.New("slot store unavailable")
)

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
