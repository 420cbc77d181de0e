package parking

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoMatch is returned by a Store when no slot satisfies the match.
	ErrNoMatch = errors.New("no slot matches")

	// ErrDuplicateBooking is returned by a Store when an update would leave
	// two booked slots holding the same plate.
	ErrDuplicateBooking = errors.New("plate already booked in another slot")
)

// Match selects slots. Zero-valued fields match anything.
type Match struct {
	SlotID   int
	Status   Status
	Plate    string
	Plates   []string
	ParkedAt *time.Time
}

func (m Match) Matches(s Slot) bool {
	if m.SlotID != 0 && s.ID != m.SlotID {
		return false
	}
	if m.Status != "" && s.Status != m.Status {
		return false
	}
	if m.Plate != "" && s.Plate != m.Plate {
		return false
	}
	if len(m.Plates) > 0 && !containsPlate(m.Plates, s.Plate) {
		return false
	}
	if m.ParkedAt != nil && (s.ParkedAt == nil || !s.ParkedAt.Equal(*m.ParkedAt)) {
		return false
	}
	return true
}

func containsPlate(plates []string, plate string) bool {
	if plate == "" {
		return false
	}
	for _, p := range plates {
		if p == plate {
			return true
		}
	}
	return false
}

// Mutation replaces every mutable field of a slot. Identity and category are
// never touched.
type Mutation struct {
	Status   Status
	Plate    string
	ParkedAt *time.Time
}

func (m Mutation) Apply(s Slot) Slot {
	s.Status = m.Status
	s.Plate = m.Plate
	s.ParkedAt = nil
	if m.ParkedAt != nil {
		t := *m.ParkedAt
		s.ParkedAt = &t
	}
	return s
}

// Store is the document-style persistence the lifecycle relies on. The only
// write path for an existing slot is FindOneAndUpdate, which must be atomic
// against concurrent callers on the same slot.
type Store interface {
	// FindOneAndUpdate applies mut to the lowest-numbered slot matching m and
	// returns the updated slot, or ErrNoMatch.
	FindOneAndUpdate(ctx context.Context, m Match, mut Mutation) (Slot, error)
	// FindOne returns the lowest-numbered slot matching m, or ErrNoMatch.
	FindOne(ctx context.Context, m Match) (Slot, error)
	// Find returns every slot matching m in ascending slot id order.
	Find(ctx context.Context, m Match) ([]Slot, error)
	// InsertMany adds slots, skipping ids that already exist.
	InsertMany(ctx context.Context, slots []Slot) error
	Count(ctx context.Context) (int, error)
}
