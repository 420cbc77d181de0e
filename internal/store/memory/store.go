// Package memory is a process-local slot store. A single mutex serializes
// every call, which makes FindOneAndUpdate atomic; a booked-plate index plays
// the role of a partial unique index over booked slots.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
)

type Store struct {
	mu     sync.Mutex
	slots  map[int]parking.Slot
	booked map[string]int

	uniqueBookedPlate bool
}

type Option func(*Store)

// WithoutBookedPlateIndex turns off the booked-plate constraint, leaving the
// plate check entirely to callers.
func WithoutBookedPlateIndex() Option {
	return func(s *Store) { s.uniqueBookedPlate = false }
}

func New(opts ...Option) *Store {
	s := &Store{
		slots:             make(map[int]parking.Slot),
		booked:            make(map[string]int),
		uniqueBookedPlate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ parking.Store = (*Store)(nil)

func (s *Store) FindOneAndUpdate(ctx context.Context, m parking.Match, mut parking.Mutation) (parking.Slot, error) {
	if err := ctx.Err(); err != nil {
		return parking.Slot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.first(m)
	if !ok {
		return parking.Slot{}, parking.ErrNoMatch
	}

	next := mut.Apply(cur)
	if err := next.Validate(); err != nil {
		return parking.Slot{}, err
	}

	if s.uniqueBookedPlate && next.IsBooked() {
		if holder, taken := s.booked[next.Plate]; taken && holder != next.ID {
			return parking.Slot{}, parking.ErrDuplicateBooking
		}
	}

	if cur.IsBooked() && s.booked[cur.Plate] == cur.ID {
		delete(s.booked, cur.Plate)
	}
	if next.IsBooked() {
		s.booked[next.Plate] = next.ID
	}

	s.slots[next.ID] = next
	return next.Clone(), nil
}

func (s *Store) FindOne(ctx context.Context, m parking.Match) (parking.Slot, error) {
	if err := ctx.Err(); err != nil {
		return parking.Slot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.first(m)
	if !ok {
		return parking.Slot{}, parking.ErrNoMatch
	}
	return slot.Clone(), nil
}

func (s *Store) Find(ctx context.Context, m parking.Match) ([]parking.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []parking.Slot{}
	for _, id := range s.sortedIDs() {
		if slot := s.slots[id]; m.Matches(slot) {
			out = append(out, slot.Clone())
		}
	}
	return out, nil
}

func (s *Store) InsertMany(ctx context.Context, slots []parking.Slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, slot := range slots {
		if err := slot.Validate(); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range slots {
		if _, exists := s.slots[slot.ID]; exists {
			continue
		}
		if s.uniqueBookedPlate && slot.IsBooked() {
			if _, taken := s.booked[slot.Plate]; taken {
				return parking.ErrDuplicateBooking
			}
		}
		if slot.IsBooked() {
			s.booked[slot.Plate] = slot.ID
		}
		s.slots[slot.ID] = slot.Clone()
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots), nil
}

// first returns the lowest-numbered slot matching m. Callers hold mu.
func (s *Store) first(m parking.Match) (parking.Slot, bool) {
	if m.SlotID != 0 {
		slot, ok := s.slots[m.SlotID]
		if !ok || !m.Matches(slot) {
			return parking.Slot{}, false
		}
		return slot, true
	}
	for _, id := range s.sortedIDs() {
		if slot := s.slots[id]; m.Matches(slot) {
			return slot, true
		}
	}
	return parking.Slot{}, false
}

func (s *Store) sortedIDs() []int {
	ids := make([]int, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
