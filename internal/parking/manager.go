package parking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Manager owns the slot state machine Free -> Booked -> Parked -> Free. It
// keeps no slot state of its own; every transition is a single conditional
// update against the Store, so one Manager is shared by all callers.
type Manager struct {
	store       Store
	policy      *Policy
	now         func() time.Time
	defaultRate float64
}

type Option func(*Manager)

func WithPolicy(p *Policy) Option {
	return func(m *Manager) { m.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithDefaultRate(ratePerHour float64) Option {
	return func(m *Manager) {
		if ratePerHour > 0 && !math.IsInf(ratePerHour, 0) {
			m.defaultRate = ratePerHour
		}
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		policy:      DefaultPolicy(),
		now:         time.Now,
		defaultRate: DefaultRatePerHour,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Policy() *Policy      { return m.policy }
func (m *Manager) DefaultRate() float64 { return m.defaultRate }

// InitPool creates free slots 1..count, each tagged with the category owning
// its id. It does nothing when the store already holds any slot and returns
// the number of slots it created.
func (m *Manager) InitPool(ctx context.Context, count int) (int, error) {
	if count < 1 || count > m.policy.MaxSlotID() {
		return 0, fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidPoolSize, count, m.policy.MaxSlotID())
	}

	existing, err := m.store.Count(ctx)
	if err != nil {
		return 0, storeError("init pool", err)
	}
	if existing > 0 {
		return 0, nil
	}

	slots := make([]Slot, count)
	for i := range slots {
		id := i + 1
		category, _ := m.policy.CategoryOf(id)
		slots[i] = NewSlot(id, category)
	}

	if err := m.store.InsertMany(ctx, slots); err != nil {
		return 0, storeError("init pool", err)
	}
	return count, nil
}

// Book moves a free slot to booked for plate after the category policy has
// allowed it. A plate may hold only one booking at a time.
func (m *Manager) Book(ctx context.Context, slotID int, plate, category string) (Slot, error) {
	plate = NormalizePlate(plate)
	if plate == "" {
		return Slot{}, ErrInvalidPlate
	}
	if err := m.policy.Check(category, slotID); err != nil {
		return Slot{}, err
	}

	held, err := m.store.FindOne(ctx, Match{Status: StatusBooked, Plate: plate})
	switch {
	case err == nil:
		return Slot{}, fmt.Errorf("%w: %s is booked in slot %d", ErrPlateAlreadyBooked, plate, held.ID)
	case !errors.Is(err, ErrNoMatch):
		return Slot{}, storeError("book", err)
	}

	slot, err := m.store.FindOneAndUpdate(ctx,
		Match{SlotID: slotID, Status: StatusFree},
		Mutation{Status: StatusBooked, Plate: plate},
	)
	switch {
	case errors.Is(err, ErrNoMatch):
		return Slot{}, fmt.Errorf("%w: slot %d is not free", ErrSlotUnavailable, slotID)
	case errors.Is(err, ErrDuplicateBooking):
		return Slot{}, fmt.Errorf("%w: %s", ErrPlateAlreadyBooked, plate)
	case err != nil:
		return Slot{}, storeError("book", err)
	}
	return slot, nil
}

// Park moves a slot booked for plate to parked and stamps the arrival time.
func (m *Manager) Park(ctx context.Context, slotID int, plate string) (Slot, error) {
	plate = NormalizePlate(plate)
	if plate == "" {
		return Slot{}, fmt.Errorf("%w: empty plate", ErrSlotNotBookedForPlate)
	}
	now := m.now()

	slot, err := m.store.FindOneAndUpdate(ctx,
		Match{SlotID: slotID, Status: StatusBooked, Plate: plate},
		Mutation{Status: StatusParked, Plate: plate, ParkedAt: &now},
	)
	switch {
	case errors.Is(err, ErrNoMatch):
		return Slot{}, m.parkFailure(ctx, slotID, plate)
	case err != nil:
		return Slot{}, storeError("park", err)
	}
	return slot, nil
}

// parkFailure reports why a park did not apply. The cause comes from a read
// after the failed update, so it is advisory only.
func (m *Manager) parkFailure(ctx context.Context, slotID int, plate string) error {
	slot, err := m.store.FindOne(ctx, Match{SlotID: slotID})
	if err != nil {
		return fmt.Errorf("%w: slot %d, plate %s", ErrSlotNotBookedForPlate, slotID, plate)
	}

	var cause string
	switch {
	case slot.IsFree():
		cause = "is free"
	case slot.IsParked():
		cause = "is already parked"
	case slot.Plate != plate:
		cause = "is booked for another plate"
	default:
		cause = "changed concurrently"
	}
	return fmt.Errorf("%w: slot %d %s", ErrSlotNotBookedForPlate, slotID, cause)
}

// Clear frees a parked slot when authorizingPlate matches its occupant and
// returns the bill. A ratePerHour that is not a positive finite number uses
// the default rate.
//
// The reset is conditional on the exact parking session that was read, so a
// concurrent clear or re-park makes this call fail rather than bill twice.
func (m *Manager) Clear(ctx context.Context, slotID int, authorizingPlate string, ratePerHour float64) (FeeRecord, error) {
	plate := NormalizePlate(authorizingPlate)
	if !(ratePerHour > 0) || math.IsInf(ratePerHour, 0) {
		ratePerHour = m.defaultRate
	}

	slot, err := m.store.FindOne(ctx, Match{SlotID: slotID})
	switch {
	case errors.Is(err, ErrNoMatch):
		return FeeRecord{}, fmt.Errorf("%w: slot %d does not exist", ErrSlotNotParked, slotID)
	case err != nil:
		return FeeRecord{}, storeError("clear", err)
	}
	if !slot.IsParked() || slot.ParkedAt == nil {
		return FeeRecord{}, fmt.Errorf("%w: slot %d is %s", ErrSlotNotParked, slotID, slot.Status)
	}
	if slot.Plate != plate {
		return FeeRecord{}, fmt.Errorf("%w: plate does not occupy slot %d", ErrUnauthorized, slotID)
	}

	record := newFeeRecord(slot, m.now(), ratePerHour)

	_, err = m.store.FindOneAndUpdate(ctx,
		Match{SlotID: slotID, Status: StatusParked, Plate: plate, ParkedAt: slot.ParkedAt},
		Mutation{Status: StatusFree},
	)
	switch {
	case errors.Is(err, ErrNoMatch):
		return FeeRecord{}, fmt.Errorf("%w: slot %d was cleared concurrently", ErrSlotNotParked, slotID)
	case err != nil:
		return FeeRecord{}, storeError("clear", err)
	}
	return record, nil
}

// ListAll returns every slot in ascending id order.
func (m *Manager) ListAll(ctx context.Context) ([]Slot, error) {
	slots, err := m.store.Find(ctx, Match{})
	if err != nil {
		return nil, storeError("list slots", err)
	}
	return slots, nil
}

// FindByPlate returns the slots currently booked or parked by plate.
func (m *Manager) FindByPlate(ctx context.Context, plate string) ([]Slot, error) {
	plate = NormalizePlate(plate)
	if plate == "" {
		return nil, ErrInvalidPlate
	}
	slots, err := m.store.Find(ctx, Match{Plate: plate})
	if err != nil {
		return nil, storeError("find by plate", err)
	}
	return slots, nil
}

// ParkedMatchingAllowlist returns the parked slots whose occupant is on the
// allowlist, as of the time of the read.
func (m *Manager) ParkedMatchingAllowlist(ctx context.Context, allowlist []string) ([]Slot, error) {
	plates := normalizePlates(allowlist)
	if len(plates) == 0 {
		return []Slot{}, nil
	}
	slots, err := m.store.Find(ctx, Match{Status: StatusParked, Plates: plates})
	if err != nil {
		return nil, storeError("parked allowlist", err)
	}
	return slots, nil
}
