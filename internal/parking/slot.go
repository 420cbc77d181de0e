package parking

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusFree   Status = "free"
	StatusBooked Status = "booked"
	StatusParked Status = "parked"
)

func (s Status) Valid() bool {
	switch s {
	case StatusFree, StatusBooked, StatusParked:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown slot status %q", s)
	}
	return status, nil
}

// Slot is the stored record of one parking slot. Plate is empty and ParkedAt
// is nil when the corresponding field is absent.
type Slot struct {
	ID       int        `json:"slot_id"`
	Category string     `json:"category,omitempty"`
	Status   Status     `json:"status"`
	Plate    string     `json:"occupant_plate,omitempty"`
	ParkedAt *time.Time `json:"parked_at,omitempty"`
}

func NewSlot(id int, category string) Slot {
	return Slot{
		ID:       id,
		Category: category,
		Status:   StatusFree,
	}
}

func (s Slot) IsFree() bool   { return s.Status == StatusFree }
func (s Slot) IsBooked() bool { return s.Status == StatusBooked }
func (s Slot) IsParked() bool { return s.Status == StatusParked }

// Validate reports whether the plate and parked-at fields agree with the
// status: a plate is held exactly while the slot is not free, and a parked-at
// time exactly while it is parked.
func (s Slot) Validate() error {
	if s.ID < 1 {
		return fmt.Errorf("slot id %d must be positive", s.ID)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("slot %d: unknown status %q", s.ID, s.Status)
	}
	if hasPlate := s.Plate != ""; hasPlate == s.IsFree() {
		return fmt.Errorf("slot %d: status %s with plate %q", s.ID, s.Status, s.Plate)
	}
	if hasParkedAt := s.ParkedAt != nil; hasParkedAt != s.IsParked() {
		return fmt.Errorf("slot %d: status %s with parked_at set=%t", s.ID, s.Status, hasParkedAt)
	}
	return nil
}

// Clone returns a copy that shares no memory with s.
func (s Slot) Clone() Slot {
	if s.ParkedAt != nil {
		t := *s.ParkedAt
		s.ParkedAt = &t
	}
	return s
}

// NormalizePlate trims surrounding whitespace and upper-cases the plate.
// Every comparison and every stored plate goes through it.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

func normalizePlates(plates []string) []string {
	seen := make(map[string]struct{}, len(plates))
	out := make([]string, 0, len(plates))
	for _, p := range plates {
		n := NormalizePlate(p)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
