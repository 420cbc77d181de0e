package parking

import (
	"testing"
	"time"
)

func TestNewSlot(t *testing.T) {
	slot := NewSlot(7, "bikes")

	if slot.ID != 7 {
		t.Errorf("Expected slot id 7, got %d", slot.ID)
	}

	if !slot.IsFree() {
		t.Errorf("Expected new slot to be free, got %s", slot.Status)
	}

	if slot.Plate != "" || slot.ParkedAt != nil {
		t.Error("Expected new slot to have no occupant")
	}

	if err := slot.Validate(); err != nil {
		t.Errorf("Expected new slot to be valid, got %v", err)
	}
}

func TestSlotValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		slot  Slot
		valid bool
	}{
		{"free", Slot{ID: 1, Status: StatusFree}, true},
		{"booked", Slot{ID: 1, Status: StatusBooked, Plate: "ABC123"}, true},
		{"parked", Slot{ID: 1, Status: StatusParked, Plate: "ABC123", ParkedAt: &now}, true},
		{"free with plate", Slot{ID: 1, Status: StatusFree, Plate: "ABC123"}, false},
		{"booked without plate", Slot{ID: 1, Status: StatusBooked}, false},
		{"booked with parked_at", Slot{ID: 1, Status: StatusBooked, Plate: "ABC123", ParkedAt: &now}, false},
		{"parked without parked_at", Slot{ID: 1, Status: StatusParked, Plate: "ABC123"}, false},
		{"unknown status", Slot{ID: 1, Status: "reserved", Plate: "ABC123"}, false},
		{"zero id", Slot{Status: StatusFree}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slot.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid slot, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSlotClone(t *testing.T) {
	now := time.Now()
	slot := Slot{ID: 1, Status: StatusParked, Plate: "ABC123", ParkedAt: &now}

	clone := slot.Clone()
	*clone.ParkedAt = now.Add(time.Hour)

	if !slot.ParkedAt.Equal(now) {
		t.Error("Expected clone to not share parked_at with the original")
	}
}

func TestNormalizePlate(t *testing.T) {
	cases := map[string]string{
		"ka01hh1234":  "KA01HH1234",
		"  WP CAB-1 ": "WP CAB-1",
		"":            "",
		"\t\n":        "",
	}

	for in, want := range cases {
		if got := NormalizePlate(in); got != want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePlatesDropsBlanksAndDuplicates(t *testing.T) {
	got := normalizePlates([]string{"emp1", "", " EMP1", "emp2", "  "})

	if len(got) != 2 || got[0] != "EMP1" || got[1] != "EMP2" {
		t.Errorf("Expected [EMP1 EMP2], got %v", got)
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Parked ")
	if err != nil || status != StatusParked {
		t.Errorf("Expected parked, got %q (%v)", status, err)
	}

	if _, err := ParseStatus("reserved"); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestMatchAndMutation(t *testing.T) {
	now := time.Now()
	parked := Slot{ID: 3, Status: StatusParked, Plate: "ABC123", ParkedAt: &now}
	earlier := now.Add(-time.Minute)

	if !(Match{}).Matches(parked) {
		t.Error("Expected empty match to match any slot")
	}
	if !(Match{SlotID: 3, Status: StatusParked, Plate: "ABC123", ParkedAt: &now}).Matches(parked) {
		t.Error("Expected full match to match")
	}
	if (Match{ParkedAt: &earlier}).Matches(parked) {
		t.Error("Expected parked_at mismatch to fail")
	}
	if (Match{Plates: []string{"XYZ"}}).Matches(parked) {
		t.Error("Expected plate list without the occupant to fail")
	}
	if (Match{Plates: []string{"ABC123"}}).Matches(NewSlot(4, "bikes")) {
		t.Error("Expected plate list to never match a free slot")
	}

	freed := Mutation{Status: StatusFree}.Apply(parked)
	if err := freed.Validate(); err != nil {
		t.Errorf("Expected freed slot to be valid, got %v", err)
	}
	if freed.ID != 3 {
		t.Errorf("Expected mutation to keep slot id, got %d", freed.ID)
	}
}
