package parking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/store/memory"
)

func TestDefaultPolicyLayout(t *testing.T) {
	p := parking.DefaultPolicy()

	ranges := p.Ranges()
	require.Len(t, ranges, 6)

	total := 0
	for i, r := range ranges {
		total += r.Size()
		if i > 0 {
			assert.Equal(t, ranges[i-1].Last+1, r.First, "ranges are contiguous")
		}
	}
	assert.Equal(t, 100, total)

	for slotID, want := range map[int]string{1: "bikes", 40: "bikes", 41: "cars", 75: "three_wheelers", 90: "vans", 95: "trucks", 100: "lorries"} {
		got, ok := p.CategoryOf(slotID)
		assert.True(t, ok)
		assert.Equal(t, want, got, "slot %d", slotID)
	}

	_, ok := p.CategoryOf(101)
	assert.False(t, ok)
}

func TestPolicyCheck(t *testing.T) {
	p := parking.DefaultPolicy()

	assert.NoError(t, p.Check("cars", 41))
	assert.NoError(t, p.Check(" CARS ", 70))
	assert.ErrorIs(t, p.Check("cars", 40), parking.ErrSlotOutOfRange)
	assert.ErrorIs(t, p.Check("cars", 71), parking.ErrSlotOutOfRange)
	assert.ErrorIs(t, p.Check("boats", 1), parking.ErrInvalidCategory)
	assert.ErrorIs(t, p.Check("", 1), parking.ErrInvalidCategory)
}

func TestNewPolicyRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name   string
		ranges []parking.CategoryRange
	}{
		{"overlap", []parking.CategoryRange{{Category: "a", First: 1, Last: 10}, {Category: "b", First: 10, Last: 20}}},
		{"inverted", []parking.CategoryRange{{Category: "a", First: 10, Last: 1}}},
		{"zero start", []parking.CategoryRange{{Category: "a", First: 0, Last: 5}}},
		{"no label", []parking.CategoryRange{{Category: " ", First: 1, Last: 5}}},
		{"duplicate label", []parking.CategoryRange{{Category: "a", First: 1, Last: 5}, {Category: "A", First: 6, Last: 9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parking.NewPolicy(tt.ranges...)
			assert.Error(t, err)
		})
	}
}

func TestCustomPolicyDrivesManager(t *testing.T) {
	policy, err := parking.NewPolicy(
		parking.CategoryRange{Category: "compact", First: 1, Last: 2},
		parking.CategoryRange{Category: "ev", First: 3, Last: 3},
	)
	require.NoError(t, err)

	ctx := context.Background()
	m := parking.NewManager(memory.New(), parking.WithPolicy(policy))
	_, err = m.InitPool(ctx, 3)
	require.NoError(t, err)

	slots, err := m.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ev", slots[2].Category)

	_, err = m.Book(ctx, 3, "EV1", "ev")
	assert.NoError(t, err)
	_, err = m.Book(ctx, 1, "EV2", "ev")
	assert.ErrorIs(t, err, parking.ErrSlotOutOfRange)
}
