package parking

import (
	"fmt"
	"sort"
	"strings"
)

// CategoryRange assigns the contiguous slot ids First..Last to one vehicle
// category.
type CategoryRange struct {
	Category string `json:"category"`
	First    int    `json:"first"`
	Last     int    `json:"last"`
}

func (r CategoryRange) Contains(slotID int) bool {
	return slotID >= r.First && slotID <= r.Last
}

func (r CategoryRange) Size() int {
	return r.Last - r.First + 1
}

// Policy maps category labels to disjoint slot-id ranges. It is immutable
// after construction and safe for concurrent use.
type Policy struct {
	ranges []CategoryRange
	byName map[string]CategoryRange
}

func NewPolicy(ranges ...CategoryRange) (*Policy, error) {
	p := &Policy{
		ranges: make([]CategoryRange, 0, len(ranges)),
		byName: make(map[string]CategoryRange, len(ranges)),
	}

	for _, r := range ranges {
		r.Category = normalizeCategory(r.Category)
		if r.Category == "" {
			return nil, fmt.Errorf("category range %d-%d has no label", r.First, r.Last)
		}
		if r.First < 1 || r.Last < r.First {
			return nil, fmt.Errorf("category %s: invalid range %d-%d", r.Category, r.First, r.Last)
		}
		if _, ok := p.byName[r.Category]; ok {
			return nil, fmt.Errorf("category %s defined twice", r.Category)
		}
		p.byName[r.Category] = r
		p.ranges = append(p.ranges, r)
	}

	sort.Slice(p.ranges, func(i, j int) bool {
		return p.ranges[i].First < p.ranges[j].First
	})
	for i := 1; i < len(p.ranges); i++ {
		prev, cur := p.ranges[i-1], p.ranges[i]
		if cur.First <= prev.Last {
			return nil, fmt.Errorf("categories %s and %s overlap", prev.Category, cur.Category)
		}
	}

	return p, nil
}

// DefaultPolicy is the layout of the 100-slot lot.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(
		CategoryRange{Category: "bikes", First: 1, Last: 40},
		CategoryRange{Category: "cars", First: 41, Last: 70},
		CategoryRange{Category: "three_wheelers", First: 71, Last: 80},
		CategoryRange{Category: "vans", First: 81, Last: 90},
		CategoryRange{Category: "trucks", First: 91, Last: 95},
		CategoryRange{Category: "lorries", First: 96, Last: 100},
	)
	if err != nil {
		panic(err)
	}
	return p
}

// Check allows a booking of slotID under category. It has no side effects.
func (p *Policy) Check(category string, slotID int) error {
	r, ok := p.byName[normalizeCategory(category)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if !r.Contains(slotID) {
		return fmt.Errorf("%w: slot %d is not in %s (%d-%d)", ErrSlotOutOfRange, slotID, r.Category, r.First, r.Last)
	}
	return nil
}

// CategoryOf returns the category owning slotID.
func (p *Policy) CategoryOf(slotID int) (string, bool) {
	for _, r := range p.ranges {
		if r.Contains(slotID) {
			return r.Category, true
		}
	}
	return "", false
}

// MaxSlotID is the highest slot id any category owns.
func (p *Policy) MaxSlotID() int {
	if len(p.ranges) == 0 {
		return 0
	}
	return p.ranges[len(p.ranges)-1].Last
}

// Ranges returns the ranges ordered by first slot id.
func (p *Policy) Ranges() []CategoryRange {
	out := make([]CategoryRange, len(p.ranges))
	copy(out, p.ranges)
	return out
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
