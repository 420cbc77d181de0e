package parking

import "context"

type StatusCounts struct {
	Free   int `json:"free"`
	Booked int `json:"booked"`
	Parked int `json:"parked"`
}

func (c *StatusCounts) add(s Status) {
	switch s {
	case StatusFree:
		c.Free++
	case StatusBooked:
		c.Booked++
	case StatusParked:
		c.Parked++
	}
}

type Occupancy struct {
	Capacity int `json:"capacity"`
	StatusCounts
	ByCategory map[string]StatusCounts `json:"by_category"`
}

func Summarize(slots []Slot) Occupancy {
	o := Occupancy{
		Capacity:   len(slots),
		ByCategory: make(map[string]StatusCounts),
	}
	for _, s := range slots {
		o.add(s.Status)
		c := o.ByCategory[s.Category]
		c.add(s.Status)
		o.ByCategory[s.Category] = c
	}
	return o
}

func (m *Manager) Occupancy(ctx context.Context) (Occupancy, error) {
	slots, err := m.ListAll(ctx)
	if err != nil {
		return Occupancy{}, err
	}
	return Summarize(slots), nil
}
