// Package employees stores the employee plate allowlist used to report which
// staff vehicles are parked.
package employees

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
)

var (
	ErrPlateExists   = errors.New("employee plate already registered")
	ErrPlateNotFound = errors.New("employee plate not registered")
)

var (
	_ parking.EmployeeDirectory = (*MemoryStore)(nil)
	_ parking.EmployeeDirectory = (*RedisStore)(nil)
)

func normalize(plate string) (string, error) {
	p := parking.NormalizePlate(plate)
	if p == "" {
		return "", fmt.Errorf("%w: empty plate", parking.ErrInvalidPlate)
	}
	return p, nil
}

type MemoryStore struct {
	mu     sync.RWMutex
	plates map[string]struct{}
}

func NewMemoryStore(plates ...string) *MemoryStore {
	s := &MemoryStore{plates: make(map[string]struct{}, len(plates))}
	for _, p := range plates {
		if n, err := normalize(p); err == nil {
			s.plates[n] = struct{}{}
		}
	}
	return s
}

func (s *MemoryStore) Add(ctx context.Context, plate string) error {
	p, err := normalize(plate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plates[p]; ok {
		return fmt.Errorf("%w: %s", ErrPlateExists, p)
	}
	s.plates[p] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, plate string) error {
	p, err := normalize(plate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plates[p]; !ok {
		return fmt.Errorf("%w: %s", ErrPlateNotFound, p)
	}
	delete(s.plates, p)
	return nil
}

// List returns the registered plates in lexical order.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.plates))
	for p := range s.plates {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
