package employees

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const DefaultSetKey = "parking:employees"

// RedisStore keeps the allowlist in a single Redis set, so every service
// instance shares it.
type RedisStore struct {
	rdb *redis.Client
	key string
}

type RedisOption func(*RedisStore)

func WithSetKey(key string) RedisOption {
	return func(s *RedisStore) {
		if k := strings.Trim(key, ":"); k != "" {
			s.key = k
		}
	}
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb: rdb,
		key: DefaultSetKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Add(ctx context.Context, plate string) error {
	p, err := normalize(plate)
	if err != nil {
		return err
	}

	added, err := s.rdb.SAdd(ctx, s.key, p).Result()
	if err != nil {
		return fmt.Errorf("add employee %s: %w", p, err)
	}
	if added == 0 {
		return fmt.Errorf("%w: %s", ErrPlateExists, p)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, plate string) error {
	p, err := normalize(plate)
	if err != nil {
		return err
	}

	removed, err := s.rdb.SRem(ctx, s.key, p).Result()
	if err != nil {
		return fmt.Errorf("remove employee %s: %w", p, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrPlateNotFound, p)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	plates, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	sort.Strings(plates)
	return plates, nil
}
