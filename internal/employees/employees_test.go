package employees

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
)

// exerciseDirectory runs the same contract against every implementation.
func exerciseDirectory(t *testing.T, dir parking.EmployeeDirectory) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, dir.Add(ctx, " emp002"))
	require.NoError(t, dir.Add(ctx, "EMP001"))

	err := dir.Add(ctx, "emp001")
	assert.ErrorIs(t, err, ErrPlateExists)

	err = dir.Add(ctx, "   ")
	assert.ErrorIs(t, err, parking.ErrInvalidPlate)

	plates, err := dir.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"EMP001", "EMP002"}, plates)

	require.NoError(t, dir.Remove(ctx, "Emp002"))
	err = dir.Remove(ctx, "EMP002")
	assert.ErrorIs(t, err, ErrPlateNotFound)

	plates, err = dir.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"EMP001"}, plates)
}

func TestMemoryStore(t *testing.T) {
	exerciseDirectory(t, NewMemoryStore())
}

func TestMemoryStoreSeed(t *testing.T) {
	s := NewMemoryStore("b1", "a1", "", "A1")

	plates, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1"}, plates)
}

func TestMemoryStoreListEmpty(t *testing.T) {
	plates, err := NewMemoryStore().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, plates)
	assert.Empty(t, plates)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PARKING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PARKING_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	key := "parking:test:employees:" + strconv.FormatInt(int64(os.Getpid()), 10)
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	exerciseDirectory(t, NewRedisStore(rdb, WithSetKey(key)))
}

func TestWithSetKeyIgnoresBlank(t *testing.T) {
	s := NewRedisStore(nil, WithSetKey("::"))
	assert.Equal(t, DefaultSetKey, s.key)
}
