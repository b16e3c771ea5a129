package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicksale/backend/internal/store"
)

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("QUICKSALE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set QUICKSALE_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	s := New(Options{
		Addr:       addr,
		Namespace:  fmt.Sprintf("quicksale-it-%d", time.Now().UnixNano()),
		LockWrites: true,
	})
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "reports_data")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "reports_data", []byte(`[]`)))
	got, err := s.Get(ctx, "reports_data")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Remove(ctx, "reports_data"))
	_, err = s.Get(ctx, "reports_data")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
