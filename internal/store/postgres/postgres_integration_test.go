package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"quicksale/backend/internal/store"
)

func TestKVRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("QUICKSALE_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set QUICKSALE_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	namespace := fmt.Sprintf("it-%d", time.Now().UnixNano())
	s, err := New(ctx, databaseURL, namespace)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = $1`, namespace)
		_ = s.Close()
	})

	if _, err := s.Get(ctx, "products_data"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	if err := s.Set(ctx, "products_data", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "products_data", []byte(`[{"id":2}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := s.Get(ctx, "products_data")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"id":2}]` {
		t.Fatalf("expected overwritten value, got %s", got)
	}

	if err := s.Remove(ctx, "products_data"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Get(ctx, "products_data"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}
