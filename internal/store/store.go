package store

import (
	"context"
	"encoding/json"
	"errors"

	"quicksale/backend/internal/domain"
)

var ErrNotFound = errors.New("key not found")

// KV is the persisted key-value port. Values are opaque JSON blobs; every
// write replaces the whole blob stored under the key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// GetJSON decodes the blob under key into dest. found is false when the key
// is missing. A blob that does not decode yields a *domain.DeserializationError.
func GetJSON(ctx context.Context, kv KV, key string, dest any) (found bool, err error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, &domain.DeserializationError{Key: key, Err: err}
	}
	return true, nil
}

func SetJSON(ctx context.Context, kv KV, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, payload)
}
