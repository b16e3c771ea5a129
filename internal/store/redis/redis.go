package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"

	"quicksale/backend/internal/store"
)

type Options struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
	// LockWrites serializes writers across processes sharing the same Redis.
	LockWrites bool
	LockTTL    time.Duration
}

type Store struct {
	client    *redis.Client
	locker    *redislock.Client
	namespace string
	lockTTL   time.Duration
}

func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	s := &Store{
		client:    client,
		namespace: opts.Namespace,
		lockTTL:   opts.LockTTL,
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 5 * time.Second
	}
	if opts.LockWrites {
		s.locker = redislock.New(client)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.withLock(ctx, key, func() error {
		return s.client.Set(ctx, s.key(key), value, 0).Err()
	})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.withLock(ctx, key, func() error {
		return s.client.Del(ctx, s.key(key)).Err()
	})
}

func (s *Store) withLock(ctx context.Context, key string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}

	lock, err := s.locker.Obtain(ctx, s.key("lock:"+key), s.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("write lock for %s is held by another writer", key)
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	return fn()
}
