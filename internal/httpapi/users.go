package httpapi

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/store"
)

// KVUserStore keeps every account in one JSON array under users_data.
type KVUserStore struct {
	mu sync.Mutex
	kv store.KV
}

func NewKVUserStore(kv store.KV) *KVUserStore {
	return &KVUserStore{kv: kv}
}

func (s *KVUserStore) load(ctx context.Context) ([]domain.UserAccount, error) {
	var users []domain.UserAccount
	if _, err := store.GetJSON(ctx, s.kv, domain.KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *KVUserStore) CreateUser(ctx context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Username, user.Username) {
			return fmt.Errorf("%w: username %q already exists", domain.ErrInvalidInput, user.Username)
		}
	}
	return store.SetJSON(ctx, s.kv, domain.KeyUsers, append(users, user))
}

func (s *KVUserStore) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *KVUserStore) UpdateUserPassword(ctx context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			users[i].Password = password
			return store.SetJSON(ctx, s.kv, domain.KeyUsers, users)
		}
	}
	return fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
}
