package identity

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"identity-broker/internal/auth"
)

type identityKey struct {
	provider auth.Provider
	subject  string
}

// MemoryStore keeps principals in process. Uniqueness is enforced under one lock.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]Record
	byEmail    map[string]string
	byUsername map[string]string
	byIdentity map[identityKey]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]Record),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		byIdentity: make(map[identityKey]string),
	}
}

func (s *MemoryStore) ByID(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.get(id)
}

func (s *MemoryStore) ByFederatedIdentity(_ context.Context, provider auth.Provider, providerUserID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdentity[identityKey{provider, providerUserID}]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.get(id)
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[rec.ID]; ok {
		return fmt.Errorf("user id: %w", auth.ErrAlreadyExists)
	}
	if _, ok := s.byEmail[rec.Email]; ok {
		return fmt.Errorf("email: %w", auth.ErrAlreadyExists)
	}
	if _, ok := s.byUsername[rec.Username]; ok {
		return fmt.Errorf("username: %w", auth.ErrAlreadyExists)
	}
	for p, sub := range rec.FederatedIdentities {
		if _, ok := s.byIdentity[identityKey{p, sub}]; ok {
			return fmt.Errorf("identity: %w", auth.ErrAlreadyExists)
		}
	}

	stored := *rec
	stored.FederatedIdentities = maps.Clone(rec.FederatedIdentities)
	if stored.FederatedIdentities == nil {
		stored.FederatedIdentities = map[auth.Provider]string{}
	}

	s.byID[rec.ID] = stored
	s.byEmail[rec.Email] = rec.ID
	s.byUsername[rec.Username] = rec.ID
	for p, sub := range rec.FederatedIdentities {
		s.byIdentity[identityKey{p, sub}] = rec.ID
	}
	return nil
}

func (s *MemoryStore) LinkIdentity(_ context.Context, userID string, provider auth.Provider, providerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	if _, ok := rec.FederatedIdentities[provider]; ok {
		return fmt.Errorf("provider already linked: %w", auth.ErrAlreadyExists)
	}
	key := identityKey{provider, providerUserID}
	if _, ok := s.byIdentity[key]; ok {
		return fmt.Errorf("identity: %w", auth.ErrAlreadyExists)
	}

	rec.FederatedIdentities = maps.Clone(rec.FederatedIdentities)
	rec.FederatedIdentities[provider] = providerUserID
	s.byID[userID] = rec
	s.byIdentity[key] = userID
	return nil
}

func (s *MemoryStore) get(id string) (*Record, error) {
	rec, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := rec
	out.FederatedIdentities = maps.Clone(rec.FederatedIdentities)
	return &out, nil
}
