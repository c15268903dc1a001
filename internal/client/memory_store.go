package client

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"identity-broker/internal/auth"
)

type MemoryStore struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clients: make(map[string]Client)}
}

func (s *MemoryStore) ByPublicID(_ context.Context, publicID string) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[publicID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneClient(c), nil
}

func (s *MemoryStore) Create(_ context.Context, c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[c.PublicID]; exists {
		return fmt.Errorf("client %s: %w", c.PublicID, auth.ErrAlreadyExists)
	}
	s.clients[c.PublicID] = *cloneClient(*c)
	return nil
}

func cloneClient(c Client) *Client {
	c.AllowedOrigins = slices.Clone(c.AllowedOrigins)
	c.RedirectURLs = slices.Clone(c.RedirectURLs)
	return &c
}
