package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// DefaultLifetime is how long an issued association stays usable.
const DefaultLifetime = 14 * 24 * time.Hour

// SecretSize is the HMAC-SHA1 key length.
const SecretSize = 20

// MemoryStore is an in-memory implementation of the AssociationStore
// interface, for tests and single-node deployments.
type MemoryStore struct {
	lifetime time.Duration
	assocs   map[string]*core.Association
	mu       sync.Mutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lifetime: DefaultLifetime,
		assocs:   make(map[string]*core.Association),
	}
}

// NewMemoryStoreWithLifetime creates an in-memory store issuing
// associations with the given lifetime.
func NewMemoryStoreWithLifetime(lifetime time.Duration) *MemoryStore {
	s := NewMemoryStore()
	s.lifetime = lifetime
	return s
}

// Issue creates and persists a fresh association.
func (s *MemoryStore) Issue(ctx context.Context, typ core.AssocType) (*core.Association, error) {
	if !typ.Supported() {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, typ)
	}

	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	assoc := &core.Association{
		Handle:    uuid.New().String(),
		Secret:    secret,
		Type:      typ,
		ExpiresAt: time.Now().Add(s.lifetime),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// uuid collisions are not a practical concern, but the contract says
	// a live handle is never reissued
	for {
		if _, exists := s.assocs[assoc.Handle]; !exists {
			break
		}
		assoc.Handle = uuid.New().String()
	}
	s.assocs[assoc.Handle] = assoc

	return assoc, nil
}

// Lookup retrieves an association without mutating the store. Expired
// associations are returned as-is so callers can observe and remove them.
func (s *MemoryStore) Lookup(ctx context.Context, handle string, typ core.AssocType) (*core.Association, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assoc, ok := s.assocs[handle]
	if !ok || assoc.Type != typ {
		return nil, core.ErrAssociationNotFound
	}
	return assoc, nil
}

// Take atomically removes and returns the association if present and
// unexpired.
func (s *MemoryStore) Take(ctx context.Context, handle string, typ core.AssocType) (*core.Association, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assoc, ok := s.assocs[handle]
	if !ok || assoc.Type != typ {
		return nil, core.ErrAssociationNotFound
	}
	if assoc.ExpiresIn() <= 0 {
		delete(s.assocs, handle)
		return nil, core.ErrAssociationNotFound
	}
	delete(s.assocs, handle)
	return assoc, nil
}

// Remove deletes the handle. Removing an absent handle is not an error.
func (s *MemoryStore) Remove(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.assocs, handle)
	return nil
}

// Put inserts an association directly, bypassing Issue. Intended for
// tests that need handles with specific secrets or expiry times.
func (s *MemoryStore) Put(assoc *core.Association) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assocs[assoc.Handle] = assoc
}

var _ ports.AssociationStore = (*MemoryStore)(nil)
