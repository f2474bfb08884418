package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
	"github.com/redis/go-redis/v9"
)

// takeScript removes a key and returns its value in a single atomic step,
// so two concurrent Takes on one handle never both succeed.
var takeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v then
	redis.call('DEL', KEYS[1])
end
return v
`)

// assocRecord is the stored form of an association.
type assocRecord struct {
	Secret    string    `json:"secret"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisStore is a Redis implementation of the AssociationStore interface.
// The internal and external stores are two instances of it distinguished
// by key prefix. Redis key TTLs mirror the association lifetime, so an
// expired association is indistinguishable from an absent one.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	lifetime time.Duration
}

// NewRedisStore creates a Redis-backed store. The name keeps the internal
// and external instances from sharing a keyspace.
func NewRedisStore(client *redis.Client, name string) *RedisStore {
	return &RedisStore{
		client:   client,
		prefix:   "garuda:assoc:" + name + ":",
		lifetime: DefaultLifetime,
	}
}

// Issue creates and persists a fresh association.
func (s *RedisStore) Issue(ctx context.Context, typ core.AssocType) (*core.Association, error) {
	if !typ.Supported() {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, typ)
	}

	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	assoc := &core.Association{
		Secret:    secret,
		Type:      typ,
		ExpiresAt: time.Now().Add(s.lifetime),
	}

	payload, err := json.Marshal(assocRecord{
		Secret:    base64.StdEncoding.EncodeToString(assoc.Secret),
		Type:      string(assoc.Type),
		ExpiresAt: assoc.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode association: %w", err)
	}

	// SET NX guarantees a live handle is never reissued
	for {
		assoc.Handle = uuid.New().String()
		ok, err := s.client.SetNX(ctx, s.prefix+assoc.Handle, payload, s.lifetime).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
		}
		if ok {
			return assoc, nil
		}
	}
}

// Lookup retrieves an association without mutating the store.
func (s *RedisStore) Lookup(ctx context.Context, handle string, typ core.AssocType) (*core.Association, error) {
	raw, err := s.client.Get(ctx, s.prefix+handle).Result()
	if err == redis.Nil {
		return nil, core.ErrAssociationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return s.decode(handle, typ, raw)
}

// Take atomically removes and returns the association if present and
// unexpired.
func (s *RedisStore) Take(ctx context.Context, handle string, typ core.AssocType) (*core.Association, error) {
	res, err := takeScript.Run(ctx, s.client, []string{s.prefix + handle}).Result()
	if err == redis.Nil || res == nil {
		return nil, core.ErrAssociationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	raw, ok := res.(string)
	if !ok {
		return nil, core.ErrStoreOperationFailed
	}
	assoc, err := s.decode(handle, typ, raw)
	if err != nil {
		return nil, err
	}
	if assoc.ExpiresIn() <= 0 {
		return nil, core.ErrAssociationNotFound
	}
	return assoc, nil
}

// Remove deletes the handle. Removing an absent handle is not an error.
func (s *RedisStore) Remove(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, s.prefix+handle).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

func (s *RedisStore) decode(handle string, typ core.AssocType, raw string) (*core.Association, error) {
	var rec assocRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt association record", core.ErrStoreOperationFailed)
	}
	if rec.Type != string(typ) {
		return nil, core.ErrAssociationNotFound
	}
	secret, err := base64.StdEncoding.DecodeString(rec.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt association secret", core.ErrStoreOperationFailed)
	}
	return &core.Association{
		Handle:    handle,
		Secret:    secret,
		Type:      typ,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

var _ ports.AssociationStore = (*RedisStore)(nil)
