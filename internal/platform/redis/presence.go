package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const presencePrefix = "taskflow:presence:"

func presenceKey(userID uuid.UUID) string { return presencePrefix + userID.String() }

// Client is the subset of the go-redis API the presence store uses.
type Client interface {
	Incr(ctx context.Context, key string) *goredis.IntCmd
	Decr(ctx context.Context, key string) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd
}

// PresenceStore counts live connections per user in Redis. Each key carries
// a TTL so a crashed process cannot leave users online forever; connected
// clients refresh it through Refresh.
type PresenceStore struct {
	rdb Client
	ttl time.Duration
}

// NewPresenceStore creates a presence store with the given key TTL.
func NewPresenceStore(rdb Client, ttl time.Duration) *PresenceStore {
	return &PresenceStore{rdb: rdb, ttl: ttl}
}

// MarkOnline records one more connection for userID.
func (p *PresenceStore) MarkOnline(ctx context.Context, userID uuid.UUID) error {
	key := presenceKey(userID)
	if err := p.rdb.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("presence online: %w", err)
	}
	if err := p.rdb.Expire(ctx, key, p.ttl).Err(); err != nil {
		return fmt.Errorf("presence ttl: %w", err)
	}
	return nil
}

// MarkOffline records one fewer connection and clears the key at zero.
func (p *PresenceStore) MarkOffline(ctx context.Context, userID uuid.UUID) error {
	key := presenceKey(userID)
	n, err := p.rdb.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("presence offline: %w", err)
	}
	if n <= 0 {
		if err := p.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("presence clear: %w", err)
		}
	}
	return nil
}

// Refresh extends the TTL of an online user.
func (p *PresenceStore) Refresh(ctx context.Context, userID uuid.UUID) error {
	if err := p.rdb.Expire(ctx, presenceKey(userID), p.ttl).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("presence refresh: %w", err)
	}
	return nil
}

// Online lists users with at least one live connection.
func (p *PresenceStore) Online(ctx context.Context) ([]uuid.UUID, error) {
	var (
		cursor uint64
		users  []uuid.UUID
	)
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, presencePrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("presence scan: %w", err)
		}
		for _, k := range keys {
			id, err := uuid.Parse(strings.TrimPrefix(k, presencePrefix))
			if err != nil {
				continue
			}
			users = append(users, id)
		}
		if next == 0 {
			return users, nil
		}
		cursor = next
	}
}
