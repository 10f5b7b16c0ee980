// Package dedup remembers webhook update ids in Redis so a redelivered
// update is processed once.
package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an update id is remembered. The platform stops
// redelivering well within a day.
const DefaultTTL = 24 * time.Hour

// keyPrefix namespaces every key the service writes.
const keyPrefix = "tgpdf:update:"

// Deduplicator marks update ids as seen.
type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing client. A ttl <= 0 uses DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Deduplicator{rdb: rdb, ttl: ttl}
}

// Connect creates a client for addr and wraps it.
func Connect(addr, password string, db int, ttl time.Duration) *Deduplicator {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return New(rdb, ttl)
}

// FirstSeen records id and reports whether this is the first time it was
// seen. The check and the write are one atomic SET NX.
func (d *Deduplicator) FirstSeen(ctx context.Context, id int) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, key(id), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("marking update %d: %w", id, err)
	}
	return ok, nil
}

// Forget removes id so a later delivery is processed again.
func (d *Deduplicator) Forget(ctx context.Context, id int) error {
	if err := d.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("forgetting update %d: %w", id, err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (d *Deduplicator) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}

// Close closes the underlying redis connection.
func (d *Deduplicator) Close() error {
	return d.rdb.Close()
}

func key(id int) string {
	return keyPrefix + strconv.Itoa(id)
}
