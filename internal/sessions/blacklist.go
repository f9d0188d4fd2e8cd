package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records access tokens revoked at logout until they expire.
// With a Redis client the entries are shared between instances; without one
// they are kept in process memory.
type Blacklist struct {
	client *redis.Client

	mu  sync.Mutex
	mem map[string]time.Time
	now func() time.Time
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client, mem: map[string]time.Time{}, now: time.Now}
}

func blacklistKey(token string) string { return "blacklist:access:" + token }

// Revoke blacklists token for ttl. Non-positive ttls are ignored.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if b.client != nil {
		return b.client.Set(ctx, blacklistKey(token), "1", ttl).Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for t, exp := range b.mem {
		if now.After(exp) {
			delete(b.mem, t)
		}
	}
	b.mem[token] = now.Add(ttl)
	return nil
}

// IsRevoked returns true when the token is on the blacklist.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if b.client != nil {
		exists, err := b.client.Exists(ctx, blacklistKey(token)).Result()
		if err != nil {
			return false, err
		}
		return exists > 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.mem[token]
	return ok && !b.now().After(exp), nil
}
