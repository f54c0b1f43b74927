package webhook

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultReplayTTL bounds how long a delivery key is remembered.
const DefaultReplayTTL = 10 * time.Minute

// DefaultReplayCapacity caps remembered keys; the least recently seen go first.
const DefaultReplayCapacity = 10_000

// ReplayGuard remembers delivery keys (event IDs, trigger IDs) so a retried
// delivery is acknowledged without being dispatched twice.
type ReplayGuard struct {
	seen *ttlcache.Cache[string, struct{}]
}

// NewReplayGuard creates a guard. A non-positive ttl uses DefaultReplayTTL.
func NewReplayGuard(ttl time.Duration) *ReplayGuard {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return &ReplayGuard{seen: ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithCapacity[string, struct{}](DefaultReplayCapacity),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)}
}

// Seen reports whether key was already recorded within the TTL, recording it
// if not. The empty key is never considered seen.
func (g *ReplayGuard) Seen(key string) bool {
	if key == "" {
		return false
	}
	_, found := g.seen.GetOrSet(key, struct{}{})
	return found
}

// Len returns the number of remembered, unexpired keys.
func (g *ReplayGuard) Len() int {
	g.seen.DeleteExpired()
	return g.seen.Len()
}
