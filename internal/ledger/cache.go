package ledger

import (
	"sync"
	"time"

	"github.com/walletvet/walletvet/internal/model"
)

// DefaultCacheTTL is the default lifetime of a cached snapshot.
const DefaultCacheTTL = 5 * time.Minute

// pruneThreshold is the entry count above which Set drops expired entries.
const pruneThreshold = 1024

// SnapshotCache keeps recent snapshots so repeated addresses inside a batch
// do not spend upstream quota. Safe for concurrent use.
type SnapshotCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]model.LedgerSnapshot
	now     func() time.Time
}

// NewSnapshotCache creates a cache whose entries expire after ttl.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SnapshotCache{
		ttl:     ttl,
		entries: make(map[string]model.LedgerSnapshot),
		now:     time.Now,
	}
}

// Get returns a copy of the cached snapshot for addr, whether it was found
// fresh, and its age.
func (c *SnapshotCache) Get(addr string) (*model.LedgerSnapshot, bool, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[addr]
	if !exists {
		return nil, false, 0
	}

	age := c.now().Sub(entry.FetchedAt)
	if age > c.ttl {
		return nil, false, age
	}

	snap := entry
	snap.RiskReasons = append([]string(nil), entry.RiskReasons...)
	return &snap, true, age
}

// Set stores a copy of the snapshot keyed by its address. Expired entries
// are dropped once the cache grows past pruneThreshold.
func (c *SnapshotCache) Set(snap *model.LedgerSnapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= pruneThreshold {
		c.prune()
	}

	entry := *snap
	entry.RiskReasons = append([]string(nil), snap.RiskReasons...)
	c.entries[snap.Address] = entry
}

// prune removes expired entries. The caller holds the write lock.
func (c *SnapshotCache) prune() int {
	now := c.now()
	pruned := 0
	for key, entry := range c.entries {
		if now.Sub(entry.FetchedAt) > c.ttl {
			delete(c.entries, key)
			pruned++
		}
	}
	return pruned
}
