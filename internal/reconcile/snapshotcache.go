package reconcile

import (
	"sync"

	"github.com/opencustody/walletsync/internal/types"
)

const snapshotCapacity = 300

// snapshotCache remembers the last remote transaction record applied per
// (wallet, tx) so a repeated poll that reports nothing new can be skipped.
// Bounded so a long-lived worker cannot grow it without limit; eviction is
// arbitrary, a miss only costs one redundant merge.
type snapshotCache struct {
	mu       sync.Mutex
	items    map[string]types.TransactionDTO
	capacity int
}

func newSnapshotCache(capacity int) *snapshotCache {
	return &snapshotCache{
		items:    make(map[string]types.TransactionDTO, capacity),
		capacity: capacity,
	}
}

func snapshotKey(walletID, txID string) string {
	return walletID + "/" + txID
}

func (c *snapshotCache) Add(walletID, txID string, dto types.TransactionDTO) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.capacity {
		for k := range c.items {
			delete(c.items, k)
			break
		}
	}
	c.items[snapshotKey(walletID, txID)] = dto
}

// Unchanged reports whether the incoming record matches the snapshot we
// already applied.
func (c *snapshotCache) Unchanged(walletID, txID string, dto types.TransactionDTO) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.items[snapshotKey(walletID, txID)]
	return ok && cached == dto
}

func (c *snapshotCache) Remove(walletID, txID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, snapshotKey(walletID, txID))
}
