package cache

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/filingqa/internal/model"
)

// RecentFloor stands in for an absent date floor in evidence keys
const RecentFloor = "recent"

// EvidenceCache memoizes fetched evidence for the life of a session.
//
// Entries never expire. Empty results are not stored, so a later lookup
// for the same key fetches again. Lookups for one key are serialized so
// concurrent questions sharing the cache do not fetch twice.
type EvidenceCache struct {
	items *gocache.Cache

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewEvidenceCache creates an empty session cache
func NewEvidenceCache() *EvidenceCache {
	return &EvidenceCache{
		items: gocache.New(gocache.NoExpiration, 0),
		locks: make(map[string]*sync.Mutex),
	}
}

// EvidenceKey builds the composite (company, forms, floor) key. Forms are
// sorted so the key does not depend on request order.
func EvidenceKey(company string, documentTypes []string, dateFloor string) string {
	forms := append([]string(nil), documentTypes...)
	sort.Strings(forms)
	if dateFloor == "" {
		dateFloor = RecentFloor
	}
	return company + "|" + strings.Join(forms, "-") + "|" + dateFloor
}

// GetOrFetch returns cached evidence for the key, invoking fetch on a miss
func (c *EvidenceCache) GetOrFetch(company string, documentTypes []string, dateFloor string, fetch func() []model.EvidenceRecord) []model.EvidenceRecord {
	key := EvidenceKey(company, documentTypes, dateFloor)

	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if records, ok := c.Get(key); ok {
		c.hits.Add(1)
		return records
	}

	c.misses.Add(1)
	records := fetch()
	if len(records) == 0 {
		return nil
	}

	c.items.Set(key, cloneRecords(records), gocache.NoExpiration)
	return cloneRecords(records)
}

// Get returns a copy of the records stored under key
func (c *EvidenceCache) Get(key string) ([]model.EvidenceRecord, bool) {
	val, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	return cloneRecords(val.([]model.EvidenceRecord)), true
}

// Len returns the number of cached keys
func (c *EvidenceCache) Len() int {
	return c.items.ItemCount()
}

// CacheStats counts lookups since the cache was created
type CacheStats struct {
	Hits   int64
	Misses int64
}

// Stats returns hit and miss counts
func (c *EvidenceCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *EvidenceCache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

func cloneRecords(records []model.EvidenceRecord) []model.EvidenceRecord {
	return append([]model.EvidenceRecord(nil), records...)
}
