package calendar

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

// CacheEntry represents a cached projection
type CacheEntry struct {
	FamilyID   uuid.UUID
	Days       []custody.DayAssignment
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// ProjectionCache caches projections keyed by a hash of everything that
// determines them: the pattern definition, the accepted exceptions and the range.
type ProjectionCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// CacheConfig holds configuration for the projection cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for projection caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewProjectionCache creates a new projection cache with the given configuration
func NewProjectionCache(config CacheConfig) *ProjectionCache {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	cache := &ProjectionCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// generateCacheKey hashes every input the projection depends on. Only accepted
// exceptions are included because proposed and rejected ones cannot change the output.
func (c *ProjectionCache) generateCacheKey(operation string, p *custody.CustodyPattern, exceptions []custody.CustodyException, rangeStart, rangeEnd time.Time) string {
	hasher := sha256.New()

	fmt.Fprintf(hasher, "%s|%s|%s|%s|%s|", operation, p.ID, p.Type, dateutil.FormatDate(p.StartDate), p.StartingParent)
	for _, parent := range p.CustomSequence {
		fmt.Fprintf(hasher, "%s,", parent)
	}
	fmt.Fprintf(hasher, "|%s|%s|", dateutil.FormatDate(rangeStart), dateutil.FormatDate(rangeEnd))

	accepted := make([]custody.CustodyException, 0, len(exceptions))
	for _, ex := range exceptions {
		if ex.Status == custody.StatusAccepted {
			accepted = append(accepted, ex)
		}
	}
	slices.SortFunc(accepted, func(a, b custody.CustodyException) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	for _, ex := range accepted {
		responded := ""
		if ex.RespondedAt != nil {
			responded = ex.RespondedAt.Format(time.RFC3339Nano)
		}
		fmt.Fprintf(hasher, "%s|%s|%s|%s|%s|%s;", ex.ID, dateutil.FormatDate(ex.Date), ex.NewParent, ex.Reason,
			ex.CreatedAt.Format(time.RFC3339Nano), responded)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached projection if it exists and hasn't expired.
// The returned slice is a copy.
func (c *ProjectionCache) Get(operation string, p *custody.CustodyPattern, exceptions []custody.CustodyException, rangeStart, rangeEnd time.Time) ([]custody.DayAssignment, bool) {
	key := c.generateCacheKey(operation, p, exceptions, rangeStart, rangeEnd)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	entry.AccessedAt = now
	return slices.Clone(entry.Days), true
}

// Set stores a projection in the cache
func (c *ProjectionCache) Set(operation string, p *custody.CustodyPattern, exceptions []custody.CustodyException, rangeStart, rangeEnd time.Time, days []custody.DayAssignment) {
	key := c.generateCacheKey(operation, p, exceptions, rangeStart, rangeEnd)
	now := time.Now()

	entry := &CacheEntry{
		FamilyID:   p.FamilyID,
		Days:       slices.Clone(days),
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// InvalidateFamily drops every entry computed for the family.
func (c *ProjectionCache) InvalidateFamily(familyID uuid.UUID) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.FamilyID == familyID {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// cleanup removes expired entries and, if still over the limit, the least
// recently accessed ones. Must be called with the mutex held.
func (c *ProjectionCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	keyAccessList := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keyAccessList = append(keyAccessList, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	slices.SortFunc(keyAccessList, func(a, b keyAccess) int {
		return a.accessedAt.Compare(b.accessedAt)
	})

	entriesToRemove := len(c.entries) - c.maxEntries
	for i := 0; i < entriesToRemove; i++ {
		delete(c.entries, keyAccessList[i].key)
	}
}

// cleanupLoop runs periodic cleanup
func (c *ProjectionCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache
func (c *ProjectionCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *ProjectionCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := time.Now()

	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
	}
}

// CacheStats provides information about cache occupancy
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
