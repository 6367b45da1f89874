package sigcache

import (
	"sync"
	"time"

	"geminibridge/internal/logger"
)

const (
	// l1Cap bounds the hot in-memory tier.
	l1Cap = 1000
	// entryTTL is how long a signature stays usable in either tier.
	entryTTL = time.Hour
	// sweepInterval is how often expired entries are purged.
	sweepInterval = 10 * time.Minute
)

type l1Entry struct {
	signature   string
	thoughtText string
	createdAt   time.Time
}

// Cache maps minted tool call IDs to the thought signature (and thought
// text) that accompanied them, so follow-up turns can restore reasoning
// context the caller's dialect cannot carry. Lookups hit the in-memory tier
// first and fall through to the durable store.
type Cache struct {
	mu      sync.Mutex
	entries map[string]l1Entry
	order   []string // insertion order, oldest first

	store Store

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a cache over the given durable store and starts the background
// sweeper. Call Destroy to release it.
func New(store Store) *Cache {
	c := &Cache{
		entries: make(map[string]l1Entry),
		store:   store,
		stop:    make(chan struct{}),
	}
	c.sweep()
	go c.sweepLoop()
	return c
}

// Store records a signature under the minted tool call ID in both tiers.
func (c *Cache) Store(toolCallID, signature, thoughtText string) {
	now := time.Now()

	c.mu.Lock()
	if _, exists := c.entries[toolCallID]; !exists {
		if len(c.order) >= l1Cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, toolCallID)
	}
	c.entries[toolCallID] = l1Entry{signature: signature, thoughtText: thoughtText, createdAt: now}
	c.mu.Unlock()

	if err := c.store.Put(Record{ToolCallID: toolCallID, Signature: signature, ThoughtText: thoughtText, CreatedAt: now}); err != nil {
		logger.Get().Warn().Err(err).Str("tool_call_id", toolCallID).Msg("Could not persist signature")
	}
}

// Get returns the signature and thought text stored for the tool call ID.
// Expired entries are treated as misses.
func (c *Cache) Get(toolCallID string) (signature, thoughtText string, ok bool) {
	now := time.Now()

	c.mu.Lock()
	if e, found := c.entries[toolCallID]; found {
		if now.Sub(e.createdAt) <= entryTTL {
			c.mu.Unlock()
			return e.signature, e.thoughtText, true
		}
		delete(c.entries, toolCallID)
		c.removeFromOrder(toolCallID)
	}
	c.mu.Unlock()

	rec, found, err := c.store.Get(toolCallID)
	if err != nil {
		logger.Get().Warn().Err(err).Str("tool_call_id", toolCallID).Msg("Could not load signature")
		return "", "", false
	}
	if !found || now.Sub(rec.CreatedAt) > entryTTL {
		return "", "", false
	}

	// Promote the durable hit into the hot tier.
	c.mu.Lock()
	if _, exists := c.entries[toolCallID]; !exists {
		if len(c.order) >= l1Cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, toolCallID)
	}
	c.entries[toolCallID] = l1Entry{signature: rec.Signature, thoughtText: rec.ThoughtText, createdAt: rec.CreatedAt}
	c.mu.Unlock()

	return rec.Signature, rec.ThoughtText, true
}

// Has reports whether a usable entry exists for the tool call ID.
func (c *Cache) Has(toolCallID string) bool {
	_, _, ok := c.Get(toolCallID)
	return ok
}

// Size returns the number of entries in the hot tier.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties both tiers.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]l1Entry)
	c.order = nil
	c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		logger.Get().Warn().Err(err).Msg("Could not clear signature store")
	}
}

// Destroy stops the sweeper and closes the durable store.
func (c *Cache) Destroy() {
	c.stopOnce.Do(func() { close(c.stop) })
	if err := c.store.Close(); err != nil {
		logger.Get().Warn().Err(err).Msg("Could not close signature store")
	}
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep() {
	cutoff := time.Now().Add(-entryTTL)

	c.mu.Lock()
	kept := c.order[:0]
	for _, id := range c.order {
		if e, ok := c.entries[id]; ok && e.createdAt.After(cutoff) {
			kept = append(kept, id)
		} else {
			delete(c.entries, id)
		}
	}
	c.order = kept
	c.mu.Unlock()

	removed, err := c.store.DeleteBefore(cutoff)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("Signature sweep failed")
		return
	}
	if removed > 0 {
		logger.Get().Debug().Int64("removed", removed).Msg("Swept expired signatures")
	}
}

// removeFromOrder drops one ID from the insertion-order slice. Caller holds
// the lock.
func (c *Cache) removeFromOrder(toolCallID string) {
	for i, id := range c.order {
		if id == toolCallID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
