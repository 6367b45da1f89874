package sigcache

import "time"

// Record is one persisted thought-signature entry, keyed by the minted
// tool call ID.
type Record struct {
	ToolCallID  string
	Signature   string
	ThoughtText string
	CreatedAt   time.Time
}

// Store is the durable tier behind the in-memory cache.
type Store interface {
	Put(rec Record) error
	Get(toolCallID string) (Record, bool, error)
	// DeleteBefore removes entries created before cutoff and returns how
	// many were removed.
	DeleteBefore(cutoff time.Time) (int64, error)
	Count() (int, error)
	Clear() error
	Close() error
}
