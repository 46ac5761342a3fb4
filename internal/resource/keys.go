package resource

import (
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator produces resource keys for string-keyed resources when a
// created entity reaches persistence without one.
// Implemented by UUIDv7Keys (production) and FixedKeys (tests).
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Keys generates time-sortable UUIDv7 keys.
//
// UUIDv7 embeds a timestamp in the most significant bits, so keys sort by
// creation time. Stateless and safe for concurrent use.
type UUIDv7Keys struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Keys) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedKeys returns predetermined keys in order.
//
// Safe for concurrent use. Panics once all keys are consumed, which
// surfaces a test that creates more entities than it planned for.
type FixedKeys struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewFixedKeys creates a generator that returns keys in order.
func NewFixedKeys(keys ...string) *FixedKeys {
	return &FixedKeys{keys: keys}
}

func (g *FixedKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic("FixedKeys: all keys exhausted")
	}
	key := g.keys[g.idx]
	g.idx++
	return key
}
