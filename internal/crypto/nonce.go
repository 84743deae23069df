package crypto

import (
	"sync"
	"time"
)

// NonceSource hands out millisecond timestamps that strictly increase across
// calls, even when two calls land in the same clock tick. Safe for
// concurrent use.
type NonceSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewNonceSource returns a NonceSource reading the given clock. A nil clock
// means time.Now.
func NewNonceSource(now func() time.Time) *NonceSource {
	if now == nil {
		now = time.Now
	}
	return &NonceSource{now: now}
}

// Next returns the next nonce.
func (n *NonceSource) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := n.now().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return ms
}
