/*
Package live delivers push-on-write updates.

PURPOSE:
  The store publishes a records.Change after every committed write. Anything
  that shows derived money (totals, debt lists, dashboards) subscribes to the
  tables it reads and recomputes when they change. There is no cache and no
  invalidation step: the next evaluation simply reads fresh rows.

KEY TYPES:
  Hub:   fan-out of changes to subscribers, filtered by table
  Watch: turns a query function into a channel of fresh results

DELIVERY:
  Publish never blocks a writer. Each subscriber has a small buffer; when it
  is full further changes are dropped for that subscriber. A pending change
  already guarantees a recompute, so nothing is lost for Watch.

SEE ALSO:
  - records/store.go: Change, Table, Notifier
  - store/sqlite/sqlite.go: publishes after each write
*/
package live

import (
	"sync"

	"github.com/warp/crew-ledger/records"
)

const subscriberBuffer = 16

type subscription struct {
	tables map[records.Table]struct{} // nil means every table
	once   sync.Once
}

func (s *subscription) wants(t records.Table) bool {
	if s.tables == nil {
		return true
	}
	_, ok := s.tables[t]
	return ok
}

// Hub manages change subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan records.Change]*subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan records.Change]*subscription)}
}

// Subscribe registers for changes on tables (all tables when none given).
// The returned func unsubscribes and closes the channel; calling it twice
// is safe.
func (h *Hub) Subscribe(tables ...records.Table) (<-chan records.Change, func()) {
	sub := &subscription{}
	if len(tables) > 0 {
		sub.tables = make(map[records.Table]struct{}, len(tables))
		for _, t := range tables {
			sub.tables[t] = struct{}{}
		}
	}

	ch := make(chan records.Change, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = sub
	h.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish hands c to every subscriber of its table without blocking.
func (h *Hub) Publish(c records.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch, sub := range h.subs {
		if c.Op != records.OpReset && !sub.wants(c.Table) {
			continue
		}
		select {
		case ch <- c:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
