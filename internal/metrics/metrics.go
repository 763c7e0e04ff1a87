package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry holds the order engine counters.
type Registry struct {
	OrdersOpened      Counter
	OrdersUpdated     Counter
	OrdersPending     Counter
	OrdersClosed      Counter
	OrdersCancelled   Counter
	OrdersTransferred Counter
	OrdersDeleted     Counter
	LineItemsAdded    Counter
	TxFailures        Counter
	PrintFailures     Counter
	EventFailures     Counter
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"orders_opened":      r.OrdersOpened.Load(),
		"orders_updated":     r.OrdersUpdated.Load(),
		"orders_pending":     r.OrdersPending.Load(),
		"orders_closed":      r.OrdersClosed.Load(),
		"orders_cancelled":   r.OrdersCancelled.Load(),
		"orders_transferred": r.OrdersTransferred.Load(),
		"orders_deleted":     r.OrdersDeleted.Load(),
		"line_items_added":   r.LineItemsAdded.Load(),
		"tx_failures":        r.TxFailures.Load(),
		"print_failures":     r.PrintFailures.Load(),
		"event_failures":     r.EventFailures.Load(),
	}
}

// Handler serves the current snapshot as JSON.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.Snapshot())
	}
}
