package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/point-ledger/internal/metrics"
	"github.com/baharkarakas/point-ledger/internal/services"
	"github.com/baharkarakas/point-ledger/internal/worker"
)

var _ services.ChangeNotifier = (*Dispatcher)(nil)

// Dispatcher moves publishing off the request path. Events for one user go
// through the same worker, so they reach the publisher in Notify order.
// Notify never blocks: when the user's shard is full the event is dropped.
// Drops and publish failures are logged and counted; the ledger change
// already happened.
type Dispatcher struct {
	pub     Publisher
	pool    *worker.Pool
	log     *slog.Logger
	timeout time.Duration
}

func NewDispatcher(pub Publisher, pool *worker.Pool, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{pub: pub, pool: pool, log: log, timeout: 5 * time.Second}
}

func (d *Dispatcher) Notify(c services.Change) {
	ev := FromChange(c)
	if !d.pool.TrySubmit(ev.UserID, func() { d.publish(ev) }) {
		metrics.EventsPublished.WithLabelValues("dropped").Inc()
		d.log.Warn("event dropped, queue full or dispatcher stopped", "user_id", ev.UserID, "history_id", ev.HistoryID)
	}
}

func (d *Dispatcher) publish(ev PointChanged) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.pub.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues("failed").Inc()
		d.log.Error("publish point event", "err", err, "user_id", ev.UserID, "history_id", ev.HistoryID)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}
