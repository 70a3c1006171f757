package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
	"github.com/librario/lending-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes circulation events to a fixed set of workers using
// consistent hashing on the book id, so the events of one book are recorded
// in order.
type Dispatcher struct {
	workers []chan domain.CirculationEvent
	audit   ports.AuditService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, audit ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.CirculationEvent, numWorkers),
		audit:   audit,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.CirculationEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Publish hands event to the worker responsible for its book. It never
// blocks: when that worker's queue is full the event is dropped and counted.
func (d *Dispatcher) Publish(event domain.CirculationEvent) {
	idx := d.shardIndex(event.BookID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsDroppedTotal.Inc()
		d.log.Warn().
			Str("type", string(event.Type)).
			Str("book_id", event.BookID).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps a book id deterministically to a worker index.
func (d *Dispatcher) shardIndex(bookID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(bookID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.CirculationEvent) {
	defer d.wg.Done()
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			depth.Set(float64(len(ch)))
			if err := d.audit.Record(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("book_id", event.BookID).
					Int("worker_id", id).
					Msg("circulation event not recorded")
			}
		}
	}
}
