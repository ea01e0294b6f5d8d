package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/api/metrics"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 10 * time.Second
)

// Dispatcher routes order events to a fixed set of workers using consistent
// hashing on the order id, preserving per-order publication order.
type Dispatcher struct {
	workers   []chan domain.OrderEvent
	publisher ports.OrderEventPublisher
	log       zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers, each
// buffering up to bufferSize events. Non-positive values select defaults.
func NewDispatcher(numWorkers, bufferSize int, publisher ports.OrderEventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if bufferSize <= 0 {
		bufferSize = channelBuffer
	}
	d := &Dispatcher{
		workers:   make([]chan domain.OrderEvent, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.OrderEvent, bufferSize)
	}
	return d
}

// Start launches all worker goroutines. ctx supplies request scoped values to
// publish calls; workers run until Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(base, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for its order. It never
// blocks: when the worker queue is full or the dispatcher has stopped the
// event is dropped and logged.
func (d *Dispatcher) Enqueue(event domain.OrderEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(event, "dispatcher stopped")
		return
	}

	idx := d.shardIndex(event.OrderID)
	select {
	case d.workers[idx] <- event:
		metrics.OrderEventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(event, "worker queue full")
	}
}

// Stop refuses new events, lets workers drain what is queued and waits for
// them to exit or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps an order id deterministically to a worker index.
func (d *Dispatcher) shardIndex(orderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) drop(event domain.OrderEvent, reason string) {
	metrics.OrderEventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
	d.log.Warn().
		Str("event", string(event.Type)).
		Str("order_number", event.OrderNumber).
		Str("reason", reason).
		Msg("order event dropped")
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.OrderEvent) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)

	for event := range ch {
		metrics.OrderEventsQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))

		start := time.Now()
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := d.publisher.Publish(pubCtx, event)
		cancel()

		result := "ok"
		if err != nil {
			result = "error"
			d.log.Error().Err(err).
				Str("event", string(event.Type)).
				Str("order_number", event.OrderNumber).
				Int("worker_id", id).
				Msg("order event publication failed")
		}
		metrics.OrderEventPublishDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
		metrics.OrderEventsPublishedTotal.WithLabelValues(string(event.Type), result).Inc()
	}
}
