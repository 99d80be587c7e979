package notify

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"auction-house/utils"
)

// Publisher delivers one encoded event to a broker or sink
type Publisher interface {
	Publish(ctx context.Context, id string, topic string, payload []byte) error
}

const defaultPublishTimeout = 5 * time.Second

// Dispatcher decouples notification delivery from the core: Notify only
// enqueues, and a pool of workers publishes in the background. When the queue
// is full the event is dropped and counted.
type Dispatcher struct {
	publisher      Publisher
	events         chan Event
	workers        int
	publishTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher creates a dispatcher with a queue of size buffer served by workers goroutines
func NewDispatcher(publisher Publisher, buffer, workers int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		publisher:      publisher,
		events:         make(chan Event, buffer),
		workers:        workers,
		publishTimeout: defaultPublishTimeout,
	}
}

// Start launches the workers. They stop when ctx is cancelled or Close drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Notify enqueues the event, dropping it if the queue is full or the dispatcher is closed
func (d *Dispatcher) Notify(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.events <- event:
	default:
		d.dropped.Add(1)
		utils.Warn("notification queue full, dropping event", map[string]any{
			"event_id":     event.EventID,
			"kind":         event.Kind,
			"recipient_id": event.RecipientID,
		})
	}
}

// Close stops accepting events and waits for the workers to drain the queue
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Dropped returns how many events were never handed to the publisher
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns how many publish attempts returned an error
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.events:
			if !ok {
				return
			}
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.failed.Add(1)
		utils.Error("failed to encode notification", map[string]any{"event_id": event.EventID, "error": err.Error()})
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(pubCtx, event.EventID, string(event.Kind), payload); err != nil {
		d.failed.Add(1)
		utils.Error("failed to publish notification", map[string]any{
			"event_id":     event.EventID,
			"kind":         event.Kind,
			"recipient_id": event.RecipientID,
			"error":        err.Error(),
		})
		return
	}

	utils.Debug("notification published", map[string]any{"event_id": event.EventID, "kind": event.Kind})
}

// LogPublisher writes events to the structured log instead of a broker
type LogPublisher struct{}

// Publish implements Publisher.
func (LogPublisher) Publish(_ context.Context, id string, topic string, payload []byte) error {
	utils.Info("notification", map[string]any{
		"event_id": id,
		"topic":    topic,
		"payload":  string(payload),
	})
	return nil
}
