package http

import (
	"context"
	"sync"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

const watcherQueueSize = 8

// watcher delivers events to one callback from its own goroutine, so a slow
// callback only delays itself.
type watcher struct {
	queue chan domain.AvailabilityChanged
	done  chan struct{}
}

func newWatcher(fn func(domain.AvailabilityChanged)) *watcher {
	w := &watcher{
		queue: make(chan domain.AvailabilityChanged, watcherQueueSize),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		for ev := range w.queue {
			fn(ev)
		}
	}()
	return w
}

// AvailabilityHub fans availability events out to the WebSocket sessions
// watching each location.
type AvailabilityHub struct {
	mu       sync.RWMutex
	nextID   uint64
	watchers map[string]map[uint64]*watcher
}

func NewAvailabilityHub() *AvailabilityHub {
	return &AvailabilityHub{watchers: make(map[string]map[uint64]*watcher)}
}

// Start feeds the hub from sub until ctx is done.
func (h *AvailabilityHub) Start(ctx context.Context, sub ports.EventSubscriber) error {
	return sub.SubscribeAvailability(ctx, h.Dispatch)
}

// Dispatch queues ev for every watcher of its location without waiting for
// any of them. A watcher whose queue is full misses the event.
func (h *AvailabilityHub) Dispatch(_ context.Context, ev domain.AvailabilityChanged) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, w := range h.watchers[ev.LocationID] {
		select {
		case w.queue <- ev:
		default:
			metrics.DroppedMessages.WithLabelValues("hub").Inc()
		}
	}
	return nil
}

// Watch registers fn for a location and returns its cancel func. fn runs on
// a goroutine owned by the hub; cancel waits for it to exit.
func (h *AvailabilityHub) Watch(locationID string, fn func(domain.AvailabilityChanged)) func() {
	w := newWatcher(fn)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.watchers[locationID] == nil {
		h.watchers[locationID] = make(map[uint64]*watcher)
	}
	h.watchers[locationID][id] = w
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers[locationID], id)
			if len(h.watchers[locationID]) == 0 {
				delete(h.watchers, locationID)
			}
			close(w.queue)
			h.mu.Unlock()
			<-w.done
		})
	}
}

// Watchers returns the number of watchers of a location.
func (h *AvailabilityHub) Watchers(locationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[locationID])
}
