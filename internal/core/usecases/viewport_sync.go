package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/pkg/logging"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

var ErrSessionClosed = errors.New("viewport session closed")

// Timer is the handle of a scheduled debounce callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via a wrapper.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// MarkerUpdate is delivered to the session sink after a successful query.
type MarkerUpdate struct {
	Kind     string          `json:"kind"`
	Markers  []Marker        `json:"markers"`
	NewCount int             `json:"newCount"`
	Center   domain.GeoPoint `json:"center"`
}

// SyncOption configures a ViewportSynchronizer.
type SyncOption func(*ViewportSynchronizer)

// WithDebounce overrides the bounds debounce delay.
func WithDebounce(d time.Duration) SyncOption {
	return func(v *ViewportSynchronizer) { v.debounce = d }
}

// WithAfterFunc replaces the timer source.
func WithAfterFunc(fn AfterFunc) SyncOption {
	return func(v *ViewportSynchronizer) { v.afterFunc = fn }
}

// WithMarkerStagger sets the entrance delay step between new markers.
func WithMarkerStagger(d time.Duration) SyncOption {
	return func(v *ViewportSynchronizer) { v.markers = NewMarkerSet(d) }
}

// ViewportSynchronizer turns one client's map navigation into place queries.
// Bounds updates are debounced; every issued query cancels the one in flight
// so only the latest query can update the marker set. The sink is called with
// the session lock held and must not call back into the synchronizer.
type ViewportSynchronizer struct {
	maps      *MapService
	sink      func(MarkerUpdate)
	log       *slog.Logger
	debounce  time.Duration
	afterFunc AfterFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	pending    Timer
	pendingGen uint64
	inflight   context.CancelFunc
	markers    *MarkerSet
	current    []Marker
	center     domain.GeoPoint
}

// NewViewportSynchronizer creates a session bound to ctx.
func NewViewportSynchronizer(ctx context.Context, maps *MapService, sink func(MarkerUpdate), opts ...SyncOption) *ViewportSynchronizer {
	sctx, cancel := context.WithCancel(ctx)
	v := &ViewportSynchronizer{
		maps:      maps,
		sink:      sink,
		log:       logging.FromContext(ctx),
		debounce:  500 * time.Millisecond,
		afterFunc: realAfterFunc,
		ctx:       sctx,
		cancel:    cancel,
		markers:   NewMarkerSet(50 * time.Millisecond),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// OnBoundsSettled schedules a nearby query for region once the viewport has
// been still for the debounce delay. A later call replaces the pending one.
func (v *ViewportSynchronizer) OnBoundsSettled(region domain.GeoRegion) error {
	if err := region.Validate(); err != nil {
		return err
	}
	q := v.maps.QueryForRegion(region)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrSessionClosed
	}
	v.stopPendingLocked()
	gen := v.pendingGen
	v.pending = v.afterFunc(v.debounce, func() {
		v.mu.Lock()
		current := gen == v.pendingGen && !v.closed
		if current {
			v.pending = nil
			v.center = q.Center
		}
		v.mu.Unlock()
		if current {
			v.issue(NearbyStrategy(q))
		}
	})
	return nil
}

// OnLocationResolved recenters the session and queries immediately.
func (v *ViewportSynchronizer) OnLocationResolved(p domain.GeoPoint) error {
	if err := p.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrSessionClosed
	}
	v.stopPendingLocked()
	v.center = p
	v.mu.Unlock()

	v.issue(NearbyStrategy(v.maps.QueryAround(p)))
	return nil
}

// OnRouteRequested queries places along the route between two place ids.
func (v *ViewportSynchronizer) OnRouteRequested(originID, destinationID string) error {
	if originID == "" || destinationID == "" {
		return errors.New("origin and destination are required")
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrSessionClosed
	}
	v.stopPendingLocked()
	v.mu.Unlock()

	v.issue(AlongRouteStrategy(originID, destinationID))
	return nil
}

// Markers returns the marker set from the latest successful query.
func (v *ViewportSynchronizer) Markers() []Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Marker(nil), v.current...)
}

// Center returns the last viewport or searched center.
func (v *ViewportSynchronizer) Center() domain.GeoPoint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.center
}

// Close stops pending work and waits for running queries to return.
func (v *ViewportSynchronizer) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.stopPendingLocked()
	v.mu.Unlock()

	v.cancel()
	v.wg.Wait()
}

func (v *ViewportSynchronizer) stopPendingLocked() {
	v.pendingGen++
	if v.pending != nil {
		if v.pending.Stop() {
			metrics.DebouncedBounds.Inc()
		}
		v.pending = nil
	}
}

// issue cancels the in-flight query and starts q in its place.
func (v *ViewportSynchronizer) issue(q PlaceQuery) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if v.inflight != nil {
		v.inflight()
	}
	ctx, cancel := context.WithCancel(v.ctx)
	v.inflight = cancel
	v.wg.Add(1)
	v.mu.Unlock()

	go v.run(ctx, cancel, q)
}

func (v *ViewportSynchronizer) run(ctx context.Context, cancel context.CancelFunc, q PlaceQuery) {
	defer v.wg.Done()
	defer cancel()

	start := time.Now()
	places, err := q.Run(ctx, v.maps)

	v.mu.Lock()
	defer v.mu.Unlock()

	if ctx.Err() != nil || domain.IsCancelled(err) {
		metrics.ObserveMapQuery(q.Kind(), metrics.OutcomeCancelled, time.Since(start))
		v.log.Debug("map query superseded", "kind", q.Kind())
		return
	}
	if err != nil {
		metrics.ObserveMapQuery(q.Kind(), metrics.OutcomeFailed, time.Since(start))
		v.log.Warn("map query failed, keeping previous markers", "kind", q.Kind(), "error", err)
		return
	}
	metrics.ObserveMapQuery(q.Kind(), metrics.OutcomeOK, time.Since(start))

	markers := v.markers.Reconcile(places)
	v.current = markers
	n := CountNew(markers)
	metrics.NewMarkers.Add(float64(n))

	if v.sink != nil {
		v.sink(MarkerUpdate{Kind: q.Kind(), Markers: markers, NewCount: n, Center: v.center})
	}
}
