package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
)

// --- Fake timers ---

type fakeTimer struct {
	s       *fakeScheduler
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) usecases.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, f: f}
	s.timers = append(s.timers, t)
	s.delays = append(s.delays, d)
	return t
}

// fire runs every timer that is still armed.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	var due []func()
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t.f)
		}
	}
	s.mu.Unlock()
	for _, f := range due {
		f()
	}
}

// fireStopped runs timers that were stopped, as a real timer may when Stop
// races with expiry.
func (s *fakeScheduler) fireStopped() {
	s.mu.Lock()
	var due []func()
	for _, t := range s.timers {
		if t.stopped {
			due = append(due, t.f)
		}
	}
	s.mu.Unlock()
	for _, f := range due {
		f()
	}
}

// --- Helpers ---

func places(ids ...string) []domain.PlaceSummary {
	out := make([]domain.PlaceSummary, len(ids))
	for i, id := range ids {
		out[i] = domain.PlaceSummary{ID: id, Name: "P " + id, Category: domain.CategoryParking,
			Location: domain.GeoPoint{Lat: 43.26, Lng: -2.93}}
	}
	return out
}

var bilbao = domain.GeoRegion{
	NorthEast: domain.GeoPoint{Lat: 43.28, Lng: -2.90},
	SouthWest: domain.GeoPoint{Lat: 43.24, Lng: -2.96},
}

func newSync(t *testing.T, repo *mockPlaceRepo, opts ...usecases.SyncOption) (*usecases.ViewportSynchronizer, chan usecases.MarkerUpdate) {
	t.Helper()
	maps := usecases.NewMapService(repo, mockResolver{}, &mockRouter{}, nil, usecases.DefaultMapOptions())
	updates := make(chan usecases.MarkerUpdate, 16)
	v := usecases.NewViewportSynchronizer(context.Background(), maps, func(u usecases.MarkerUpdate) { updates <- u }, opts...)
	t.Cleanup(v.Close)
	return v, updates
}

func waitUpdate(t *testing.T, ch chan usecases.MarkerUpdate) usecases.MarkerUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for marker update")
	}
	return usecases.MarkerUpdate{}
}

func expectNoUpdate(t *testing.T, ch chan usecases.MarkerUpdate) {
	t.Helper()
	select {
	case u := <-ch:
		t.Fatalf("unexpected marker update: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

// --- Tests ---

func TestViewportSynchronizer_DebouncesBounds(t *testing.T) {
	var mu sync.Mutex
	var queries []domain.NearbyQuery
	repo := &mockPlaceRepo{
		nearbyFn: func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
			mu.Lock()
			queries = append(queries, q)
			mu.Unlock()
			return places("a"), nil
		},
	}
	sched := &fakeScheduler{}
	v, updates := newSync(t, repo, usecases.WithAfterFunc(sched.AfterFunc), usecases.WithDebounce(500*time.Millisecond))

	for i := 0; i < 3; i++ {
		r := bilbao
		r.NorthEast.Lat += float64(i) * 0.01
		if err := v.OnBoundsSettled(r); err != nil {
			t.Fatalf("bounds %d: %v", i, err)
		}
	}
	if len(sched.timers) != 3 {
		t.Fatalf("expected 3 scheduled timers, got %d", len(sched.timers))
	}
	if sched.delays[0] != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %v", sched.delays[0])
	}

	sched.fireStopped()
	sched.fire()
	u := waitUpdate(t, updates)
	expectNoUpdate(t, updates)

	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 1 {
		t.Fatalf("expected exactly 1 query, got %d", len(queries))
	}
	if want := bilbao.NorthEast.Lat + 0.02; queries[0].Center.Lat != (want+bilbao.SouthWest.Lat)/2 {
		t.Errorf("query used stale viewport: center %+v", queries[0].Center)
	}
	if u.Kind != usecases.KindNearby || len(u.Markers) != 1 {
		t.Errorf("unexpected update %+v", u)
	}
}

func TestViewportSynchronizer_InvalidRegion(t *testing.T) {
	sched := &fakeScheduler{}
	v, _ := newSync(t, &mockPlaceRepo{}, usecases.WithAfterFunc(sched.AfterFunc))
	bad := domain.GeoRegion{NorthEast: domain.GeoPoint{Lat: 91}, SouthWest: domain.GeoPoint{}}
	if err := v.OnBoundsSettled(bad); !errors.Is(err, domain.ErrInvalidRegion) {
		t.Fatalf("expected ErrInvalidRegion, got %v", err)
	}
	if len(sched.timers) != 0 {
		t.Error("invalid region must not schedule a query")
	}
}

func TestViewportSynchronizer_LastRequestWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	repo := &mockPlaceRepo{
		nearbyFn: func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
			if q.Center.Lat == 1 {
				started <- struct{}{}
				<-release // ignores ctx on purpose: the stale result must still be dropped
				return places("stale"), nil
			}
			return places("fresh"), nil
		},
	}
	v, updates := newSync(t, repo)

	if err := v.OnLocationResolved(domain.GeoPoint{Lat: 1, Lng: 1}); err != nil {
		t.Fatal(err)
	}
	<-started
	if err := v.OnLocationResolved(domain.GeoPoint{Lat: 2, Lng: 2}); err != nil {
		t.Fatal(err)
	}
	u := waitUpdate(t, updates)
	if u.Markers[0].Place.ID != "fresh" {
		t.Fatalf("expected fresh markers, got %s", u.Markers[0].Place.ID)
	}

	close(release)
	expectNoUpdate(t, updates)
	if got := v.Markers(); len(got) != 1 || got[0].Place.ID != "fresh" {
		t.Errorf("stale result replaced markers: %+v", got)
	}
}

func TestViewportSynchronizer_RouteCancelsNearby(t *testing.T) {
	cancelled := make(chan struct{})
	repo := &mockPlaceRepo{
		nearbyFn: func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
		alongRouteFn: func(ctx context.Context, q domain.AlongRouteQuery) ([]domain.PlaceSummary, error) {
			if q.EncodedPolyline == "" || q.BufferKm != 2 {
				t.Errorf("unexpected route query %+v", q)
			}
			return places("r1", "r2"), nil
		},
	}
	maps := usecases.NewMapService(repo, mockResolver{
		"o": {Lat: 43.26, Lng: -2.93},
		"d": {Lat: 43.32, Lng: -1.98},
	}, &mockRouter{}, nil, usecases.DefaultMapOptions())
	updates := make(chan usecases.MarkerUpdate, 4)
	v := usecases.NewViewportSynchronizer(context.Background(), maps, func(u usecases.MarkerUpdate) { updates <- u })
	defer v.Close()

	if err := v.OnLocationResolved(domain.GeoPoint{Lat: 43.26, Lng: -2.93}); err != nil {
		t.Fatal(err)
	}
	if err := v.OnRouteRequested("o", "d"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("nearby query was not cancelled")
	}
	u := waitUpdate(t, updates)
	if u.Kind != usecases.KindAlongRoute || len(u.Markers) != 2 {
		t.Errorf("unexpected update %+v", u)
	}
}

func TestViewportSynchronizer_NewMarkersOnlyForUnseen(t *testing.T) {
	var mu sync.Mutex
	results := [][]domain.PlaceSummary{places("a", "b", "c"), places("b", "c"), places("c", "d", "e")}
	repo := &mockPlaceRepo{
		nearbyFn: func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
			mu.Lock()
			defer mu.Unlock()
			r := results[0]
			results = results[1:]
			return r, nil
		},
	}
	v, updates := newSync(t, repo, usecases.WithMarkerStagger(50*time.Millisecond))

	_ = v.OnLocationResolved(domain.GeoPoint{Lat: 43.26, Lng: -2.93})
	first := waitUpdate(t, updates)
	if first.NewCount != 3 {
		t.Fatalf("expected 3 new markers, got %d", first.NewCount)
	}
	for i, m := range first.Markers {
		if want := int64(i * 50); m.EnterDelayMs != want {
			t.Errorf("marker %d delay = %d, want %d", i, m.EnterDelayMs, want)
		}
	}

	_ = v.OnLocationResolved(domain.GeoPoint{Lat: 43.27, Lng: -2.93})
	subset := waitUpdate(t, updates)
	if subset.NewCount != 0 || len(subset.Markers) != 2 {
		t.Fatalf("subset query: new=%d markers=%d", subset.NewCount, len(subset.Markers))
	}

	_ = v.OnLocationResolved(domain.GeoPoint{Lat: 43.28, Lng: -2.93})
	third := waitUpdate(t, updates)
	if third.NewCount != 2 {
		t.Fatalf("expected 2 new markers, got %d", third.NewCount)
	}
	if third.Markers[0].IsNew || third.Markers[1].EnterDelayMs != 0 || third.Markers[2].EnterDelayMs != 50 {
		t.Errorf("unexpected stagger: %+v", third.Markers)
	}
}

func TestViewportSynchronizer_FailureKeepsMarkers(t *testing.T) {
	fail := false
	var mu sync.Mutex
	repo := &mockPlaceRepo{
		nearbyFn: func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
			mu.Lock()
			defer mu.Unlock()
			if fail {
				return nil, errors.New("backend down")
			}
			return places("a", "b"), nil
		},
	}
	v, updates := newSync(t, repo)

	_ = v.OnLocationResolved(domain.GeoPoint{Lat: 43.26, Lng: -2.93})
	waitUpdate(t, updates)

	mu.Lock()
	fail = true
	mu.Unlock()
	_ = v.OnLocationResolved(domain.GeoPoint{Lat: 43.27, Lng: -2.93})
	expectNoUpdate(t, updates)

	if got := v.Markers(); len(got) != 2 {
		t.Errorf("expected previous 2 markers kept, got %d", len(got))
	}
	if c := v.Center(); c.Lat != 43.27 {
		t.Errorf("center not updated: %+v", c)
	}
}

func TestViewportSynchronizer_Close(t *testing.T) {
	sched := &fakeScheduler{}
	returned := make(chan struct{})
	repo := &mockPlaceRepo{
		nearbyFn: func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
			<-ctx.Done()
			close(returned)
			return nil, ctx.Err()
		},
	}
	v, updates := newSync(t, repo, usecases.WithAfterFunc(sched.AfterFunc))

	_ = v.OnBoundsSettled(bilbao)
	_ = v.OnLocationResolved(domain.GeoPoint{Lat: 43.26, Lng: -2.93})
	v.Close()

	select {
	case <-returned:
	default:
		t.Fatal("Close returned before the in-flight query finished")
	}
	if !sched.timers[0].stopped {
		t.Error("pending debounce timer not stopped")
	}
	if err := v.OnBoundsSettled(bilbao); !errors.Is(err, usecases.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	expectNoUpdate(t, updates)
}
