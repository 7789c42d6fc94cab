package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/pkg/geospatial"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

// MapOptions bounds the place queries built from viewports and routes.
type MapOptions struct {
	NearbyLimit    int
	MinRadiusKm    float64
	MaxRadiusKm    float64
	SearchRadiusKm float64
	RouteBufferKm  float64
	RouteLimit     int
	NearbyCacheTTL time.Duration
}

// DefaultMapOptions mirrors the configuration defaults.
func DefaultMapOptions() MapOptions {
	return MapOptions{
		NearbyLimit:    100,
		MinRadiusKm:    0.5,
		MaxRadiusKm:    50,
		SearchRadiusKm: 5,
		RouteBufferKm:  2,
		RouteLimit:     50,
		NearbyCacheTTL: time.Minute,
	}
}

// MapService handles place discovery around points and along routes.
type MapService struct {
	places   ports.PlaceRepository
	resolver ports.PlaceResolver
	router   ports.RouteProvider
	cache    ports.CacheService
	opts     MapOptions
}

// NewMapService creates a new MapService.
func NewMapService(places ports.PlaceRepository, resolver ports.PlaceResolver, router ports.RouteProvider, cache ports.CacheService, opts MapOptions) *MapService {
	return &MapService{places: places, resolver: resolver, router: router, cache: cache, opts: opts}
}

// Options returns the query bounds in use.
func (s *MapService) Options() MapOptions {
	return s.opts
}

// QueryForRegion derives a nearby query from a viewport.
func (s *MapService) QueryForRegion(r domain.GeoRegion) domain.NearbyQuery {
	return domain.NearbyQuery{
		Center:   r.Center(),
		RadiusKm: geospatial.ClampKm(r.RadiusKm(), s.opts.MinRadiusKm, s.opts.MaxRadiusKm),
		Limit:    s.opts.NearbyLimit,
	}
}

// QueryAround derives a nearby query around a searched location.
func (s *MapService) QueryAround(p domain.GeoPoint) domain.NearbyQuery {
	return domain.NearbyQuery{Center: p, RadiusKm: s.opts.SearchRadiusKm, Limit: s.opts.NearbyLimit}
}

// Nearby returns places within q.RadiusKm of q.Center.
func (s *MapService) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 || q.Limit > s.opts.NearbyLimit {
		q.Limit = s.opts.NearbyLimit
	}
	q.RadiusKm = geospatial.ClampKm(q.RadiusKm, s.opts.MinRadiusKm, s.opts.MaxRadiusKm)

	cacheKey := fmt.Sprintf("places:nearby:%.4f:%.4f:%.2f:%d", q.Center.Lat, q.Center.Lng, q.RadiusKm, q.Limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var places []domain.PlaceSummary
			if err := json.Unmarshal(data, &places); err == nil {
				metrics.CacheHits.WithLabelValues("nearby").Inc()
				return places, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("nearby").Inc()
	}

	places, err := s.places.Nearby(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.opts.NearbyCacheTTL > 0 {
		if data, err := json.Marshal(places); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, int(s.opts.NearbyCacheTTL.Seconds()))
		}
	}

	return places, nil
}

// RouteQuery resolves both place ids concurrently, computes the route between
// them and returns the along-route query for it.
func (s *MapService) RouteQuery(ctx context.Context, originID, destinationID string) (domain.AlongRouteQuery, error) {
	if originID == "" || destinationID == "" {
		return domain.AlongRouteQuery{}, fmt.Errorf("origin and destination are required")
	}

	var from, to domain.GeoPoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.resolver.Resolve(gctx, originID)
		if err != nil {
			return fmt.Errorf("resolve origin %s: %w", originID, err)
		}
		from = p
		return nil
	})
	g.Go(func() error {
		p, err := s.resolver.Resolve(gctx, destinationID)
		if err != nil {
			return fmt.Errorf("resolve destination %s: %w", destinationID, err)
		}
		to = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.AlongRouteQuery{}, err
	}

	route, err := s.router.Route(ctx, from, to)
	if err != nil {
		return domain.AlongRouteQuery{}, fmt.Errorf("compute route: %w", err)
	}

	encoded := route.Encoded
	if encoded == "" {
		coords := make([][2]float64, len(route.Path))
		for i, p := range route.Path {
			coords[i] = [2]float64{p.Lat, p.Lng}
		}
		encoded = geospatial.EncodePolyline(coords)
	}

	return domain.AlongRouteQuery{
		EncodedPolyline: encoded,
		BufferKm:        s.opts.RouteBufferKm,
		Limit:           s.opts.RouteLimit,
	}, nil
}

// AlongRoute returns places within q.BufferKm of the encoded route.
func (s *MapService) AlongRoute(ctx context.Context, q domain.AlongRouteQuery) ([]domain.PlaceSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 || q.Limit > s.opts.RouteLimit {
		q.Limit = s.opts.RouteLimit
	}
	return s.places.AlongRoute(ctx, q)
}

// PlacesAlongRoute runs RouteQuery followed by AlongRoute.
func (s *MapService) PlacesAlongRoute(ctx context.Context, originID, destinationID string) ([]domain.PlaceSummary, error) {
	q, err := s.RouteQuery(ctx, originID, destinationID)
	if err != nil {
		return nil, err
	}
	return s.AlongRoute(ctx, q)
}

// PlaceQuery is one strategy for turning user navigation into places.
type PlaceQuery interface {
	Kind() string
	Run(ctx context.Context, maps *MapService) ([]domain.PlaceSummary, error)
}

// Strategy kinds.
const (
	KindNearby     = "nearby"
	KindAlongRoute = "along_route"
)

type nearbyQuery struct {
	q domain.NearbyQuery
}

// NearbyStrategy queries a radius around a point.
func NearbyStrategy(q domain.NearbyQuery) PlaceQuery { return nearbyQuery{q: q} }

func (n nearbyQuery) Kind() string { return KindNearby }

func (n nearbyQuery) Run(ctx context.Context, maps *MapService) ([]domain.PlaceSummary, error) {
	return maps.Nearby(ctx, n.q)
}

type routeQuery struct {
	origin, destination string
}

// AlongRouteStrategy queries a buffer around the route between two places.
func AlongRouteStrategy(originID, destinationID string) PlaceQuery {
	return routeQuery{origin: originID, destination: destinationID}
}

func (r routeQuery) Kind() string { return KindAlongRoute }

func (r routeQuery) Run(ctx context.Context, maps *MapService) ([]domain.PlaceSummary, error) {
	return maps.PlacesAlongRoute(ctx, r.origin, r.destination)
}
