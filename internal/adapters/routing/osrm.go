// Package routing computes driving routes with OSRM and resolves place ids
// with Nominatim.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/pkg/geospatial"
)

// OSRM implements ports.RouteProvider against an OSRM HTTP server.
type OSRM struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewOSRM(baseURL, userAgent string, timeout time.Duration) *OSRM {
	return &OSRM{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Route returns the fastest driving route between two points.
func (o *OSRM) Route(ctx context.Context, from, to domain.GeoPoint) (*domain.Route, error) {
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=polyline",
		o.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("osrm: build request: %w", err)
	}
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm: %w", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("osrm: decode response (status %d): %w", resp.StatusCode, err)
	}
	if body.Code != "Ok" {
		return nil, fmt.Errorf("osrm: %s: %s", body.Code, body.Message)
	}
	if len(body.Routes) == 0 {
		return nil, fmt.Errorf("osrm: %w: no route", domain.ErrNotFound)
	}

	r := body.Routes[0]
	coords, err := geospatial.DecodePolyline(r.Geometry)
	if err != nil {
		return nil, fmt.Errorf("osrm: decode geometry: %w", err)
	}
	path := make([]domain.GeoPoint, len(coords))
	for i, c := range coords {
		path[i] = domain.GeoPoint{Lat: c[0], Lng: c[1]}
	}

	return &domain.Route{
		Encoded:         r.Geometry,
		Path:            path,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}, nil
}
