package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/pkg/logging"
)

// Nearby implements ports.PlaceRepository.
func (c *Client) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(q.Center.Lat, 'f', 6, 64))
	query.Set("lng", strconv.FormatFloat(q.Center.Lng, 'f', 6, 64))
	query.Set("radiusKm", strconv.FormatFloat(q.RadiusKm, 'f', 3, 64))
	query.Set("limit", strconv.Itoa(q.Limit))

	var raw json.RawMessage
	if err := c.do(ctx, "nearby", http.MethodGet, "/map/nearby", query, nil, &raw); err != nil {
		return nil, err
	}
	return decodePlaces(ctx, raw)
}

// AlongRoute implements ports.PlaceRepository. The backend takes the route
// as a JSON body on a GET.
func (c *Client) AlongRoute(ctx context.Context, q domain.AlongRouteQuery) ([]domain.PlaceSummary, error) {
	body := struct {
		EncodedPolyline string  `json:"encodedPolyline"`
		BufferKm        float64 `json:"bufferKm"`
		Limit           int     `json:"limit"`
	}{q.EncodedPolyline, q.BufferKm, q.Limit}

	var raw json.RawMessage
	if err := c.do(ctx, "along_route", http.MethodGet, "/map/along-route", nil, body, &raw); err != nil {
		return nil, err
	}
	return decodePlaces(ctx, raw)
}

// decodePlaces drops places that fail validation instead of failing the
// whole result.
func decodePlaces(ctx context.Context, raw json.RawMessage) ([]domain.PlaceSummary, error) {
	items, err := decodeList(raw, "places")
	if err != nil {
		return nil, err
	}
	places := make([]domain.PlaceSummary, 0, len(items))
	for _, item := range items {
		var p domain.PlaceSummary
		if err := json.Unmarshal(item, &p); err != nil {
			logging.FromContext(ctx).Warn("skipping invalid place", "error", err)
			continue
		}
		places = append(places, p)
	}
	return places, nil
}
