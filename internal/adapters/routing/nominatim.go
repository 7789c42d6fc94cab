package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// Nominatim implements ports.PlaceResolver with the Nominatim lookup API.
// Place ids are OSM ids such as "N240109189", "way/4235", or a literal
// "lat,lng" pair.
type Nominatim struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// Resolve returns the coordinates of a place id.
func (n *Nominatim) Resolve(ctx context.Context, placeID string) (domain.GeoPoint, error) {
	if p, ok := parseLatLng(placeID); ok {
		return p, nil
	}
	osmID, err := normalizeOSMID(placeID)
	if err != nil {
		return domain.GeoPoint{}, err
	}

	u := fmt.Sprintf("%s/lookup?osm_ids=%s&format=json", n.baseURL, url.QueryEscape(osmID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("nominatim: build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.http.Do(req)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GeoPoint{}, fmt.Errorf("nominatim: unexpected status code: %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("nominatim: decode response: %w", err)
	}
	if len(results) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("nominatim: %w: %s", domain.ErrNotFound, placeID)
	}

	lat, err1 := strconv.ParseFloat(results[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(results[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return domain.GeoPoint{}, fmt.Errorf("nominatim: bad coordinates %q,%q", results[0].Lat, results[0].Lon)
	}
	return domain.GeoPoint{Lat: lat, Lng: lng}, nil
}

func parseLatLng(s string) (domain.GeoPoint, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.GeoPoint{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Lat: lat, Lng: lng}
	return p, p.Validate() == nil
}

// normalizeOSMID turns "node/123", "n123" or "N123" into "N123".
func normalizeOSMID(id string) (string, error) {
	id = strings.TrimSpace(id)
	prefixes := map[string]string{"node/": "N", "way/": "W", "relation/": "R"}
	for long, short := range prefixes {
		if strings.HasPrefix(strings.ToLower(id), long) {
			id = short + id[len(long):]
			break
		}
	}
	if len(id) < 2 {
		return "", fmt.Errorf("%w: invalid place id %q", domain.ErrNotFound, id)
	}
	kind := strings.ToUpper(id[:1])
	if kind != "N" && kind != "W" && kind != "R" {
		return "", fmt.Errorf("%w: invalid place id %q", domain.ErrNotFound, id)
	}
	if _, err := strconv.ParseUint(id[1:], 10, 64); err != nil {
		return "", fmt.Errorf("%w: invalid place id %q", domain.ErrNotFound, id)
	}
	return kind + id[1:], nil
}
