package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// Slots implements ports.AvailabilityRepository.
func (c *Client) Slots(ctx context.Context, locationID, date string, vt domain.VehicleCategory) (*domain.SlotBoard, error) {
	query := url.Values{}
	query.Set("date", date)
	query.Set("vehicleType", string(vt))

	var board domain.SlotBoard
	path := "/map/availability/slots/" + url.PathEscape(locationID)
	if err := c.do(ctx, "slots", http.MethodGet, path, query, nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// Create implements ports.BookingRepository.
func (c *Client) Create(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "create_booking", http.MethodPost, "/user/bookings", nil, req, &raw); err != nil {
		return nil, err
	}

	var env struct {
		Booking *domain.Booking `json:"booking"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Booking != nil {
		return env.Booking, nil
	}
	var b domain.Booking
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("create_booking: decode response: %w", err)
	}
	return &b, nil
}

// ListVehicles implements ports.BookingRepository.
func (c *Client) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "vehicles", http.MethodGet, "/user/vehicles", nil, nil, &raw); err != nil {
		return nil, err
	}
	items, err := decodeList(raw, "vehicles")
	if err != nil {
		return nil, fmt.Errorf("vehicles: decode response: %w", err)
	}
	vehicles := make([]domain.Vehicle, 0, len(items))
	for _, item := range items {
		var v domain.Vehicle
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("vehicles: decode vehicle: %w", err)
		}
		if v.Category == "" {
			v.Category = domain.VehicleCar
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

// UpdatePricing implements ports.HostRepository.
func (c *Client) UpdatePricing(ctx context.Context, p domain.PricingInfo) error {
	return c.do(ctx, "update_pricing", http.MethodPatch, "/landOwner/pricing", nil, p, nil)
}

// UpdateListing implements ports.HostRepository.
func (c *Client) UpdateListing(ctx context.Context, kind, id string, u domain.ListingUpdate) error {
	path := fmt.Sprintf("/landOwner/%s/%s", url.PathEscape(kind), url.PathEscape(id))
	return c.do(ctx, "update_listing", http.MethodPatch, path, nil, u, nil)
}
