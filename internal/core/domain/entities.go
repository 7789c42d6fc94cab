package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// PlaceCategory is the kind of spot a place offers.
type PlaceCategory string

const (
	CategoryParking  PlaceCategory = "parking"
	CategoryCharging PlaceCategory = "charging"
)

// SpotCount is a total/available pair for one feature combination.
type SpotCount struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// SpotCounts breaks a place's inventory out by feature combination.
type SpotCounts struct {
	Basic              SpotCount `json:"basic"`
	Covered            SpotCount `json:"covered"`
	Charging           SpotCount `json:"charging"`
	CoveredAndCharging SpotCount `json:"coveredAndCharging"`
}

// PlaceSummary is an immutable snapshot of a place returned by one query.
type PlaceSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Location    GeoPoint      `json:"location"`
	Category    PlaceCategory `json:"category"`
	Address     string        `json:"address"`
	Rating      float64       `json:"rating"`
	HourlyPrice float64       `json:"hourlyPrice"`
	Spots       SpotCounts    `json:"spots"`
	Amenities   []string      `json:"amenities"`
	Images      []string      `json:"images"`
}

// UnmarshalJSON validates a backend place at the decoding boundary and fills
// defaults for optional fields.
func (p *PlaceSummary) UnmarshalJSON(data []byte) error {
	type raw PlaceSummary
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPlace)
	}
	switch r.Category {
	case CategoryParking, CategoryCharging:
	case "":
		r.Category = CategoryParking
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidPlace, r.Category)
	}
	if r.Amenities == nil {
		r.Amenities = []string{}
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	*p = PlaceSummary(r)
	return nil
}

// VehicleCategory selects which inventory a booking draws from.
type VehicleCategory string

const (
	VehicleCar  VehicleCategory = "car"
	VehicleBike VehicleCategory = "bike"
)

// ParseVehicleCategory accepts the backend's vehicle type strings.
func ParseVehicleCategory(s string) (VehicleCategory, error) {
	switch VehicleCategory(s) {
	case VehicleCar, VehicleBike:
		return VehicleCategory(s), nil
	}
	return "", fmt.Errorf("unknown vehicle type %q", s)
}

// ListingKind returns the host listing path segment for the category.
func (c VehicleCategory) ListingKind() string {
	if c == VehicleBike {
		return "bikeParking"
	}
	return "carParking"
}

// Vehicle is a user's registered vehicle.
type Vehicle struct {
	ID       string          `json:"id"`
	Plate    string          `json:"plate,omitempty"`
	Name     string          `json:"name,omitempty"`
	Category VehicleCategory `json:"type"`
}

// BookingRequest is the payload posted to the backend.
type BookingRequest struct {
	VehicleID          string    `json:"vehicleId"`
	LandOwnerID        string    `json:"landOwnerId"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	TotalPrice         float64   `json:"totalPrice"`
	HasCoveredParking  bool      `json:"hasCoveredParking"`
	HasChargingStation bool      `json:"hasChargingStation"`
}

// Booking is the record the backend returns for a created booking.
type Booking struct {
	ID                 string    `json:"id"`
	VehicleID          string    `json:"vehicleId"`
	LandOwnerID        string    `json:"landOwnerId"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	TotalPrice         float64   `json:"totalPrice"`
	Status             string    `json:"status"`
	HasCoveredParking  bool      `json:"hasCoveredParking"`
	HasChargingStation bool      `json:"hasChargingStation"`
}

// AttemptStatus is the outcome recorded for a booking submission.
type AttemptStatus string

const (
	AttemptConfirmed AttemptStatus = "confirmed"
	AttemptFailed    AttemptStatus = "failed"
	AttemptRejected  AttemptStatus = "rejected"
)

// BookingAttempt is one row of the submission ledger.
type BookingAttempt struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	LocationID string        `json:"location_id"`
	VehicleID  string        `json:"vehicle_id"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	TotalPrice float64       `json:"total_price"`
	Features   Features      `json:"features"`
	Status     AttemptStatus `json:"status"`
	BookingID  string        `json:"booking_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ListingUpdate carries host-side field changes for one listing.
type ListingUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Address       *string  `json:"address,omitempty"`
	TotalSpots    *int     `json:"totalSpots,omitempty"`
	CoveredSpots  *int     `json:"coveredSpots,omitempty"`
	ChargingSpots *int     `json:"chargingSpots,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
}

// Validate rejects negative spot counts and feature counts above the total.
// Fields are checked in declaration order.
func (u ListingUpdate) Validate() error {
	counts := []struct {
		name string
		v    *int
	}{
		{"totalSpots", u.TotalSpots},
		{"coveredSpots", u.CoveredSpots},
		{"chargingSpots", u.ChargingSpots},
	}
	for _, c := range counts {
		if c.v != nil && *c.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidListing, c.name)
		}
	}
	if u.TotalSpots == nil {
		return nil
	}
	for _, c := range counts[1:] {
		if c.v != nil && *c.v > *u.TotalSpots {
			return fmt.Errorf("%w: %s exceeds totalSpots", ErrInvalidListing, c.name)
		}
	}
	return nil
}

// AvailabilityChanged is published when a location's inventory changed.
type AvailabilityChanged struct {
	LocationID string    `json:"location_id"`
	Date       string    `json:"date"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
