package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/pkg/logging"
)

// HostService applies land-owner changes to pricing and listings.
type HostService struct {
	hosts     ports.HostRepository
	refresher ports.AvailabilityRefresher
}

// NewHostService creates a new HostService. refresher may be nil.
func NewHostService(hosts ports.HostRepository, refresher ports.AvailabilityRefresher) *HostService {
	return &HostService{hosts: hosts, refresher: refresher}
}

// UpdatePricing validates and stores new rates for the owner's location.
func (s *HostService) UpdatePricing(ctx context.Context, ownerID string, p domain.PricingInfo) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.hosts.UpdatePricing(ctx, p); err != nil {
		return fmt.Errorf("update pricing: %w", err)
	}
	s.refresh(ctx, ownerID, "pricing")
	return nil
}

// UpdateListing changes a car or bike parking listing of the owner.
func (s *HostService) UpdateListing(ctx context.Context, ownerID, kind, id string, u domain.ListingUpdate) error {
	if kind != domain.VehicleCar.ListingKind() && kind != domain.VehicleBike.ListingKind() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidListingKind, kind)
	}
	if id == "" {
		return fmt.Errorf("%w: listing id is required", domain.ErrInvalidListing)
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.hosts.UpdateListing(ctx, kind, id, u); err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	s.refresh(ctx, ownerID, "listing")
	return nil
}

func (s *HostService) refresh(ctx context.Context, locationID, reason string) {
	if s.refresher == nil || locationID == "" {
		return
	}
	ev := domain.AvailabilityChanged{LocationID: locationID, Reason: reason, At: time.Now()}
	if err := s.refresher.Refresh(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("availability refresh failed", "location_id", locationID, "reason", reason, "error", err)
	}
}
