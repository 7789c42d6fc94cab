package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

// invalidateWindowDays is how many days ahead Invalidate clears when no date
// is given.
const invalidateWindowDays = 7

// AvailabilityService loads slot boards and keeps their cache coherent.
type AvailabilityService struct {
	repo  ports.AvailabilityRepository
	cache ports.CacheService
	ttl   time.Duration
	loc   *time.Location
	now   func() time.Time
}

// NewAvailabilityService creates a new AvailabilityService. Dates are
// interpreted in loc.
func NewAvailabilityService(repo ports.AvailabilityRepository, cache ports.CacheService, ttl time.Duration, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{repo: repo, cache: cache, ttl: ttl, loc: loc, now: time.Now}
}

// WithClock replaces the clock used to mark past slots.
func (s *AvailabilityService) WithClock(now func() time.Time) *AvailabilityService {
	s.now = now
	return s
}

// Location returns the time zone booking dates are interpreted in.
func (s *AvailabilityService) Location() *time.Location {
	return s.loc
}

// ParseDate parses a YYYY-MM-DD booking date in the service time zone.
func (s *AvailabilityService) ParseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(domain.DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return day, nil
}

// Today returns the current date in the service time zone.
func (s *AvailabilityService) Today() string {
	return s.now().In(s.loc).Format(domain.DateLayout)
}

func slotsCacheKey(locationID, date string, vt domain.VehicleCategory) string {
	return fmt.Sprintf("slots:%s:%s:%s", locationID, date, vt)
}

// LoadSlots returns the hourly board of a location. Boards are cached as
// received; past slots are marked on every load.
func (s *AvailabilityService) LoadSlots(ctx context.Context, locationID, date string, vt domain.VehicleCategory) (*domain.SlotBoard, error) {
	if locationID == "" {
		return nil, fmt.Errorf("location id is required")
	}
	if _, err := s.ParseDate(date); err != nil {
		return nil, err
	}
	if vt == "" {
		vt = domain.VehicleCar
	}

	key := slotsCacheKey(locationID, date, vt)
	var board *domain.SlotBoard
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var cached domain.SlotBoard
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("slots").Inc()
				board = &cached
			}
		}
	}

	if board == nil {
		if s.cache != nil {
			metrics.CacheMisses.WithLabelValues("slots").Inc()
		}
		fetched, err := s.repo.Slots(ctx, locationID, date, vt)
		if err != nil {
			return nil, err
		}
		fetched.LocationID = locationID
		fetched.Date = date
		fetched.VehicleType = vt
		if err := fetched.Validate(); err != nil {
			return nil, err
		}
		if s.cache != nil && s.ttl > 0 {
			if data, err := json.Marshal(fetched); err == nil {
				_ = s.cache.Set(ctx, key, data, int(s.ttl.Seconds()))
			}
		}
		board = fetched
	}

	if err := board.MarkPast(s.now(), s.loc); err != nil {
		return nil, err
	}
	return board, nil
}

// Invalidate drops cached boards of a location for date, or for the next
// week when date is empty.
func (s *AvailabilityService) Invalidate(ctx context.Context, locationID, date string) error {
	if s.cache == nil {
		return nil
	}
	dates := []string{date}
	if date == "" {
		dates = dates[:0]
		today := s.now().In(s.loc)
		for i := 0; i < invalidateWindowDays; i++ {
			dates = append(dates, today.AddDate(0, 0, i).Format(domain.DateLayout))
		}
	}
	for _, d := range dates {
		for _, vt := range []domain.VehicleCategory{domain.VehicleCar, domain.VehicleBike} {
			if err := s.cache.Delete(ctx, slotsCacheKey(locationID, d, vt)); err != nil {
				return fmt.Errorf("invalidate %s %s: %w", locationID, d, err)
			}
		}
	}
	return nil
}
