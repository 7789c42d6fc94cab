package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/pkg/logging"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

// SubmitBookingInput is one booking request from the REST surface.
type SubmitBookingInput struct {
	UserID     string
	LocationID string
	Date       string
	VehicleID  string
	Hours      []int
	Features   domain.Features
}

// QuoteInput prices hours without booking them.
type QuoteInput struct {
	LocationID  string
	Date        string
	VehicleType domain.VehicleCategory
	Hours       []int
	Features    domain.Features
}

// BookingService runs booking sessions for stateless API callers and keeps
// the submission ledger.
type BookingService struct {
	availability *AvailabilityService
	bookings     ports.BookingRepository
	attempts     ports.AttemptRepository
	refresher    ports.AvailabilityRefresher
}

// NewBookingService creates a new BookingService. attempts and refresher may
// be nil.
func NewBookingService(availability *AvailabilityService, bookings ports.BookingRepository, attempts ports.AttemptRepository, refresher ports.AvailabilityRefresher) *BookingService {
	return &BookingService{availability: availability, bookings: bookings, attempts: attempts, refresher: refresher}
}

// NewSession opens an interactive session for a location.
func (s *BookingService) NewSession(ctx context.Context, locationID string) *BookingSession {
	return NewBookingSession(locationID, s.availability, s.bookings, s.refresher, logging.FromContext(ctx))
}

func validateHours(hours []int) (domain.SlotSelection, error) {
	if len(hours) == 0 {
		return domain.SlotSelection{}, domain.ErrNoSlots
	}
	for _, h := range hours {
		if h < 0 || h >= domain.SlotsPerDay {
			return domain.SlotSelection{}, fmt.Errorf("%w: hour %d", domain.ErrSlotNotSelectable, h)
		}
	}
	return domain.NewSlotSelection(hours...), nil
}

// Quote prices hours at a location against fresh availability.
func (s *BookingService) Quote(ctx context.Context, in QuoteInput) (domain.Quote, error) {
	sel, err := validateHours(in.Hours)
	if err != nil {
		return domain.Quote{}, err
	}
	day, err := s.availability.ParseDate(in.Date)
	if err != nil {
		return domain.Quote{}, err
	}
	board, err := s.availability.LoadSlots(ctx, in.LocationID, in.Date, in.VehicleType)
	if err != nil {
		return domain.Quote{}, err
	}
	for _, h := range sel.Hours() {
		slot, ok := board.Slot(h)
		if !ok || !domain.IsSlotSelectable(slot, in.Features) {
			return domain.Quote{}, fmt.Errorf("%w: hour %d", domain.ErrSlotNotSelectable, h)
		}
	}
	return domain.NewQuote(sel, day, in.Features, board.Pricing)
}

// Submit validates the request locally, replays it through a BookingSession
// and records the outcome. Local validation failures never reach the backend.
func (s *BookingService) Submit(ctx context.Context, in SubmitBookingInput) (*domain.Booking, error) {
	booking, err := s.submit(ctx, in)
	s.record(ctx, in, booking, err)
	return booking, err
}

func (s *BookingService) submit(ctx context.Context, in SubmitBookingInput) (*domain.Booking, error) {
	if in.VehicleID == "" {
		return nil, domain.ErrNoVehicle
	}
	sel, err := validateHours(in.Hours)
	if err != nil {
		return nil, err
	}
	if !sel.IsContiguous() {
		return nil, domain.ErrSelectionHasGaps
	}
	if _, err := s.availability.ParseDate(in.Date); err != nil {
		return nil, err
	}

	vehicles, err := s.bookings.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	var vehicle *domain.Vehicle
	for i := range vehicles {
		if vehicles[i].ID == in.VehicleID {
			vehicle = &vehicles[i]
			break
		}
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: unknown vehicle %s", domain.ErrNoVehicle, in.VehicleID)
	}

	session := s.NewSession(ctx, in.LocationID)
	if err := session.ChooseVehicle(*vehicle); err != nil {
		return nil, err
	}
	if err := session.SetFeatures(ctx, in.Features); err != nil {
		return nil, err
	}
	if err := session.LoadSlots(ctx, in.Date); err != nil {
		return nil, err
	}
	for _, h := range sel.Hours() {
		if _, err := session.ToggleSlot(h); err != nil {
			return nil, fmt.Errorf("%w: hour %d", err, h)
		}
	}
	if _, err := session.Review(); err != nil {
		return nil, err
	}
	return session.Submit(ctx)
}

// record appends the outcome to the ledger. Ledger failures are logged only.
func (s *BookingService) record(ctx context.Context, in SubmitBookingInput, booking *domain.Booking, err error) {
	if s.attempts == nil || in.UserID == "" {
		return
	}
	a := &domain.BookingAttempt{
		UserID:     in.UserID,
		LocationID: in.LocationID,
		VehicleID:  in.VehicleID,
		Features:   in.Features,
		Status:     domain.AttemptConfirmed,
	}
	if day, perr := s.availability.ParseDate(in.Date); perr == nil && len(in.Hours) > 0 {
		if iv, ierr := domain.BuildBookingInterval(domain.NewSlotSelection(in.Hours...), day); ierr == nil {
			a.StartTime, a.EndTime = iv.Start, iv.End
		}
	}
	switch {
	case err == nil:
		a.BookingID = booking.ID
		a.TotalPrice = booking.TotalPrice
	case domain.IsValidation(err):
		a.Status = domain.AttemptRejected
		a.Error = domain.UserMessage(err)
		metrics.BookingSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
	default:
		a.Status = domain.AttemptFailed
		a.Error = err.Error()
	}

	// The request context may already be gone when the client disconnected.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if ierr := s.attempts.Insert(rctx, a); ierr != nil {
		logging.FromContext(ctx).Warn("record booking attempt", "user_id", in.UserID, "error", ierr)
	}
}

// ListVehicles returns the caller's vehicles.
func (s *BookingService) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return s.bookings.ListVehicles(ctx)
}

// Attempts pages through a user's submission ledger.
func (s *BookingService) Attempts(ctx context.Context, userID string, offset, limit int) ([]domain.BookingAttempt, int, error) {
	if s.attempts == nil {
		return nil, 0, errors.New("booking ledger is not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.attempts.ListByUser(ctx, userID, offset, limit)
}
