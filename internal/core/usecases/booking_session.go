package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

// SessionState is a step of the booking modal.
type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateVehicleChosen    SessionState = "vehicle_chosen"
	StateSlotsLoading     SessionState = "slots_loading"
	StateSlotsReady       SessionState = "slots_ready"
	StateSelectionChanged SessionState = "selection_changed"
	StateSummaryReview    SessionState = "summary_review"
	StateSubmitting       SessionState = "submitting"
	StateConfirmed        SessionState = "confirmed"
	StateFailed           SessionState = "failed"
)

// BookingSession walks one user through booking a location: vehicle, date,
// features, hours, review and submission. It is safe for concurrent use.
type BookingSession struct {
	locationID   string
	availability *AvailabilityService
	bookings     ports.BookingRepository
	refresher    ports.AvailabilityRefresher
	log          *slog.Logger

	mu        sync.Mutex
	state     SessionState
	vehicle   *domain.Vehicle
	date      string
	features  domain.Features
	board     *domain.SlotBoard
	selection domain.SlotSelection
	loadGen   uint64
	lastErr   error
	booking   *domain.Booking
}

// NewBookingSession opens a session for one location. refresher may be nil.
func NewBookingSession(locationID string, availability *AvailabilityService, bookings ports.BookingRepository, refresher ports.AvailabilityRefresher, log *slog.Logger) *BookingSession {
	if log == nil {
		log = slog.Default()
	}
	return &BookingSession{
		locationID:   locationID,
		availability: availability,
		bookings:     bookings,
		refresher:    refresher,
		log:          log,
		state:        StateIdle,
	}
}

// ChooseVehicle sets the vehicle. Switching category invalidates the loaded
// board and the selection.
func (s *BookingSession) ChooseVehicle(v domain.Vehicle) error {
	if v.ID == "" {
		return domain.ErrNoVehicle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return domain.ErrSubmitting
	}
	if s.vehicle != nil && s.vehicle.Category != v.Category {
		s.board = nil
		s.selection.Clear()
		s.loadGen++
	}
	s.vehicle = &v
	s.state = StateVehicleChosen
	if s.board != nil {
		s.state = StateSlotsReady
	}
	return nil
}

// LoadSlots loads the board for date, clearing the selection first. When
// loads overlap only the latest one is kept.
func (s *BookingSession) LoadSlots(ctx context.Context, date string) error {
	s.mu.Lock()
	if s.vehicle == nil {
		s.mu.Unlock()
		return domain.ErrNoVehicle
	}
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return domain.ErrSubmitting
	}
	s.selection.Clear()
	s.date = date
	s.board = nil
	s.loadGen++
	gen := s.loadGen
	vt := s.vehicle.Category
	s.state = StateSlotsLoading
	s.mu.Unlock()

	board, err := s.availability.LoadSlots(ctx, s.locationID, date, vt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen {
		return context.Canceled
	}
	if err != nil {
		s.state = StateVehicleChosen
		s.lastErr = err
		return err
	}
	s.board = board
	s.state = StateSlotsReady
	return nil
}

// SetFeatures changes the feature preference. The selection is cleared and
// the board reloaded when a date is set.
func (s *BookingSession) SetFeatures(ctx context.Context, f domain.Features) error {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return domain.ErrSubmitting
	}
	s.features = f
	s.selection.Clear()
	date := s.date
	ready := s.vehicle != nil && date != ""
	s.mu.Unlock()

	if !ready {
		return nil
	}
	return s.LoadSlots(ctx, date)
}

// ToggleSlot adds or removes an hour. Only selectable hours can be added. It
// reports whether the hour is selected afterwards.
func (s *BookingSession) ToggleSlot(hour int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return false, domain.ErrSubmitting
	case StateConfirmed:
		return false, domain.ErrAlreadyConfirmed
	}
	if s.board == nil {
		return false, domain.ErrSlotsNotLoaded
	}
	if !s.selection.Contains(hour) {
		slot, ok := s.board.Slot(hour)
		if !ok || !domain.IsSlotSelectable(slot, s.features) {
			return false, domain.ErrSlotNotSelectable
		}
	}
	selected := s.selection.Toggle(hour)
	s.state = StateSelectionChanged
	return selected, nil
}

// Quote prices the current selection.
func (s *BookingSession) Quote() (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteLocked()
}

func (s *BookingSession) quoteLocked() (domain.Quote, error) {
	if s.board == nil {
		return domain.Quote{}, domain.ErrSlotsNotLoaded
	}
	day, err := s.availability.ParseDate(s.date)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.NewQuote(s.selection, day, s.features, s.board.Pricing)
}

// validateLocked runs the checks that must pass before anything is sent.
func (s *BookingSession) validateLocked() (domain.Quote, error) {
	if s.vehicle == nil {
		return domain.Quote{}, domain.ErrNoVehicle
	}
	if s.selection.Len() == 0 {
		return domain.Quote{}, domain.ErrNoSlots
	}
	if !s.selection.IsContiguous() {
		return domain.Quote{}, domain.ErrSelectionHasGaps
	}
	return s.quoteLocked()
}

// Review moves to the summary step.
func (s *BookingSession) Review() (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return domain.Quote{}, domain.ErrSubmitting
	case StateConfirmed:
		return domain.Quote{}, domain.ErrAlreadyConfirmed
	}
	q, err := s.validateLocked()
	if err != nil {
		s.lastErr = err
		return domain.Quote{}, err
	}
	s.state = StateSummaryReview
	return q, nil
}

// Submit sends the booking once. A failed submission leaves the session in
// StateFailed; the caller decides whether to submit again.
func (s *BookingSession) Submit(ctx context.Context) (*domain.Booking, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, domain.ErrSubmitting
	case StateConfirmed:
		s.mu.Unlock()
		return nil, domain.ErrAlreadyConfirmed
	}
	q, err := s.validateLocked()
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		metrics.BookingSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}
	req := domain.BookingRequest{
		VehicleID:          s.vehicle.ID,
		LandOwnerID:        s.locationID,
		StartTime:          q.Interval.Start,
		EndTime:            q.Interval.End,
		TotalPrice:         q.TotalPrice,
		HasCoveredParking:  s.features.Covered,
		HasChargingStation: s.features.Charging,
	}
	date := s.date
	s.state = StateSubmitting
	s.lastErr = nil
	s.mu.Unlock()

	booking, err := s.bookings.Create(ctx, req)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		s.mu.Unlock()
		metrics.BookingSubmissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.log.Warn("booking submission failed", "location_id", s.locationID, "error", err)
		return nil, err
	}
	s.state = StateConfirmed
	s.booking = booking
	s.mu.Unlock()
	metrics.BookingSubmissions.WithLabelValues(metrics.OutcomeOK).Inc()

	if s.refresher != nil {
		ev := domain.AvailabilityChanged{LocationID: s.locationID, Date: date, Reason: "booking", At: time.Now()}
		if err := s.refresher.Refresh(ctx, ev); err != nil {
			s.log.Warn("availability refresh failed", "location_id", s.locationID, "error", err)
		}
	}
	return booking, nil
}

func (s *BookingSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selection returns the selected hours in ascending order.
func (s *BookingSession) Selection() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Hours()
}

// Board returns the loaded board, or nil.
func (s *BookingSession) Board() *domain.SlotBoard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// LastError returns the most recent failure, or nil.
func (s *BookingSession) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ErrorMessage returns the text shown to the user for LastError.
func (s *BookingSession) ErrorMessage() string {
	return domain.UserMessage(s.LastError())
}
