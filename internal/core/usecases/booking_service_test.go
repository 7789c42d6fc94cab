package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
)

func newBookingService(bookings *mockBookingRepo, attempts *mockAttemptRepo, refresher *mockRefresher) *usecases.BookingService {
	avail := usecases.NewAvailabilityService(&mockAvailabilityRepo{}, nil, 0, time.UTC).WithClock(dayBefore)
	return usecases.NewBookingService(avail, bookings, attempts, refresher)
}

func TestBookingService_Submit_LocalValidation(t *testing.T) {
	tests := []struct {
		name string
		in   usecases.SubmitBookingInput
		want error
	}{
		{"no vehicle", usecases.SubmitBookingInput{Hours: []int{9}}, domain.ErrNoVehicle},
		{"no hours", usecases.SubmitBookingInput{VehicleID: "veh-1"}, domain.ErrNoSlots},
		{"gap", usecases.SubmitBookingInput{VehicleID: "veh-1", Hours: []int{9, 11}}, domain.ErrSelectionHasGaps},
		{"out of range", usecases.SubmitBookingInput{VehicleID: "veh-1", Hours: []int{24}}, domain.ErrSlotNotSelectable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := &mockBookingRepo{vehicles: []domain.Vehicle{testCar}}
			attempts := &mockAttemptRepo{}
			svc := newBookingService(bookings, attempts, nil)

			tt.in.UserID = "user-1"
			tt.in.LocationID = "loc-1"
			tt.in.Date = testDate
			_, err := svc.Submit(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if bookings.listCalls != 0 || len(bookings.Requests()) != 0 {
				t.Error("validation failure reached the backend")
			}
			if len(attempts.inserted) != 1 || attempts.inserted[0].Status != domain.AttemptRejected {
				t.Errorf("expected one rejected attempt, got %+v", attempts.inserted)
			}
		})
	}
}

func TestBookingService_Submit_UnknownVehicle(t *testing.T) {
	bookings := &mockBookingRepo{vehicles: []domain.Vehicle{testCar}}
	svc := newBookingService(bookings, nil, nil)
	_, err := svc.Submit(context.Background(), usecases.SubmitBookingInput{
		LocationID: "loc-1", Date: testDate, VehicleID: "veh-9", Hours: []int{9},
	})
	if !errors.Is(err, domain.ErrNoVehicle) {
		t.Fatalf("expected ErrNoVehicle, got %v", err)
	}
	if len(bookings.Requests()) != 0 {
		t.Error("unknown vehicle must not be booked")
	}
}

func TestBookingService_Submit_Success(t *testing.T) {
	bookings := &mockBookingRepo{vehicles: []domain.Vehicle{testCar}}
	attempts := &mockAttemptRepo{}
	refresher := &mockRefresher{}
	svc := newBookingService(bookings, attempts, refresher)

	b, err := svc.Submit(context.Background(), usecases.SubmitBookingInput{
		UserID: "user-1", LocationID: "loc-1", Date: testDate, VehicleID: "veh-1",
		Hours: []int{14, 13}, Features: domain.Features{Covered: true},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if b.TotalPrice != 7 {
		t.Errorf("total = %v, want 7", b.TotalPrice)
	}
	if len(refresher.Events()) != 1 {
		t.Errorf("expected availability refresh")
	}

	got, total, err := svc.Attempts(context.Background(), "user-1", 0, 10)
	if err != nil || total != 1 {
		t.Fatalf("attempts: total=%d err=%v", total, err)
	}
	a := got[0]
	if a.Status != domain.AttemptConfirmed || a.BookingID != "bk-1" || a.StartTime.Hour() != 13 || a.EndTime.Hour() != 15 {
		t.Errorf("unexpected attempt %+v", a)
	}
}

func TestBookingService_Submit_BackendFailureRecorded(t *testing.T) {
	bookings := &mockBookingRepo{
		vehicles: []domain.Vehicle{testCar},
		createFn: func(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
			return nil, &domain.RemoteError{Status: 409, Message: "Slot already taken"}
		},
	}
	attempts := &mockAttemptRepo{}
	svc := newBookingService(bookings, attempts, nil)

	_, err := svc.Submit(context.Background(), usecases.SubmitBookingInput{
		UserID: "user-1", LocationID: "loc-1", Date: testDate, VehicleID: "veh-1", Hours: []int{9},
	})
	if domain.UserMessage(err) != "Slot already taken" {
		t.Fatalf("unexpected error %v", err)
	}
	if len(attempts.inserted) != 1 || attempts.inserted[0].Status != domain.AttemptFailed {
		t.Errorf("expected failed attempt, got %+v", attempts.inserted)
	}
}

func TestBookingService_Quote(t *testing.T) {
	svc := newBookingService(&mockBookingRepo{}, nil, nil)

	q, err := svc.Quote(context.Background(), usecases.QuoteInput{
		LocationID: "loc-1", Date: testDate, VehicleType: domain.VehicleCar, Hours: []int{8, 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	if q.Contiguous || q.TotalPrice != 5 || q.Interval.End.Hour() != 11 {
		t.Errorf("unexpected quote %+v", q)
	}

	_, err = svc.Quote(context.Background(), usecases.QuoteInput{
		LocationID: "loc-1", Date: testDate, Hours: []int{3}, Features: domain.Features{Covered: true},
	})
	if !errors.Is(err, domain.ErrSlotNotSelectable) {
		t.Errorf("expected ErrSlotNotSelectable, got %v", err)
	}
}
