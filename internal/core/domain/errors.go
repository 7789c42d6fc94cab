package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidRegion      = errors.New("invalid region")
	ErrNotFound           = errors.New("not found")
	ErrNoVehicle          = errors.New("please select a vehicle")
	ErrNoSlots            = errors.New("please select at least one time slot")
	ErrSelectionHasGaps   = errors.New("selected hours must be consecutive")
	ErrSlotNotSelectable  = errors.New("time slot is not available")
	ErrSlotsNotLoaded     = errors.New("time slots have not been loaded")
	ErrSubmitting         = errors.New("booking submission already in progress")
	ErrAlreadyConfirmed   = errors.New("booking already confirmed")
	ErrInvalidPricing     = errors.New("invalid pricing")
	ErrInvalidSlotBoard   = errors.New("invalid slot board")
	ErrInvalidPlace       = errors.New("invalid place")
	ErrInvalidListingKind = errors.New("invalid listing kind")
	ErrInvalidListing     = errors.New("invalid listing")
)

// IsValidation reports whether err is a local validation failure that must
// never reach the network.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoVehicle) ||
		errors.Is(err, ErrNoSlots) ||
		errors.Is(err, ErrSelectionHasGaps) ||
		errors.Is(err, ErrSlotNotSelectable)
}

// IsCancelled distinguishes a superseded or aborted request from a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// RemoteError is a failure reported by the Parkit backend. Message holds the
// backend's own error text when it sent one.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// GenericBookingFailure is shown when the backend gave no usable message.
const GenericBookingFailure = "Failed to create booking. Please try again."

// UserMessage picks the text shown to a user for a failed operation: local
// validation text, then the backend's message verbatim, then a generic one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsValidation(err) {
		return err.Error()
	}
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return GenericBookingFailure
}
