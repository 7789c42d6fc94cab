package domain

import (
	"fmt"
	"sort"
	"time"
)

// SlotsPerDay is the size of the hourly grid for one date.
const SlotsPerDay = 24

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

// Features is the optional amenity selection for a booking.
type Features struct {
	Covered  bool `json:"covered"`
	Charging bool `json:"charging"`
}

// PricingInfo holds a location's base rates and additive feature surcharges.
type PricingInfo struct {
	HourlyRate         float64 `json:"hourlyRate"`
	DailyRate          float64 `json:"dailyRate"`
	CoveredHourlyRate  float64 `json:"coveredHourlyRate"`
	CoveredDailyRate   float64 `json:"coveredDailyRate"`
	ChargingHourlyRate float64 `json:"chargingHourlyRate"`
	ChargingDailyRate  float64 `json:"chargingDailyRate"`
}

// Validate rejects negative rates.
func (p PricingInfo) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"hourlyRate", p.HourlyRate},
		{"dailyRate", p.DailyRate},
		{"coveredHourlyRate", p.CoveredHourlyRate},
		{"coveredDailyRate", p.CoveredDailyRate},
		{"chargingHourlyRate", p.ChargingHourlyRate},
		{"chargingDailyRate", p.ChargingDailyRate},
	}
	for _, r := range rates {
		if r.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidPricing, r.name)
		}
	}
	return nil
}

// FeatureCounts aggregates a location's inventory per feature.
type FeatureCounts struct {
	Total              int `json:"total"`
	Basic              int `json:"basic"`
	Covered            int `json:"covered"`
	Charging           int `json:"charging"`
	CoveredAndCharging int `json:"coveredAndCharging"`
}

// TimeSlot is one bookable hour [StartTime, EndTime) on a date. The four
// availability counts are disjoint partitions of the location's inventory.
type TimeSlot struct {
	Hour                        int       `json:"hour"`
	StartTime                   time.Time `json:"startTime"`
	EndTime                     time.Time `json:"endTime"`
	IsPast                      bool      `json:"isPast"`
	BasicAvailable              int       `json:"basicAvailable"`
	CoveredAvailable            int       `json:"coveredAvailable"`
	ChargingAvailable           int       `json:"chargingAvailable"`
	CoveredAndChargingAvailable int       `json:"coveredAndChargingAvailable"`
	TotalSpots                  int       `json:"totalSpots"`
}

// AvailableFor returns the number of spots satisfying the feature selection.
// Covered-and-charging spots satisfy either single-feature request.
func (s TimeSlot) AvailableFor(f Features) int {
	switch {
	case f.Covered && f.Charging:
		return s.CoveredAndChargingAvailable
	case f.Covered:
		return s.CoveredAvailable + s.CoveredAndChargingAvailable
	case f.Charging:
		return s.ChargingAvailable + s.CoveredAndChargingAvailable
	default:
		return s.BasicAvailable + s.CoveredAvailable + s.ChargingAvailable + s.CoveredAndChargingAvailable
	}
}

// IsSlotSelectable reports whether a slot can be booked under f.
func IsSlotSelectable(s TimeSlot, f Features) bool {
	return !s.IsPast && s.AvailableFor(f) > 0
}

// HourlyRate is the base rate plus the surcharges of the selected features.
func HourlyRate(f Features, p PricingInfo) float64 {
	rate := p.HourlyRate
	if f.Covered {
		rate += p.CoveredHourlyRate
	}
	if f.Charging {
		rate += p.ChargingHourlyRate
	}
	return rate
}

// TotalPrice is linear in the number of selected hours.
func TotalPrice(sel SlotSelection, f Features, p PricingInfo) float64 {
	return float64(sel.Len()) * HourlyRate(f, p)
}

// SlotBoard is the availability of one location on one date.
type SlotBoard struct {
	LocationID    string          `json:"locationId"`
	Date          string          `json:"date"`
	VehicleType   VehicleCategory `json:"vehicleType"`
	Slots         []TimeSlot      `json:"slots"`
	Pricing       PricingInfo     `json:"pricing"`
	FeatureCounts FeatureCounts   `json:"featureCounts"`
}

// Validate checks the board has one slot per hour with sane counts.
func (b *SlotBoard) Validate() error {
	if len(b.Slots) != SlotsPerDay {
		return fmt.Errorf("%w: expected %d slots, got %d", ErrInvalidSlotBoard, SlotsPerDay, len(b.Slots))
	}
	var seen [SlotsPerDay]bool
	for _, s := range b.Slots {
		if s.Hour < 0 || s.Hour >= SlotsPerDay {
			return fmt.Errorf("%w: hour %d out of range", ErrInvalidSlotBoard, s.Hour)
		}
		if seen[s.Hour] {
			return fmt.Errorf("%w: duplicate hour %d", ErrInvalidSlotBoard, s.Hour)
		}
		seen[s.Hour] = true
		if s.BasicAvailable < 0 || s.CoveredAvailable < 0 || s.ChargingAvailable < 0 || s.CoveredAndChargingAvailable < 0 {
			return fmt.Errorf("%w: negative availability at hour %d", ErrInvalidSlotBoard, s.Hour)
		}
		sum := s.BasicAvailable + s.CoveredAvailable + s.ChargingAvailable + s.CoveredAndChargingAvailable
		if s.TotalSpots > 0 && sum > s.TotalSpots {
			return fmt.Errorf("%w: hour %d has %d available of %d spots", ErrInvalidSlotBoard, s.Hour, sum, s.TotalSpots)
		}
	}
	return b.Pricing.Validate()
}

// Slot returns the slot for an hour.
func (b *SlotBoard) Slot(hour int) (TimeSlot, bool) {
	for _, s := range b.Slots {
		if s.Hour == hour {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// MarkPast flags every slot that has already started at now. Slot times
// missing from the backend are derived from the board date in loc.
func (b *SlotBoard) MarkPast(now time.Time, loc *time.Location) error {
	day, err := time.ParseInLocation(DateLayout, b.Date, loc)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidSlotBoard, b.Date)
	}
	sort.Slice(b.Slots, func(i, j int) bool { return b.Slots[i].Hour < b.Slots[j].Hour })
	for i := range b.Slots {
		s := &b.Slots[i]
		if s.StartTime.IsZero() {
			s.StartTime = atHour(day, s.Hour)
			s.EndTime = atHour(day, s.Hour+1)
		}
		if s.StartTime.Before(now) {
			s.IsPast = true
		}
	}
	return nil
}

// SlotSelection is a set of hours kept sorted ascending.
type SlotSelection struct {
	hours []int
}

// NewSlotSelection builds a selection from hours, dropping duplicates.
func NewSlotSelection(hours ...int) SlotSelection {
	var s SlotSelection
	for _, h := range hours {
		if !s.Contains(h) {
			s.Toggle(h)
		}
	}
	return s
}

// Toggle adds the hour if absent, removes it otherwise. It reports whether the
// hour is selected afterwards.
func (s *SlotSelection) Toggle(hour int) bool {
	i := sort.SearchInts(s.hours, hour)
	if i < len(s.hours) && s.hours[i] == hour {
		s.hours = append(s.hours[:i], s.hours[i+1:]...)
		return false
	}
	s.hours = append(s.hours, 0)
	copy(s.hours[i+1:], s.hours[i:])
	s.hours[i] = hour
	return true
}

func (s SlotSelection) Contains(hour int) bool {
	i := sort.SearchInts(s.hours, hour)
	return i < len(s.hours) && s.hours[i] == hour
}

func (s SlotSelection) Len() int { return len(s.hours) }

// Hours returns a copy of the selected hours.
func (s SlotSelection) Hours() []int {
	return append([]int(nil), s.hours...)
}

func (s *SlotSelection) Clear() { s.hours = nil }

// IsContiguous reports whether the selection has no gaps.
func (s SlotSelection) IsContiguous() bool {
	for i := 1; i < len(s.hours); i++ {
		if s.hours[i] != s.hours[i-1]+1 {
			return false
		}
	}
	return true
}

// BookingInterval is the single [Start, End) window a booking occupies.
type BookingInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BuildBookingInterval spans min(selection) to max(selection)+1 on date,
// including any gaps inside the selection.
func BuildBookingInterval(sel SlotSelection, date time.Time) (BookingInterval, error) {
	if sel.Len() == 0 {
		return BookingInterval{}, ErrNoSlots
	}
	return BookingInterval{
		Start: atHour(date, sel.hours[0]),
		End:   atHour(date, sel.hours[len(sel.hours)-1]+1),
	}, nil
}

// Quote is the price summary of a selection.
type Quote struct {
	Hours      []int           `json:"hours"`
	Features   Features        `json:"features"`
	HourlyRate float64         `json:"hourlyRate"`
	TotalPrice float64         `json:"totalPrice"`
	Interval   BookingInterval `json:"interval"`
	Contiguous bool            `json:"contiguous"`
}

// NewQuote prices sel on date.
func NewQuote(sel SlotSelection, date time.Time, f Features, p PricingInfo) (Quote, error) {
	interval, err := BuildBookingInterval(sel, date)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Hours:      sel.Hours(),
		Features:   f,
		HourlyRate: HourlyRate(f, p),
		TotalPrice: TotalPrice(sel, f, p),
		Interval:   interval,
		Contiguous: sel.IsContiguous(),
	}, nil
}

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}
