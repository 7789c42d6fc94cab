package usecases

import (
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// Marker is a place as shown on the map.
type Marker struct {
	Place        domain.PlaceSummary `json:"place"`
	IsNew        bool                `json:"isNew"`
	EnterDelayMs int64               `json:"enterDelayMs"`
}

// MarkerSet remembers every place id a session has already displayed so that
// only genuinely new places get an entrance animation.
type MarkerSet struct {
	seen    map[string]struct{}
	stagger time.Duration
}

// NewMarkerSet creates an empty set; new markers are delayed by index×stagger.
func NewMarkerSet(stagger time.Duration) *MarkerSet {
	return &MarkerSet{seen: make(map[string]struct{}), stagger: stagger}
}

// Reconcile replaces the displayed set with places and flags unseen ids.
func (m *MarkerSet) Reconcile(places []domain.PlaceSummary) []Marker {
	out := make([]Marker, 0, len(places))
	newIdx := 0
	for _, p := range places {
		mk := Marker{Place: p}
		if _, ok := m.seen[p.ID]; !ok {
			m.seen[p.ID] = struct{}{}
			mk.IsNew = true
			mk.EnterDelayMs = (time.Duration(newIdx) * m.stagger).Milliseconds()
			newIdx++
		}
		out = append(out, mk)
	}
	return out
}

// Seen reports whether id was displayed before.
func (m *MarkerSet) Seen(id string) bool {
	_, ok := m.seen[id]
	return ok
}

// CountNew returns the number of markers flagged new.
func CountNew(markers []Marker) int {
	n := 0
	for _, mk := range markers {
		if mk.IsNew {
			n++
		}
	}
	return n
}
