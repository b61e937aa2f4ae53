package service

import (
	"context"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

// CollisionDetector finds persisted showings that a candidate slot would
// overlap.  It never writes.
type CollisionDetector struct {
	showings ShowingStore
}

func NewCollisionDetector(showings ShowingStore) *CollisionDetector {
	return &CollisionDetector{showings: showings}
}

// Collides returns the showings in hallID whose window overlaps w, using
// the half-open rule existing.end > w.start AND existing.start < w.end.
// An empty result means the slot is free.
func (d *CollisionDetector) Collides(ctx context.Context, hallID uint64, w schedule.TimeWindow) ([]model.Showing, error) {
	found, err := d.showings.FindOverlapping(ctx, hallID, w)
	if err != nil {
		return nil, err
	}
	return overlapping(found, w), nil
}

// overlapping re-applies the overlap rule to rows returned by the store.
func overlapping(candidates []model.Showing, w schedule.TimeWindow) []model.Showing {
	out := make([]model.Showing, 0, len(candidates))
	for _, s := range candidates {
		if s.Window().Overlaps(w) {
			out = append(out, s)
		}
	}
	return out
}
