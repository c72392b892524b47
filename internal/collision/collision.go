// Package collision implements the swept-circle collision resolver used
// to order pickup and deposit events along each dog's step in a tick.
package collision

import (
	"errors"
	"sort"

	"github.com/tarakan-labs/doggame/internal/geom"
)

// ErrZeroLengthStep is returned by TryCollect when a and b coincide; the
// projection-ratio formula is undefined for a zero-length gather segment.
var ErrZeroLengthStep = errors.New("collision: zero-length gather segment")

// Result is the projected distance and position of a point c relative
// to a segment a->b, as used to test circle-sweep intersection.
type Result struct {
	SqDistance float64
	ProjRatio  float64
}

// Collected reports whether c lies within radius of the swept segment.
func (r Result) Collected(radius float64) bool {
	return r.ProjRatio >= 0 && r.ProjRatio <= 1 && r.SqDistance <= radius*radius
}

// TryCollect projects c onto segment a->b and returns the squared
// perpendicular distance and the position ratio along the segment.
// It is an error for a and b to coincide.
func TryCollect(a, b, c geom.Point2D) (Result, error) {
	if a == b {
		return Result{}, ErrZeroLengthStep
	}
	ux, uy := c.X-a.X, c.Y-a.Y
	vx, vy := b.X-a.X, b.Y-a.Y
	uDotV := ux*vx + uy*vy
	uLen2 := ux*ux + uy*uy
	vLen2 := vx*vx + vy*vy
	projRatio := uDotV / vLen2
	sqDistance := uLen2 - (uDotV*uDotV)/vLen2
	return Result{SqDistance: sqDistance, ProjRatio: projRatio}, nil
}

// Item is a static circular collectible: a loot item or an office.
type Item struct {
	ID       uint64
	Position geom.Point2D
	Width    float64
}

// Gatherer is a dog modeled as a moving circle over one tick.
type Gatherer struct {
	ID         uint64
	Start, End geom.Point2D
	Width      float64
}

// Provider supplies the items and gatherers for one tick's collision pass.
type Provider struct {
	Items     []Item
	Gatherers []Gatherer
}

// Event is one pickup/deposit collision, ordered by Time (the projection
// ratio along the gatherer's step at which the collision occurs).
type Event struct {
	ItemID     uint64
	GathererID uint64
	Time       float64
}

// FindSortedGatherEvents tests every gatherer against every item and
// returns the events in non-decreasing Time order, ties broken by
// (GathererID, ItemID) ascending so the result is fully deterministic.
func FindSortedGatherEvents(p Provider) ([]Event, error) {
	var events []Event
	for _, g := range p.Gatherers {
		if g.Start == g.End {
			continue
		}
		for _, it := range p.Items {
			res, err := TryCollect(g.Start, g.End, it.Position)
			if err != nil {
				return nil, err
			}
			if res.Collected(g.Width + it.Width) {
				events = append(events, Event{ItemID: it.ID, GathererID: g.ID, Time: res.ProjRatio})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		if events[i].GathererID != events[j].GathererID {
			return events[i].GathererID < events[j].GathererID
		}
		return events[i].ItemID < events[j].ItemID
	})
	return events, nil
}
