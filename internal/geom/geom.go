// Package geom provides the 2D primitives the simulation moves dogs
// through: points, velocity vectors, and axis-aligned road rectangles.
package geom

import "errors"

// ErrZeroLengthSegment is returned by LeavingPoint when start and end
// coincide; a step of zero length never leaves its rectangle.
var ErrZeroLengthSegment = errors.New("geom: zero-length segment has no leaving point")

// Vec2D is a 2D velocity or displacement.
type Vec2D struct {
	DX, DY float64
}

// Scale returns v scaled by s.
func (v Vec2D) Scale(s float64) Vec2D {
	return Vec2D{DX: v.DX * s, DY: v.DY * s}
}

// Point2D is a position in continuous map space.
type Point2D struct {
	X, Y float64
}

// Add returns p translated by v.
func (p Point2D) Add(v Vec2D) Point2D {
	return Point2D{X: p.X + v.DX, Y: p.Y + v.DY}
}

// Segment is a straight step from Start to End.
type Segment struct {
	Start, End Point2D
}

// Rectangle is an axis-aligned region given by its min and max corners.
type Rectangle struct {
	Min, Max Point2D
}

// Contains reports whether p lies within the closed rectangle.
func (r Rectangle) Contains(p Point2D) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// LeavingPoint returns the point on r's boundary where seg exits, chosen
// by the dominant axis of movement. Roads are axis-aligned and dogs move
// along exactly one of N/S/W/E, so at most one of x, y changes per step.
func (r Rectangle) LeavingPoint(seg Segment) (Point2D, error) {
	switch {
	case seg.End.X > seg.Start.X:
		return Point2D{X: r.Max.X, Y: seg.Start.Y}, nil
	case seg.End.Y > seg.Start.Y:
		return Point2D{X: seg.Start.X, Y: r.Max.Y}, nil
	case seg.End.X < seg.Start.X:
		return Point2D{X: r.Min.X, Y: seg.Start.Y}, nil
	case seg.End.Y < seg.Start.Y:
		return Point2D{X: seg.Start.X, Y: r.Min.Y}, nil
	default:
		return Point2D{}, ErrZeroLengthSegment
	}
}
