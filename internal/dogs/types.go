// Package dogs implements the authoritative simulation core: maps,
// sessions, dogs, loot, and the per-tick advance logic that moves dogs
// along a road graph and resolves pickup/deposit collisions.
package dogs

import (
	"errors"
	"time"

	"github.com/tarakan-labs/doggame/internal/geom"
)

const (
	roadHalfWidth = 0.4
	dogWidth      = 0.6 / 2.0
	officeWidth   = 0.5 / 2.0

	// officeItemID is the collision-resolver sentinel meaning "deposit
	// point". Loot ids start at 1 and never collide with it.
	officeItemID = 0
)

// ErrOffRoad is raised when a dog's position is not contained by any
// road on its map; under the system's invariants this should never
// happen, since movement never commits a position off the road graph.
var ErrOffRoad = errors.New("dogs: dog position is off the road graph")

// ErrUnknownDirection is raised by SetDirection for a direction value
// the switch does not recognize.
var ErrUnknownDirection = errors.New("dogs: unknown direction")

// ErrDogNotFound is returned by Session.SetDogDirection for an unknown dog id.
var ErrDogNotFound = errors.New("dogs: dog not found")

// ErrDuplicateMap is returned by Game.AddMap for an id already registered.
var ErrDuplicateMap = errors.New("dogs: map id already exists")

// ErrUnknownMap is returned by Game.GetSession for a map id the Game
// does not know, resolving the reference implementation's ambiguity
// (see DESIGN.md).
var ErrUnknownMap = errors.New("dogs: unknown map")

// Direction is the axis-aligned facing/movement direction of a dog.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionNorth
	DirectionSouth
	DirectionWest
	DirectionEast
)

// Point is an integer grid coordinate, used for road/office endpoints.
type Point struct {
	X, Y int
}

// Size is an integer width/height pair for building footprints.
type Size struct {
	Width, Height int
}

// Offset is a building-relative pixel offset used by client rendering;
// carried through unchanged, never interpreted by the server.
type Offset struct {
	DX, DY int
}

// Road is a straight axis-aligned corridor a dog can walk along. Its
// Bounds is the road rectangle padded by roadHalfWidth on every side.
type Road struct {
	Start, End Point
	Bounds     geom.Rectangle
}

// NewRoad builds a Road and its derived bounding rectangle.
func NewRoad(start, end Point) Road {
	minX, maxX := float64(start.X), float64(end.X)
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := float64(start.Y), float64(end.Y)
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return Road{
		Start: start,
		End:   end,
		Bounds: geom.Rectangle{
			Min: geom.Point2D{X: minX - roadHalfWidth, Y: minY - roadHalfWidth},
			Max: geom.Point2D{X: maxX + roadHalfWidth, Y: maxY + roadHalfWidth},
		},
	}
}

// IsHorizontal reports whether the road runs along the x axis.
func (r Road) IsHorizontal() bool {
	return r.Start.Y == r.End.Y
}

// Building is a static, non-walkable rectangle rendered by the client.
// It plays no role in collision or movement on the server.
type Building struct {
	Position Point
	Size     Size
}

// Office is a deposit point: a dog's swept path through it converts bag
// contents to score.
type Office struct {
	ID       string
	Position Point
	Offset   Offset
}

// LootType describes one entry in a map's loot catalog.
type LootType struct {
	Name     string
	File     string
	Type     string
	Rotation *int
	Color    *string
	Scale    *float64
	Value    *int
}

// Map is one playable map: its road graph, static decoration, offices,
// and per-map movement/capacity defaults.
type Map struct {
	ID            string
	Name          string
	Roads         []Road
	Buildings     []Building
	Offices       []Office
	LootCatalog   []LootType
	Speed         float64
	BagCapacity   int
}

// CargoItem is a loot item once it has been picked up into a dog's bag.
type CargoItem struct {
	ID   uint64
	Type uint32
}

// LootItem is a loot item lying on the map, not yet collected.
type LootItem struct {
	ID       uint64
	Type     uint32
	Position geom.Point2D
}

// Dog is a player's in-world avatar.
type Dog struct {
	ID          uint64
	Name        string
	Position    geom.Point2D
	Speed       geom.Vec2D
	Direction   Direction
	BagCapacity int
	Bag         []CargoItem
	Score       uint32
	PlayTime    time.Duration
	IdleTime    time.Duration
}

// NewDog creates a dog at pos, facing north with zero speed, matching
// the join-time defaults of the reference implementation.
func NewDog(id uint64, name string, pos geom.Point2D, bagCapacity int) *Dog {
	return &Dog{
		ID:          id,
		Name:        name,
		Position:    pos,
		Direction:   DirectionNorth,
		BagCapacity: bagCapacity,
	}
}

// IsBagFull reports whether the bag holds BagCapacity items already.
func (d *Dog) IsBagFull() bool {
	return len(d.Bag) >= d.BagCapacity
}

// PutInBag appends item to the bag if there is room, reporting success.
func (d *Dog) PutInBag(item CargoItem) bool {
	if d.IsBagFull() {
		return false
	}
	d.Bag = append(d.Bag, item)
	return true
}

// EmptyBag clears the bag and returns how many items were removed.
func (d *Dog) EmptyBag() int {
	n := len(d.Bag)
	d.Bag = nil
	return n
}

// SetDirection turns the dog to face direction and sets its speed along
// that heading, scaled by the map's dog speed. DirectionNone stops the
// dog without changing its facing.
func (d *Dog) SetDirection(direction Direction, mapSpeed float64) error {
	if direction == DirectionNone {
		d.Speed = geom.Vec2D{}
		return nil
	}
	d.Direction = direction
	switch direction {
	case DirectionNorth:
		d.Speed = geom.Vec2D{DX: 0, DY: -mapSpeed}
	case DirectionSouth:
		d.Speed = geom.Vec2D{DX: 0, DY: mapSpeed}
	case DirectionWest:
		d.Speed = geom.Vec2D{DX: -mapSpeed, DY: 0}
	case DirectionEast:
		d.Speed = geom.Vec2D{DX: mapSpeed, DY: 0}
	default:
		return ErrUnknownDirection
	}
	return nil
}
