package dogs

import (
	"math/rand"
	"sort"
	"time"

	"github.com/tarakan-labs/doggame/internal/collision"
	"github.com/tarakan-labs/doggame/internal/geom"
)

// Session is one live instance of a map, owning its dog set and loot
// items. Tick advances it by Δt: dogs move, collisions resolve, and new
// loot may spawn.
type Session struct {
	ID         uint64
	MapID      string
	dogs       map[uint64]*Dog
	loots      map[uint64]LootItem
	lootMaxID  uint64
	gameMap    *Map
	lootGen    *LootGenerator
	randomSpawn bool
}

// NewSession creates a session bound to gameMap, using lootGen for its
// spawn policy and randomSpawn to decide where new dogs/loot appear.
func NewSession(id uint64, gameMap *Map, lootGen *LootGenerator, randomSpawn bool) *Session {
	return &Session{
		ID:          id,
		MapID:       gameMap.ID,
		dogs:        make(map[uint64]*Dog),
		loots:       make(map[uint64]LootItem),
		gameMap:     gameMap,
		lootGen:     lootGen,
		randomSpawn: randomSpawn,
	}
}

// AddDog creates a new dog with the given id and name, positioned per
// GeneratePosition, and inserts it into the session.
func (s *Session) AddDog(id uint64, name string) *Dog {
	dog := NewDog(id, name, s.GeneratePosition(), s.gameMap.BagCapacity)
	s.dogs[id] = dog
	return dog
}

// RestoreDog inserts a fully-formed dog (used by snapshot restore).
func (s *Session) RestoreDog(dog *Dog) {
	s.dogs[dog.ID] = dog
}

// RemoveDog deletes a dog from the session.
func (s *Session) RemoveDog(id uint64) {
	delete(s.dogs, id)
}

// Dog looks up a dog by id.
func (s *Session) Dog(id uint64) (*Dog, bool) {
	d, ok := s.dogs[id]
	return d, ok
}

// Dogs returns the session's dogs, sorted by id for deterministic output.
func (s *Session) Dogs() []*Dog {
	out := make([]*Dog, 0, len(s.dogs))
	for _, d := range s.dogs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Loots returns the session's live loot items, sorted by id.
func (s *Session) Loots() []LootItem {
	out := make([]LootItem, 0, len(s.loots))
	for _, l := range s.loots {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RestoreLoots replaces the session's loot set (used by snapshot
// restore) and rebases lootMaxID to the highest restored id.
func (s *Session) RestoreLoots(loots []LootItem) {
	s.loots = make(map[uint64]LootItem, len(loots))
	for _, l := range loots {
		s.loots[l.ID] = l
		if l.ID > s.lootMaxID {
			s.lootMaxID = l.ID
		}
	}
}

// SetDogDirection turns a dog and sets its velocity from the map's
// speed, or stops it if direction is DirectionNone.
func (s *Session) SetDogDirection(id uint64, direction Direction) error {
	dog, ok := s.dogs[id]
	if !ok {
		return ErrDogNotFound
	}
	return dog.SetDirection(direction, s.gameMap.Speed)
}

// Tick advances the session by tickMS milliseconds: moves every dog,
// resolves pickup/deposit collisions along each dog's step in
// deterministic order, then spawns new loot.
func (s *Session) Tick(tickMS float64) {
	dogs := s.Dogs()

	gatherers := make([]collision.Gatherer, len(dogs))
	for i, dog := range dogs {
		gatherers[i] = collision.Gatherer{ID: dog.ID, Start: dog.Position, Width: dogWidth}
	}

	delta := time.Duration(tickMS) * time.Millisecond
	for i, dog := range dogs {
		s.moveDog(dog, tickMS, delta)
		gatherers[i].End = dog.Position
	}

	items := make([]collision.Item, 0, len(s.loots)+len(s.gameMap.Offices))
	for _, loot := range s.loots {
		items = append(items, collision.Item{ID: loot.ID, Position: loot.Position, Width: 0})
	}
	for _, office := range s.gameMap.Offices {
		items = append(items, collision.Item{
			ID:       officeItemID,
			Position: geom.Point2D{X: float64(office.Position.X), Y: float64(office.Position.Y)},
			Width:    officeWidth,
		})
	}

	events, err := collision.FindSortedGatherEvents(collision.Provider{Items: items, Gatherers: gatherers})
	if err != nil {
		// Every gatherer with a zero-length step is already filtered out
		// by FindSortedGatherEvents itself, so this can only mean a
		// programming error upstream.
		panic(err)
	}

	byID := make(map[uint64]*Dog, len(dogs))
	for _, d := range dogs {
		byID[d.ID] = d
	}

	for _, ev := range events {
		dog := byID[ev.GathererID]
		if ev.ItemID != officeItemID {
			loot, ok := s.loots[ev.ItemID]
			if !ok {
				continue
			}
			if dog.PutInBag(CargoItem{ID: loot.ID, Type: loot.Type}) {
				delete(s.loots, loot.ID)
			}
			continue
		}

		var total uint32
		for _, item := range dog.Bag {
			lt := s.gameMap.LootCatalog[item.Type]
			if lt.Value != nil {
				total += uint32(*lt.Value)
			}
		}
		dog.Score += total
		dog.EmptyBag()
	}

	n := s.lootGen.Generate(delta, len(s.loots), len(s.dogs))
	s.addLoots(n)
}

// moveDog steps dog along its velocity, constrained to the road graph.
func (s *Session) moveDog(dog *Dog, tickMS float64, delta time.Duration) {
	dog.PlayTime += delta

	desired := dog.Position.Add(dog.Speed.Scale(tickMS / 1000))
	if desired == dog.Position || tickMS == 0 {
		dog.IdleTime += delta
		return
	}

	startRoad, ok := s.roadContaining(dog.Position)
	if !ok {
		panic(ErrOffRoad)
	}

	if startRoad.Bounds.Contains(desired) {
		dog.Position = desired
		dog.IdleTime = 0
		return
	}

	seg := geom.Segment{Start: dog.Position, End: desired}
	border, err := startRoad.Bounds.LeavingPoint(seg)
	if err != nil {
		panic(err)
	}

	for _, road := range s.gameMap.Roads {
		if road == startRoad || !road.Bounds.Contains(border) {
			continue
		}
		if road.Bounds.Contains(desired) {
			dog.Position = desired
			dog.IdleTime = 0
			return
		}
		border, err = road.Bounds.LeavingPoint(seg)
		if err != nil {
			panic(err)
		}
	}

	dog.Position = border
	dog.IdleTime = 0
	dog.Speed = geom.Vec2D{}
}

func (s *Session) roadContaining(p geom.Point2D) (Road, bool) {
	for _, road := range s.gameMap.Roads {
		if road.Bounds.Contains(p) {
			return road, true
		}
	}
	return Road{}, false
}

// GeneratePosition picks a spawn point: a uniform random point on a
// uniform random road if random spawn is enabled, otherwise the start
// of the map's first road.
func (s *Session) GeneratePosition() geom.Point2D {
	roads := s.gameMap.Roads
	if s.randomSpawn {
		road := roads[rand.Intn(len(roads))]
		minX, maxX := float64(road.Start.X), float64(road.End.X)
		if minX > maxX {
			minX, maxX = maxX, minX
		}
		minY, maxY := float64(road.Start.Y), float64(road.End.Y)
		if minY > maxY {
			minY, maxY = maxY, minY
		}
		x := minX + rand.Float64()*(maxX-minX)
		y := minY + rand.Float64()*(maxY-minY)
		return geom.Point2D{X: x, Y: y}
	}
	return geom.Point2D{X: float64(roads[0].Start.X), Y: float64(roads[0].Start.Y)}
}

func (s *Session) addLoots(count int) {
	for i := 0; i < count; i++ {
		s.lootMaxID++
		s.loots[s.lootMaxID] = LootItem{
			ID:       s.lootMaxID,
			Type:     uint32(rand.Intn(len(s.gameMap.LootCatalog))),
			Position: s.GeneratePosition(),
		}
	}
}
