package dogs

import (
	"sort"
	"time"
)

// TickSubscription is a handle returned by Game.DoOnTick; closing it
// removes the subscriber. This replaces the reference implementation's
// signal/slot mechanism with an explicit subscriber list (see
// SPEC_FULL.md §9, "Tick signal").
type TickSubscription struct {
	game *Game
	slot int
}

// Close unsubscribes the handler. Calling Close more than once is a no-op.
func (t *TickSubscription) Close() {
	if t.game == nil {
		return
	}
	t.game.subscribers[t.slot] = nil
	t.game = nil
}

// Game owns every map and every live session, keyed by session id. It
// fans out external ticks to sessions and, after each tick, notifies
// its subscribers (the App facade uses this to run the retirement
// sweep). Sessions are never destroyed once created; Game owns them
// exclusively (see SPEC_FULL.md §9, "Cyclic references").
type Game struct {
	maps            map[string]*Map
	mapOrder        []string
	sessions        map[uint64]*Session
	sessionOrder    []uint64
	defaultSpeed    float64
	defaultBagSize  int
	randomSpawn     bool
	lootGenFactory  func() *LootGenerator
	retirementTime  time.Duration
	subscribers     []func(time.Duration)
}

// NewGame constructs an empty Game. lootGenFactory builds a fresh
// LootGenerator for each session created (each session tracks its own
// time-without-loot accumulator).
func NewGame(lootGenFactory func() *LootGenerator) *Game {
	return &Game{
		maps:           make(map[string]*Map),
		sessions:       make(map[uint64]*Session),
		lootGenFactory: lootGenFactory,
	}
}

// SetDefaultSpeed sets the dog speed used by maps that don't override it.
func (g *Game) SetDefaultSpeed(speed float64) { g.defaultSpeed = speed }

// DefaultSpeed returns the default dog speed.
func (g *Game) DefaultSpeed() float64 { return g.defaultSpeed }

// SetDefaultBagSize sets the bag capacity used by maps that don't override it.
func (g *Game) SetDefaultBagSize(size int) { g.defaultBagSize = size }

// DefaultBagSize returns the default bag capacity.
func (g *Game) DefaultBagSize() int { return g.defaultBagSize }

// SetRandomSpawn toggles whether new dogs/loot spawn at a random point
// on a random road, rather than always at the map's first road start.
func (g *Game) SetRandomSpawn(v bool) { g.randomSpawn = v }

// HasRandomSpawn reports the current spawn policy.
func (g *Game) HasRandomSpawn() bool { return g.randomSpawn }

// SetRetirementTime stores the idle duration after which a dog retires,
// truncating fractional seconds per the reference implementation.
func (g *Game) SetRetirementTime(seconds float64) {
	g.retirementTime = time.Duration(int64(seconds)) * time.Second
}

// RetirementTime returns the configured retirement idle threshold.
func (g *Game) RetirementTime() time.Duration { return g.retirementTime }

// AddMap registers a map. It is an error to add a map id twice.
func (g *Game) AddMap(m *Map) error {
	if _, exists := g.maps[m.ID]; exists {
		return ErrDuplicateMap
	}
	g.maps[m.ID] = m
	g.mapOrder = append(g.mapOrder, m.ID)
	return nil
}

// FindMap looks up a map by id.
func (g *Game) FindMap(id string) (*Map, bool) {
	m, ok := g.maps[id]
	return m, ok
}

// Maps returns every registered map in registration order.
func (g *Game) Maps() []*Map {
	out := make([]*Map, 0, len(g.mapOrder))
	for _, id := range g.mapOrder {
		out = append(out, g.maps[id])
	}
	return out
}

// GetSession returns the active session for mapID, creating one if this
// is the first reference to that map. Returns ErrUnknownMap if mapID is
// not registered.
func (g *Game) GetSession(mapID string) (*Session, error) {
	m, ok := g.maps[mapID]
	if !ok {
		return nil, ErrUnknownMap
	}
	for _, s := range g.sessions {
		if s.MapID == mapID {
			return s, nil
		}
	}
	id := uint64(0)
	if len(g.sessionOrder) > 0 {
		id = g.sessionOrder[len(g.sessionOrder)-1] + 1
	}
	session := NewSession(id, m, g.lootGenFactory(), g.randomSpawn)
	g.sessions[id] = session
	g.sessionOrder = append(g.sessionOrder, id)
	return session, nil
}

// Session looks up a live session by id.
func (g *Game) Session(id uint64) (*Session, bool) {
	s, ok := g.sessions[id]
	return s, ok
}

// Sessions returns every live session, ordered by id.
func (g *Game) Sessions() []*Session {
	out := make([]*Session, 0, len(g.sessions))
	for _, id := range g.sessionOrder {
		out = append(out, g.sessions[id])
	}
	return out
}

// RestoreSession creates and registers a session for mapID under id,
// using the game's own loot generator factory rather than a caller-
// supplied one, so a session rebuilt from a snapshot spawns loot
// exactly like one created by GetSession. The returned session has no
// dogs or loot yet; the caller populates both via RestoreDog/
// RestoreLoots. Returns ErrUnknownMap if mapID is not registered.
func (g *Game) RestoreSession(id uint64, mapID string) (*Session, error) {
	m, ok := g.maps[mapID]
	if !ok {
		return nil, ErrUnknownMap
	}
	session := NewSession(id, m, g.lootGenFactory(), g.randomSpawn)
	g.sessions[id] = session
	g.sessionOrder = append(g.sessionOrder, id)
	sort.Slice(g.sessionOrder, func(i, j int) bool { return g.sessionOrder[i] < g.sessionOrder[j] })
	return session, nil
}

// ExternalTick advances every session by delta, then notifies tick subscribers.
func (g *Game) ExternalTick(delta time.Duration) {
	tickMS := float64(delta.Microseconds()) / 1000
	for _, s := range g.Sessions() {
		s.Tick(tickMS)
	}
	for _, fn := range g.subscribers {
		if fn != nil {
			fn(delta)
		}
	}
}

// DoOnTick registers handler to run after every ExternalTick. The
// returned subscription's Close method removes it.
func (g *Game) DoOnTick(handler func(time.Duration)) *TickSubscription {
	g.subscribers = append(g.subscribers, handler)
	return &TickSubscription{game: g, slot: len(g.subscribers) - 1}
}
