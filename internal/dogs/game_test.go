package dogs

import (
	"testing"
	"time"
)

func newTestGame() *Game {
	g := NewGame(func() *LootGenerator {
		return NewLootGenerator(time.Hour, 0, func() float64 { return 0 })
	})
	g.AddMap(&Map{
		ID:          "map1",
		Roads:       []Road{NewRoad(Point{X: 0, Y: 0}, Point{X: 10, Y: 0})},
		BagCapacity: 3,
		Speed:       1,
		LootCatalog: []LootType{{Name: "coin"}},
	})
	return g
}

func TestAddMapRejectsDuplicates(t *testing.T) {
	g := newTestGame()
	if err := g.AddMap(&Map{ID: "map1"}); err != ErrDuplicateMap {
		t.Fatalf("AddMap duplicate = %v, want ErrDuplicateMap", err)
	}
}

func TestGetSessionUnknownMap(t *testing.T) {
	g := newTestGame()
	if _, err := g.GetSession("nope"); err != ErrUnknownMap {
		t.Fatalf("GetSession(unknown) = %v, want ErrUnknownMap", err)
	}
}

func TestGetSessionCreatesOnceAndReuses(t *testing.T) {
	g := newTestGame()
	s1, err := g.GetSession("map1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := g.GetSession("map1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the same session for repeated GetSession calls on the same map")
	}
}

func TestExternalTickNotifiesSubscribers(t *testing.T) {
	g := newTestGame()
	if _, err := g.GetSession("map1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got time.Duration
	sub := g.DoOnTick(func(d time.Duration) { got = d })

	g.ExternalTick(250 * time.Millisecond)
	if got != 250*time.Millisecond {
		t.Fatalf("subscriber saw delta %v, want 250ms", got)
	}

	sub.Close()
	got = 0
	g.ExternalTick(100 * time.Millisecond)
	if got != 0 {
		t.Fatalf("subscriber fired after Close")
	}
}

func TestSessionIDsStrictlyIncreasing(t *testing.T) {
	g := newTestGame()
	g.AddMap(&Map{ID: "map2", Roads: []Road{NewRoad(Point{X: 0, Y: 0}, Point{X: 1, Y: 0})}, BagCapacity: 3, Speed: 1, LootCatalog: []LootType{{}}})

	s1, _ := g.GetSession("map1")
	s2, _ := g.GetSession("map2")
	if s2.ID <= s1.ID {
		t.Fatalf("session ids not strictly increasing: %d, %d", s1.ID, s2.ID)
	}
}
