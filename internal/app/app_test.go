package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	game := dogs.NewGame(func() *dogs.LootGenerator {
		return dogs.NewLootGenerator(time.Hour, 0, func() float64 { return 0 })
	})
	if err := game.AddMap(&dogs.Map{
		ID:          "map1",
		Roads:       []dogs.Road{dogs.NewRoad(dogs.Point{X: 0, Y: 0}, dogs.Point{X: 10, Y: 0})},
		BagCapacity: 3,
		Speed:       1,
		LootCatalog: []dogs.LootType{{Name: "coin"}},
	}); err != nil {
		t.Fatalf("AddMap: %v", err)
	}
	game.SetRetirementTime(60)

	return New(game, dogs.NewPlayers(), store.NewMemoryStore(), zap.NewNop())
}

func TestJoinGameAndGetGameState(t *testing.T) {
	a := newTestApp(t)

	id, token, err := a.JoinGame("Fido", "map1")
	if err != nil {
		t.Fatalf("JoinGame() error = %v", err)
	}
	if token == "" {
		t.Fatalf("expected a non-empty token")
	}

	state, err := a.GetGameState(token)
	if err != nil {
		t.Fatalf("GetGameState() error = %v", err)
	}
	dogView, ok := state.Players[fmt.Sprintf("%d", id)]
	if !ok {
		t.Fatalf("expected dog %d in game state, got %+v", id, state.Players)
	}
	if dogView.Dir != "U" {
		t.Fatalf("new dog dir = %q, want U (north)", dogView.Dir)
	}
}

func TestSessionViewAndSessionIDs(t *testing.T) {
	a := newTestApp(t)
	id, _, err := a.JoinGame("Fido", "map1")
	if err != nil {
		t.Fatalf("JoinGame() error = %v", err)
	}

	ids := a.SessionIDs()
	if len(ids) != 1 {
		t.Fatalf("SessionIDs() = %v, want exactly one session", ids)
	}

	view, ok := a.SessionView(ids[0])
	if !ok {
		t.Fatalf("SessionView(%d) not found", ids[0])
	}
	if _, ok := view.Players[fmt.Sprintf("%d", id)]; !ok {
		t.Fatalf("expected dog %d in session view, got %+v", id, view.Players)
	}

	if _, ok := a.SessionView(999); ok {
		t.Fatalf("expected SessionView(999) to report not found")
	}
}

func TestJoinGameUnknownMap(t *testing.T) {
	a := newTestApp(t)
	if _, _, err := a.JoinGame("Fido", "nope"); err == nil {
		t.Fatalf("expected error for unknown map")
	}
}

func TestGetGameStateUnknownToken(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.GetGameState("bogus"); err != ErrUnknownToken {
		t.Fatalf("GetGameState(bogus) = %v, want ErrUnknownToken", err)
	}
}

func TestRetireDogsPersistsAndRemoves(t *testing.T) {
	a := newTestApp(t)
	id, token, err := a.JoinGame("Fido", "map1")
	if err != nil {
		t.Fatalf("JoinGame() error = %v", err)
	}

	session, _ := a.game.Session(0)
	dog, _ := session.Dog(id)
	dog.IdleTime = 90 * time.Second
	dog.Score = 7

	if err := a.RetireDogs(); err != nil {
		t.Fatalf("RetireDogs() error = %v", err)
	}

	if _, err := a.GetGameState(token); err != ErrUnknownToken {
		t.Fatalf("expected retired player's token to be gone, got %v", err)
	}

	retirees, err := a.GetRetiredDogs(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("GetRetiredDogs() error = %v", err)
	}
	if len(retirees) != 1 || retirees[0].Name != "Fido" || retirees[0].Score != 7 {
		t.Fatalf("retirees = %+v, want one Fido record with score 7", retirees)
	}
}
