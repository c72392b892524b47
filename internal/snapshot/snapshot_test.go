package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tarakan-labs/doggame/internal/dogs"
)

func testGame() *dogs.Game {
	g := dogs.NewGame(func() *dogs.LootGenerator {
		return dogs.NewLootGenerator(time.Hour, 0, func() float64 { return 0 })
	})
	g.AddMap(&dogs.Map{
		ID:          "map1",
		Roads:       []dogs.Road{dogs.NewRoad(dogs.Point{X: 0, Y: 0}, dogs.Point{X: 10, Y: 0})},
		BagCapacity: 3,
		Speed:       1,
		LootCatalog: []dogs.LootType{{Name: "coin"}},
	})
	return g
}

func TestBuildAndApplyRoundTrip(t *testing.T) {
	g := testGame()
	session, err := g.GetSession("map1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dog := session.AddDog(1, "Fido")
	dog.Score = 42

	players := dogs.NewPlayers()
	id, token := uint64(0), "abc"
	players.Add("Fido", session.ID, &id, &token)

	state := Build(g, players)

	g2 := testGame()
	players2 := dogs.NewPlayers()
	if err := Apply(state, g2, players2); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	s2, ok := g2.Session(session.ID)
	if !ok {
		t.Fatalf("expected session %d to be restored", session.ID)
	}
	d2, ok := s2.Dog(1)
	if !ok || d2.Score != 42 {
		t.Fatalf("restored dog = %+v, want score 42", d2)
	}

	p2, ok := players2.ByToken("abc")
	if !ok || p2.DogName != "Fido" {
		t.Fatalf("restored player = %+v, want DogName Fido", p2)
	}
}

func TestSaveFileAndLoadFileRoundTrip(t *testing.T) {
	g := testGame()
	session, _ := g.GetSession("map1")
	session.AddDog(1, "Fido")
	players := dogs.NewPlayers()

	state := Build(g, players)

	path := filepath.Join(t.TempDir(), "state.json")
	if err := SaveFile(path, state); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(loaded.Sessions) != 1 || len(loaded.Sessions[0].Dogs) != 1 {
		t.Fatalf("loaded state = %+v, want one session with one dog", loaded)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
