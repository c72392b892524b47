// Package snapshot persists and restores the live game state (every
// session's dogs and loot, plus the player directory) across process
// restarts. It plays the role of the reference server's
// serialization.h/.cpp + infrastructure.h/.cpp, but trades their
// Boost.Serialization text archives for plain JSON, matching the
// teacher's game/session file persistence (see DESIGN.md).
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/geom"
)

// Version is bumped whenever the on-disk shape changes incompatibly.
const Version = 1

// State is the full serializable representation of a live game.
type State struct {
	Version  int            `json:"version"`
	Sessions []sessionState `json:"sessions"`
	Players  []playerState  `json:"players"`
}

type sessionState struct {
	ID    uint64      `json:"id"`
	MapID string      `json:"mapId"`
	Dogs  []dogState  `json:"dogs"`
	Loots []lootState `json:"loots"`
}

type dogState struct {
	ID          uint64           `json:"id"`
	Name        string           `json:"name"`
	PositionX   float64          `json:"posX"`
	PositionY   float64          `json:"posY"`
	SpeedDX     float64          `json:"speedDx"`
	SpeedDY     float64          `json:"speedDy"`
	Direction   dogs.Direction   `json:"direction"`
	BagCapacity int              `json:"bagCapacity"`
	Bag         []dogs.CargoItem `json:"bag"`
	Score       uint32           `json:"score"`
	PlayTimeMS  int64            `json:"playTimeMs"`
	IdleTimeMS  int64            `json:"idleTimeMs"`
}

type lootState struct {
	ID       uint64  `json:"id"`
	Type     uint32  `json:"type"`
	PosX     float64 `json:"posX"`
	PosY     float64 `json:"posY"`
}

type playerState struct {
	ID        uint64 `json:"id"`
	SessionID uint64 `json:"sessionId"`
	DogName   string `json:"dogName"`
	Token     string `json:"token"`
}

// Build captures the current state of every session in game and every
// player in players.
func Build(game *dogs.Game, players *dogs.Players) State {
	state := State{Version: Version}

	for _, s := range game.Sessions() {
		ss := sessionState{ID: s.ID, MapID: s.MapID}
		for _, d := range s.Dogs() {
			ss.Dogs = append(ss.Dogs, dogState{
				ID:          d.ID,
				Name:        d.Name,
				PositionX:   d.Position.X,
				PositionY:   d.Position.Y,
				SpeedDX:     d.Speed.DX,
				SpeedDY:     d.Speed.DY,
				Direction:   d.Direction,
				BagCapacity: d.BagCapacity,
				Bag:         d.Bag,
				Score:       d.Score,
				PlayTimeMS:  d.PlayTime.Milliseconds(),
				IdleTimeMS:  d.IdleTime.Milliseconds(),
			})
		}
		for _, l := range s.Loots() {
			ss.Loots = append(ss.Loots, lootState{ID: l.ID, Type: l.Type, PosX: l.Position.X, PosY: l.Position.Y})
		}
		state.Sessions = append(state.Sessions, ss)
	}

	for _, p := range players.All() {
		state.Players = append(state.Players, playerState{
			ID:        p.ID,
			SessionID: p.SessionID,
			DogName:   p.DogName,
			Token:     p.Token,
		})
	}

	return state
}

// Apply rebuilds game's sessions and players' directory from state.
// game must already have every map referenced by state.Sessions
// registered (via mapconfig.Load) before Apply is called.
func Apply(state State, game *dogs.Game, players *dogs.Players) error {
	for _, ss := range state.Sessions {
		session, err := game.RestoreSession(ss.ID, ss.MapID)
		if err != nil {
			return fmt.Errorf("snapshot: session %d: %w", ss.ID, err)
		}

		for _, d := range ss.Dogs {
			pos := geom.Point2D{X: d.PositionX, Y: d.PositionY}
			dog := dogs.NewDog(d.ID, d.Name, pos, d.BagCapacity)
			dog.Speed = geom.Vec2D{DX: d.SpeedDX, DY: d.SpeedDY}
			dog.Direction = d.Direction
			dog.Bag = d.Bag
			dog.Score = d.Score
			dog.PlayTime = time.Duration(d.PlayTimeMS) * time.Millisecond
			dog.IdleTime = time.Duration(d.IdleTimeMS) * time.Millisecond
			session.RestoreDog(dog)
		}

		loots := make([]dogs.LootItem, 0, len(ss.Loots))
		for _, l := range ss.Loots {
			loots = append(loots, dogs.LootItem{ID: l.ID, Type: l.Type, Position: geom.Point2D{X: l.PosX, Y: l.PosY}})
		}
		session.RestoreLoots(loots)
	}

	for _, p := range state.Players {
		id, token := p.ID, p.Token
		players.Add(p.DogName, p.SessionID, &id, &token)
	}

	return nil
}

// SaveFile writes state to path as indented JSON, via a temp file in
// the same directory followed by an atomic rename, so a crash mid-write
// never leaves a truncated snapshot on disk.
func SaveFile(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// LoadFile reads and parses a snapshot written by SaveFile. It returns
// os.ErrNotExist (wrapped) if path does not exist, which callers treat
// as "no prior state to restore" rather than a fatal error.
func LoadFile(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return state, nil
}
