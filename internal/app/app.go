// Package app is the use-case facade the transport layers
// (internal/httpapi, internal/wsapi, internal/mcpapi) call into. It
// wires together the simulation core (internal/dogs), the retiree
// record store (internal/store), and state persistence
// (internal/snapshot), mirroring the reference server's app.h/.cpp
// (App, Player, Players) and structurally modeled on the teacher's
// game/service.GameService (RWMutex-guarded facade over a session
// manager, context.Context on every call).
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/snapshot"
	"github.com/tarakan-labs/doggame/internal/store"
)

// ErrUnknownToken is returned by GetPlayer/GetGameState for a token
// that does not match any live player.
var ErrUnknownToken = errors.New("app: unknown token")

// DogView is the client-facing representation of one dog in a game
// state snapshot.
type DogView struct {
	Position [2]float64       `json:"pos"`
	Speed    [2]float64       `json:"speed"`
	Dir      string           `json:"dir"`
	Bag      []dogs.CargoItem `json:"bag"`
	Score    uint32           `json:"score"`
}

// LootView is the client-facing representation of one loot item.
type LootView struct {
	Type uint32     `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

// GameStateView is the full live-state payload for one session, the
// Go analogue of the reference server's model::GameState.
type GameStateView struct {
	Players map[string]DogView  `json:"players"`
	Loot    map[string]LootView `json:"lostObjects"`
}

var directionCodes = map[dogs.Direction]string{
	dogs.DirectionNone:  "",
	dogs.DirectionNorth: "U",
	dogs.DirectionSouth: "D",
	dogs.DirectionWest:  "L",
	dogs.DirectionEast:  "R",
}

// App is the central use-case facade, safe for concurrent use.
type App struct {
	mu       sync.RWMutex
	game     *dogs.Game
	players  *dogs.Players
	retirees store.RetireeStore
	log      *zap.Logger
}

// New constructs an App over game, players, and a retiree store.
func New(game *dogs.Game, players *dogs.Players, retirees store.RetireeStore, log *zap.Logger) *App {
	return &App{game: game, players: players, retirees: retirees, log: log}
}

// Game returns the underlying simulation, for callers (the tick loop,
// snapshot codec) that need direct access.
func (a *App) Game() *dogs.Game { return a.game }

// JoinGame creates a dog named username on mapID's session and
// registers a new player for it, returning the player's id and bearer
// token.
func (a *App) JoinGame(username, mapID string) (id uint64, token string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	session, err := a.game.GetSession(mapID)
	if err != nil {
		return 0, "", fmt.Errorf("app: join game: %w", err)
	}

	player := a.players.Add(username, session.ID, nil, nil)
	session.AddDog(player.ID, username)

	a.log.Info("player joined", zap.String("name", username), zap.String("map", mapID), zap.Uint64("playerId", player.ID))
	return player.ID, player.Token, nil
}

// GetPlayer looks up the player bound to token.
func (a *App) GetPlayer(token string) (*dogs.Player, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	player, ok := a.players.ByToken(token)
	if !ok {
		return nil, ErrUnknownToken
	}
	return player, nil
}

// PlayerInfo is one entry of GetPlayersInfo's listing.
type PlayerInfo struct {
	Name string `json:"name"`
}

// GetPlayersInfo returns every live player's dog name keyed by player
// id as a string, for the /api/v1/game/players endpoint.
func (a *App) GetPlayersInfo() map[string]PlayerInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]PlayerInfo)
	for _, p := range a.players.All() {
		out[fmt.Sprintf("%d", p.ID)] = PlayerInfo{Name: p.DogName}
	}
	return out
}

// GetGameState builds the live-state view for the session that owns
// token's player.
func (a *App) GetGameState(token string) (GameStateView, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	player, ok := a.players.ByToken(token)
	if !ok {
		return GameStateView{}, ErrUnknownToken
	}
	view, ok := a.sessionView(player.SessionID)
	if !ok {
		return GameStateView{}, fmt.Errorf("app: player %d references missing session %d", player.ID, player.SessionID)
	}
	return view, nil
}

// SessionView builds the live-state view for sessionID directly,
// for callers (the live-state push hub) that already know the
// session rather than a player token.
func (a *App) SessionView(sessionID uint64) (GameStateView, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionView(sessionID)
}

// SessionIDs lists every live session id, for the live-state push hub
// to fan a tick's broadcast out across.
func (a *App) SessionIDs() []uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sessions := a.game.Sessions()
	ids := make([]uint64, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

func (a *App) sessionView(sessionID uint64) (GameStateView, bool) {
	session, ok := a.game.Session(sessionID)
	if !ok {
		return GameStateView{}, false
	}

	view := GameStateView{Players: make(map[string]DogView), Loot: make(map[string]LootView)}
	for _, d := range session.Dogs() {
		view.Players[fmt.Sprintf("%d", d.ID)] = DogView{
			Position: [2]float64{d.Position.X, d.Position.Y},
			Speed:    [2]float64{d.Speed.DX, d.Speed.DY},
			Dir:      directionCodes[d.Direction],
			Bag:      d.Bag,
			Score:    d.Score,
		}
	}
	for _, l := range session.Loots() {
		view.Loot[fmt.Sprintf("%d", l.ID)] = LootView{Type: l.Type, Pos: [2]float64{l.Position.X, l.Position.Y}}
	}
	return view, true
}

// SetDirection turns the calling player's dog.
func (a *App) SetDirection(token string, direction dogs.Direction) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	player, ok := a.players.ByToken(token)
	if !ok {
		return ErrUnknownToken
	}
	session, ok := a.game.Session(player.SessionID)
	if !ok {
		return fmt.Errorf("app: player %d references missing session %d", player.ID, player.SessionID)
	}
	return session.SetDogDirection(player.ID, direction)
}

// Maps lists every registered map.
func (a *App) Maps() []*dogs.Map {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.game.Maps()
}

// FindMap looks up a single map by id.
func (a *App) FindMap(id string) (*dogs.Map, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.game.FindMap(id)
}

// RetireDogs sweeps every session for dogs idle at least as long as
// the game's retirement threshold, persists them to the retiree store,
// and removes their dog and player entries (grounded on
// App::RetireDogs).
func (a *App) RetireDogs() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	threshold := a.game.RetirementTime()
	if threshold <= 0 {
		return nil
	}

	for _, session := range a.game.Sessions() {
		var retiredIDs []uint64
		for _, dog := range session.Dogs() {
			if dog.IdleTime < threshold {
				continue
			}
			if err := a.retirees.Save(store.RetiredDog{
				Name:       dog.Name,
				Score:      dog.Score,
				PlayTimeMS: store.DurationToMS(dog.PlayTime),
			}); err != nil {
				return fmt.Errorf("app: retire dog %d: %w", dog.ID, err)
			}
			retiredIDs = append(retiredIDs, dog.ID)
		}
		for _, id := range retiredIDs {
			session.RemoveDog(id)
			if err := a.players.Delete(id); err != nil && !errors.Is(err, dogs.ErrPlayerNotFound) {
				return fmt.Errorf("app: delete retired player %d: %w", id, err)
			}
			a.log.Info("dog retired", zap.Uint64("playerId", id))
		}
	}
	return nil
}

// GetRetiredDogs returns a ranked, paginated leaderboard page.
func (a *App) GetRetiredDogs(ctx context.Context, start, maxSize int) ([]store.RetiredDog, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.retirees.List(start, maxSize)
}

// Snapshot implements snapshot.Source, capturing live game and player state.
func (a *App) Snapshot() snapshot.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot.Build(a.game, a.players)
}

// Restore implements snapshot.Source, replacing live game and player
// state with a previously captured snapshot. Every map referenced by
// state must already be registered on a.game.
func (a *App) Restore(state snapshot.State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return snapshot.Apply(state, a.game, a.players)
}
