package dogs

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// TokenLength is the fixed length of a player's bearer token.
const TokenLength = 32

// ErrPlayerNotFound is returned by Players.Delete for an unknown id.
var ErrPlayerNotFound = errors.New("dogs: player not found")

// Player binds an authentication token to a dog in a session.
type Player struct {
	ID        uint64
	SessionID uint64
	DogName   string
	Token     string
}

// Players is the bijection between player ids, tokens, and players,
// kept consistent by Add/Delete.
type Players struct {
	byID    map[uint64]*Player
	byToken map[string]*Player
}

// NewPlayers constructs an empty directory.
func NewPlayers() *Players {
	return &Players{
		byID:    make(map[uint64]*Player),
		byToken: make(map[string]*Player),
	}
}

// Add registers a new player. If id is nil, the next unused id is
// assigned. If token is nil, a cryptographically random 32-char
// lowercase hex token is generated.
func (p *Players) Add(dogName string, sessionID uint64, id *uint64, token *string) *Player {
	var playerID uint64
	if id != nil {
		playerID = *id
	} else {
		for _, existing := range p.byID {
			if existing.ID >= playerID {
				playerID = existing.ID + 1
			}
		}
	}

	playerToken := ""
	if token != nil {
		playerToken = *token
	} else {
		playerToken = generateToken()
	}

	player := &Player{ID: playerID, SessionID: sessionID, DogName: dogName, Token: playerToken}
	p.byID[playerID] = player
	p.byToken[playerToken] = player
	return player
}

// ByToken looks up a player by bearer token.
func (p *Players) ByToken(token string) (*Player, bool) {
	player, ok := p.byToken[token]
	return player, ok
}

// ByID looks up a player by id.
func (p *Players) ByID(id uint64) (*Player, bool) {
	player, ok := p.byID[id]
	return player, ok
}

// All returns every player, in no particular order.
func (p *Players) All() []*Player {
	out := make([]*Player, 0, len(p.byID))
	for _, player := range p.byID {
		out = append(out, player)
	}
	return out
}

// Delete removes a player from both the id and token maps atomically.
func (p *Players) Delete(id uint64) error {
	player, ok := p.byID[id]
	if !ok {
		return ErrPlayerNotFound
	}
	delete(p.byToken, player.Token)
	delete(p.byID, id)
	return nil
}

// generateToken draws two 64-bit values from a cryptographic-quality
// source and formats them as 16 lowercase hex digits each, yielding a
// 32-char token. crypto/rand replaces the reference implementation's
// non-cryptographic generator (see SPEC_FULL.md §9, "Secure token generation").
func generateToken() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", buf)
}
