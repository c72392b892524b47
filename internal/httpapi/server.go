// Package httpapi is the REST transport for the game, grounded on the
// reference server's request_handler.h/.cpp (the same route table,
// TryExtractToken bearer-auth, and {code,message} error bodies) and
// structurally adapted from the teacher's api/server.go (gorilla/mux
// wiring, respondJSON-style helpers). Every handler that touches game
// state runs through a Strand, generalizing the teacher's RWMutex
// manager into a single serial execution context.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tarakan-labs/doggame/internal/app"
	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/store"
	"github.com/tarakan-labs/doggame/internal/wsapi"
)

const tokenLength = dogs.TokenLength

// Server is the REST API's http.Handler.
type Server struct {
	app     *app.App
	strand  *Strand
	router  *mux.Router
	log     *zap.Logger
	wwwRoot string
	hub     *wsapi.Hub
}

// NewServer builds a Server. wwwRoot, if non-empty, is served as the
// static file root for any request not matched by an /api/v1 route;
// an empty wwwRoot disables static file serving entirely.
func NewServer(a *app.App, strand *Strand, wwwRoot string, log *zap.Logger) *Server {
	s := &Server{app: a, strand: strand, wwwRoot: wwwRoot, log: log}
	s.router = mux.NewRouter()
	s.setupRoutes()
	return s
}

// AttachHub wires a wsapi.Hub into the /api/v1/game/ws route, enabling
// live-state push for clients that opt into it. A Server with no
// attached hub serves every other route normally and 404s /game/ws.
func (s *Server) AttachHub(hub *wsapi.Hub) {
	s.hub = hub
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/game/join", s.handleJoin)
	api.HandleFunc("/game/state", s.handleGameState)
	api.HandleFunc("/game/player/action", s.handlePlayerAction)
	api.HandleFunc("/game/players", s.handlePlayersList)
	api.HandleFunc("/game/tick", s.handleTick)
	api.HandleFunc("/game/records", s.handleRecords)
	api.HandleFunc("/maps", s.handleMaps)
	api.HandleFunc("/maps/{id}", s.handleMaps)
	api.HandleFunc("/game/ws", s.handleWebSocket)

	if s.wwwRoot != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.wwwRoot)))
	} else {
		s.router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "badRequest", "Bad request")
		})
	}
}

// ServeHTTP implements http.Handler, tagging each request with a
// correlation id fed into structured log lines.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	start := time.Now()
	s.router.ServeHTTP(w, r)
	s.log.Info("request",
		zap.String("requestId", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("duration", time.Since(start)),
	)
}

func tryExtractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, prefix)
	if len(token) != tokenLength {
		return "", false
	}
	return token, true
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req struct {
		UserName string `json:"userName"`
		MapID    string `json:"mapId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalidArgument", "Join game request parse error")
		return
	}
	if req.UserName == "" {
		writeError(w, http.StatusBadRequest, "invalidArgument", "Invalid name")
		return
	}

	var (
		id    uint64
		token string
		err   error
	)
	s.strand.Do(func() {
		id, token, err = s.app.JoinGame(req.UserName, req.MapID)
	})
	if err != nil {
		if errors.Is(err, dogs.ErrUnknownMap) {
			writeError(w, http.StatusNotFound, "mapNotFound", "Map not found")
			return
		}
		writeError(w, http.StatusBadRequest, "invalidArgument", "Join game request parse error")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		PlayerID  uint64 `json:"playerId"`
		AuthToken string `json:"authToken"`
	}{PlayerID: id, AuthToken: token})
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}

	token, ok := tryExtractToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalidToken", "Authorization header has wrong format")
		return
	}

	var (
		state app.GameStateView
		err   error
	)
	s.strand.Do(func() {
		state, err = s.app.GetGameState(token)
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

var actionDirections = map[string]dogs.Direction{
	"U": dogs.DirectionNorth,
	"D": dogs.DirectionSouth,
	"L": dogs.DirectionWest,
	"R": dogs.DirectionEast,
	"":  dogs.DirectionNone,
}

func (s *Server) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	token, ok := tryExtractToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalidToken", "Authorization header has wrong format")
		return
	}

	var req struct {
		Move string `json:"move"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalidArgument", "Action parse error")
		return
	}
	direction, known := actionDirections[req.Move]
	if !known {
		writeError(w, http.StatusBadRequest, "invalidArgument", "Action parse error")
		return
	}

	var err error
	s.strand.Do(func() {
		err = s.app.SetDirection(token, direction)
	})
	if err != nil {
		if errors.Is(err, app.ErrUnknownToken) {
			writeError(w, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
			return
		}
		writeError(w, http.StatusBadRequest, "invalidArgument", "Action parse error")
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handlePlayersList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}

	token, ok := tryExtractToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalidToken", "Authorization header is missing")
		return
	}

	var info map[string]app.PlayerInfo
	var err error
	s.strand.Do(func() {
		if _, perr := s.app.GetPlayer(token); perr != nil {
			err = perr
			return
		}
		info = s.app.GetPlayersInfo()
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req struct {
		TimeDelta int64 `json:"timeDelta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalidArgument", "JSON parse error")
		return
	}

	s.strand.Do(func() {
		s.app.Game().ExternalTick(time.Duration(req.TimeDelta) * time.Millisecond)
	})
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}

	query := r.URL.Query()
	start := 0
	maxSize := 0
	if v := query.Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			start = n
		}
	}
	if v := query.Get("maxItems"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalidArgument", "Too many items")
			return
		}
		if n > 100 {
			writeError(w, http.StatusBadRequest, "invalidArgument", "Too many items")
			return
		}
		maxSize = n
	}

	var (
		records []store.RetiredDog
		err     error
	)
	s.strand.Do(func() {
		records, err = s.app.GetRetiredDogs(r.Context(), start, maxSize)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internalError", "Could not list records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}

	vars := mux.Vars(r)
	id, hasID := vars["id"]
	if !hasID {
		writeJSON(w, http.StatusOK, mapShortViews(s.app.Maps()))
		return
	}

	m, ok := s.app.FindMap(id)
	if !ok {
		writeError(w, http.StatusNotFound, "mapNotFound", "Map not found")
		return
	}
	writeJSON(w, http.StatusOK, toMapView(m))
}

// handleWebSocket upgrades a request to a live-state push channel
// scoped to the caller's session. It requires the same bearer token
// as the REST endpoints; unlike them it is not wired through the
// strand, since the hub only ever reads state the tick loop already
// published via BroadcastState.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, "badRequest", "Bad request")
		return
	}

	token, ok := tryExtractToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalidToken", "Authorization header has wrong format")
		return
	}
	player, err := s.app.GetPlayer(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}

	s.hub.ServeWS(w, r, player.SessionID)
}

type mapShortView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func mapShortViews(maps []*dogs.Map) []mapShortView {
	out := make([]mapShortView, 0, len(maps))
	for _, m := range maps {
		out = append(out, mapShortView{ID: m.ID, Name: m.Name})
	}
	return out
}

// mapView mirrors internal/mapconfig's on-disk document shape, so a
// client sees the same road/office/loot schema it could have loaded
// from the config file, rather than the server's internal Map type
// (which carries a derived, server-only Bounds rectangle per road).
type mapView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Roads       []roadView     `json:"roads"`
	Buildings   []buildingView `json:"buildings"`
	Offices     []officeView   `json:"offices"`
	LootTypes   []lootTypeView `json:"lootTypes"`
	DogSpeed    float64        `json:"dogSpeed"`
	BagCapacity int            `json:"bagCapacity"`
}

type roadView struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type buildingView struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeView struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type lootTypeView struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Type     string   `json:"type"`
	Rotation *int     `json:"rotation,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Value    *int     `json:"value,omitempty"`
}

func toMapView(m *dogs.Map) mapView {
	roads := make([]roadView, 0, len(m.Roads))
	for _, r := range m.Roads {
		rv := roadView{X0: r.Start.X, Y0: r.Start.Y}
		if r.IsHorizontal() {
			x1 := r.End.X
			rv.X1 = &x1
		} else {
			y1 := r.End.Y
			rv.Y1 = &y1
		}
		roads = append(roads, rv)
	}

	buildings := make([]buildingView, 0, len(m.Buildings))
	for _, b := range m.Buildings {
		buildings = append(buildings, buildingView{X: b.Position.X, Y: b.Position.Y, W: b.Size.Width, H: b.Size.Height})
	}

	offices := make([]officeView, 0, len(m.Offices))
	for _, o := range m.Offices {
		offices = append(offices, officeView{ID: o.ID, X: o.Position.X, Y: o.Position.Y, OffsetX: o.Offset.DX, OffsetY: o.Offset.DY})
	}

	lootTypes := make([]lootTypeView, 0, len(m.LootCatalog))
	for _, l := range m.LootCatalog {
		lootTypes = append(lootTypes, lootTypeView{
			Name:     l.Name,
			File:     l.File,
			Type:     l.Type,
			Rotation: l.Rotation,
			Color:    l.Color,
			Scale:    l.Scale,
			Value:    l.Value,
		})
	}

	return mapView{
		ID:          m.ID,
		Name:        m.Name,
		Roads:       roads,
		Buildings:   buildings,
		Offices:     offices,
		LootTypes:   lootTypes,
		DogSpeed:    m.Speed,
		BagCapacity: m.BagCapacity,
	}
}
