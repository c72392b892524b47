package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tarakan-labs/doggame/internal/app"
	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/store"
	"github.com/tarakan-labs/doggame/internal/wsapi"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	game := dogs.NewGame(func() *dogs.LootGenerator {
		return dogs.NewLootGenerator(time.Hour, 0, func() float64 { return 0 })
	})
	if err := game.AddMap(&dogs.Map{
		ID:          "map1",
		Name:        "Town",
		Roads:       []dogs.Road{dogs.NewRoad(dogs.Point{X: 0, Y: 0}, dogs.Point{X: 10, Y: 0})},
		BagCapacity: 3,
		Speed:       1,
		LootCatalog: []dogs.LootType{{Name: "coin"}},
	}); err != nil {
		t.Fatalf("AddMap: %v", err)
	}

	a := app.New(game, dogs.NewPlayers(), store.NewMemoryStore(), zap.NewNop())
	return NewServer(a, NewStrand(), "", zap.NewNop())
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func TestJoinAndGameState(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/game/join", "", map[string]string{"userName": "Fido", "mapId": "map1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("join status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var joined struct {
		PlayerID  uint64 `json:"playerId"`
		AuthToken string `json:"authToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &joined); err != nil {
		t.Fatalf("unmarshal join response: %v", err)
	}
	if len(joined.AuthToken) != dogs.TokenLength {
		t.Fatalf("token length = %d, want %d", len(joined.AuthToken), dogs.TokenLength)
	}

	rr = doJSON(t, s, http.MethodGet, "/api/v1/game/state", joined.AuthToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("game state status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestJoinUnknownMap(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodPost, "/api/v1/game/join", "", map[string]string{"userName": "Fido", "mapId": "nope"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	var body errMsg
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Code != "mapNotFound" {
		t.Fatalf("code = %q, want mapNotFound", body.Code)
	}
}

func TestGameStateMissingToken(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodGet, "/api/v1/game/state", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestPlayerActionAndTick(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/game/join", "", map[string]string{"userName": "Fido", "mapId": "map1"})
	var joined struct {
		AuthToken string `json:"authToken"`
	}
	json.Unmarshal(rr.Body.Bytes(), &joined)

	rr = doJSON(t, s, http.MethodPost, "/api/v1/game/player/action", joined.AuthToken, map[string]string{"move": "R"})
	if rr.Code != http.StatusOK {
		t.Fatalf("action status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s, http.MethodPost, "/api/v1/game/tick", "", map[string]int64{"timeDelta": 1000})
	if rr.Code != http.StatusOK {
		t.Fatalf("tick status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestMapsListAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/maps", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s, http.MethodGet, "/api/v1/maps/map1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var view map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, has := view["Bounds"]; has {
		t.Fatalf("map view leaks internal Bounds: %s", rr.Body.String())
	}
	roads, _ := view["roads"].([]interface{})
	if len(roads) != 1 {
		t.Fatalf("roads = %v, want 1 entry", view["roads"])
	}
	road, _ := roads[0].(map[string]interface{})
	if _, hasX1 := road["x1"]; !hasX1 {
		t.Fatalf("road = %v, want x0/y0/x1 shape for a horizontal road", road)
	}
	if _, hasY1 := road["y1"]; hasY1 {
		t.Fatalf("road = %v, horizontal road should not carry y1", road)
	}

	rr = doJSON(t, s, http.MethodGet, "/api/v1/maps/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestStaticFallbackReturns404WithoutWwwRoot(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodGet, "/index.html", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (not the reference implementation's 200 bug)", rr.Code)
	}
}

func TestWebSocketRouteWithoutHubIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodGet, "/api/v1/game/ws", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestWebSocketRouteRequiresToken(t *testing.T) {
	s := newTestServer(t)
	s.AttachHub(wsapi.NewHub(zap.NewNop()))
	rr := doJSON(t, s, http.MethodGet, "/api/v1/game/ws", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
