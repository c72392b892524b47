package mcpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/tarakan-labs/doggame/internal/app"
	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/store"
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
	return NewServer(a)
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		return ""
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is not TextContent: %T", res.Content[0])
	}
	return tc.Text
}

func TestJoinGameAndGameState(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleJoinGame(context.Background(), callTool(map[string]interface{}{
		"user_name": "Fido",
		"map_id":    "map1",
	}))
	if err != nil {
		t.Fatalf("handleJoinGame: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Joined as player") {
		t.Fatalf("join result = %q", text)
	}

	idx := strings.Index(text, "token: ")
	if idx < 0 {
		t.Fatalf("no token in join result: %q", text)
	}
	token := strings.TrimSpace(text[idx+len("token: "):])

	res, err = s.handleGameState(context.Background(), callTool(map[string]interface{}{"token": token}))
	if err != nil {
		t.Fatalf("handleGameState: %v", err)
	}
	if !strings.Contains(resultText(t, res), "Players (1)") {
		t.Fatalf("game state result = %q", resultText(t, res))
	}
}

func TestJoinGameUnknownMap(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleJoinGame(context.Background(), callTool(map[string]interface{}{
		"user_name": "Fido",
		"map_id":    "nope",
	}))
	if err != nil {
		t.Fatalf("handleJoinGame: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected error result for unknown map")
	}
}

func TestListMaps(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleListMaps(context.Background(), callTool(nil))
	if err != nil {
		t.Fatalf("handleListMaps: %v", err)
	}
	if !strings.Contains(resultText(t, res), "map1") {
		t.Fatalf("list maps result = %q", resultText(t, res))
	}
}

func TestGetMapNotFound(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleGetMap(context.Background(), callTool(map[string]interface{}{"map_id": "nope"}))
	if err != nil {
		t.Fatalf("handleGetMap: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected error result for unknown map")
	}
}

func TestListRecordsEmpty(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleListRecords(context.Background(), callTool(nil))
	if err != nil {
		t.Fatalf("handleListRecords: %v", err)
	}
	if !strings.Contains(resultText(t, res), "No retired dogs yet") {
		t.Fatalf("list records result = %q", resultText(t, res))
	}
}
