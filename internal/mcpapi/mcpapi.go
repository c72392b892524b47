// Package mcpapi exposes a reduced surface of internal/app's use-cases
// as MCP tools over stdio, for coding-agent and scripted-client access.
// It is structurally adapted from the teacher's
// transport/mcp.Client: same server construction and tool registration
// pattern, cut down from the teacher's ~25 grid-game tools to the
// handful that map onto this domain. Unlike the teacher's client,
// which proxies to the REST API over HTTP, each tool here calls
// internal/app directly since both transports run in the same
// process.
package mcpapi

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tarakan-labs/doggame/internal/app"
	"github.com/tarakan-labs/doggame/internal/dogs"
)

// Server wraps an MCP server proxying to an App.
type Server struct {
	app       *app.App
	mcpServer *server.MCPServer
}

// NewServer builds an MCP server with every tool registered.
func NewServer(a *app.App) *Server {
	s := &Server{app: a}
	s.mcpServer = server.NewMCPServer(
		"Dog Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Dog Game - MCP Interface

This is a thin proxy over the dog game's REST API use-cases.

AVAILABLE TOOLS:
- join_game: join a map, returns a player id and auth token
- game_state: get the live state of the session your token belongs to
- move: turn your dog (up/down/left/right/stop)
- list_maps: list every available map
- get_map: get one map's full layout
- list_records: list retired dogs ranked by score

Tools that act on your dog (game_state, move) require the token
returned by join_game.`),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, for serving over stdio.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Join a map with a given username, returning a player id and auth token",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the dog to join with",
				},
				"map_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the map to join",
				},
			},
			Required: []string{"user_name", "map_id"},
		},
	}, s.handleJoinGame)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the live state of the session your token belongs to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"token": map[string]interface{}{
					"type":        "string",
					"description": "Auth token returned by join_game",
				},
			},
			Required: []string{"token"},
		},
	}, s.handleGameState)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Turn your dog in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"token": map[string]interface{}{
					"type":        "string",
					"description": "Auth token returned by join_game",
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right", "stop"},
					"description": "Direction to turn",
				},
			},
			Required: []string{"token", "direction"},
		},
	}, s.handleMove)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_maps",
		Description: "List every available map",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListMaps)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_map",
		Description: "Get one map's full layout",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the map to fetch",
				},
			},
			Required: []string{"map_id"},
		},
	}, s.handleGetMap)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_records",
		Description: "List retired dogs ranked by score, highest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"start": map[string]interface{}{
					"type":        "integer",
					"description": "Offset into the ranking (optional)",
				},
				"max_items": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of records to return (optional, max 100)",
				},
			},
		},
	}, s.handleListRecords)
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := args[name].(string)
	return v
}

func intArg(request mcp.CallToolRequest, name string) (int, bool) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return 0, false
	}
	v, ok := args[name].(float64)
	return int(v), ok
}

var mcpDirections = map[string]dogs.Direction{
	"up":    dogs.DirectionNorth,
	"down":  dogs.DirectionSouth,
	"left":  dogs.DirectionWest,
	"right": dogs.DirectionEast,
	"stop":  dogs.DirectionNone,
}

func (s *Server) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userName := stringArg(request, "user_name")
	mapID := stringArg(request, "map_id")

	id, token, err := s.app.JoinGame(userName, mapID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Joined as player %d on map %q\ntoken: %s", id, mapID, token)), nil
}

func (s *Server) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := stringArg(request, "token")

	state, err := s.app.GetGameState(token)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (s *Server) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := stringArg(request, "token")
	direction, ok := mcpDirections[stringArg(request, "direction")]
	if !ok {
		return mcp.NewToolResultError("unknown direction"), nil
	}

	if err := s.app.SetDirection(token, direction); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	maps := s.app.Maps()
	result := fmt.Sprintf("Available maps (%d):\n\n", len(maps))
	for _, m := range maps {
		result += fmt.Sprintf("- %s (%s)\n", m.ID, m.Name)
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleGetMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := stringArg(request, "map_id")
	m, ok := s.app.FindMap(mapID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("map %q not found", mapID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Map %s (%s): %d roads, %d buildings, %d offices, %d loot types",
		m.ID, m.Name, len(m.Roads), len(m.Buildings), len(m.Offices), len(m.LootCatalog))), nil
}

func (s *Server) handleListRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, _ := intArg(request, "start")
	maxItems, hasMax := intArg(request, "max_items")
	if !hasMax {
		maxItems = 0
	}
	if maxItems > 100 {
		return mcp.NewToolResultError("max_items must be at most 100"), nil
	}

	records, err := s.app.GetRetiredDogs(ctx, start, maxItems)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(records) == 0 {
		return mcp.NewToolResultText("No retired dogs yet."), nil
	}

	result := "Retired dogs:\n\n"
	for i, r := range records {
		result += fmt.Sprintf("%d. %s — score %d, play time %dms\n", start+i+1, r.Name, r.Score, r.PlayTimeMS)
	}
	return mcp.NewToolResultText(result), nil
}

func formatGameState(state *app.GameStateView) string {
	if state == nil {
		return "No game state available"
	}
	result := fmt.Sprintf("Players (%d):\n", len(state.Players))
	for id, dog := range state.Players {
		result += fmt.Sprintf("- #%s pos=(%.1f,%.1f) dir=%q score=%d bag=%d\n",
			id, dog.Position[0], dog.Position[1], dog.Dir, dog.Score, len(dog.Bag))
	}
	result += fmt.Sprintf("\nLoot (%d):\n", len(state.Loot))
	for id, l := range state.Loot {
		result += fmt.Sprintf("- #%s type=%d pos=(%.1f,%.1f)\n", id, l.Type, l.Pos[0], l.Pos[1])
	}
	return result
}
