// Command dogserver runs the dog game's authoritative server: the REST
// API, an optional live-state WebSocket hub, and an MCP stdio
// transport share one in-process App over one map configuration.
//
// Grounded on the teacher's main.go (dual-transport startup, signal
// handling, background goroutines), with its CLI layer rebuilt on
// github.com/urfave/cli/v3 (a teacher dependency main.go itself left
// unused in favor of stdlib flag) in place of flag.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/tarakan-labs/doggame/internal/app"
	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/httpapi"
	"github.com/tarakan-labs/doggame/internal/mapconfig"
	"github.com/tarakan-labs/doggame/internal/mcpapi"
	"github.com/tarakan-labs/doggame/internal/snapshot"
	"github.com/tarakan-labs/doggame/internal/store"
	"github.com/tarakan-labs/doggame/internal/wsapi"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	cmd := &cli.Command{
		Name:  "dogserver",
		Usage: "run the dog game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-file", Required: true, Usage: "path to the map configuration JSON"},
			&cli.StringFlag{Name: "www-root", Required: true, Usage: "directory of static content to serve"},
			&cli.StringFlag{Name: "addr", Value: "0.0.0.0:8080", Usage: "listen address"},
			&cli.IntFlag{Name: "tick-period", Usage: "milliseconds between automatic ticks; 0 disables the internal ticker"},
			&cli.BoolFlag{Name: "randomize-spawn-points", Usage: "spawn dogs at a random point on a random road instead of the map's first road"},
			&cli.StringFlag{Name: "state-file", Usage: "path to load/save a state snapshot"},
			&cli.IntFlag{Name: "save-state-period", Usage: "milliseconds between automatic snapshot saves; 0 disables autosave"},
			&cli.StringFlag{Name: "db-url", Sources: cli.EnvVars("DOG_GAME_DB_URL"), Usage: "Postgres connection string for the retiree leaderboard"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dogserver: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log, err := buildLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	game, err := mapconfig.Load(cmd.String("config-file"), cmd.Bool("randomize-spawn-points"))
	if err != nil {
		return fmt.Errorf("load map config: %w", err)
	}

	retirees, closeStore, err := buildRetireeStore(cmd.String("db-url"), log)
	if err != nil {
		return fmt.Errorf("build retiree store: %w", err)
	}
	defer closeStore()

	players := dogs.NewPlayers()
	a := app.New(game, players, retirees, log)

	stateFile := cmd.String("state-file")
	autosaver := snapshot.NewAutosaver(a, stateFile, time.Duration(cmd.Int("save-state-period"))*time.Millisecond, log)
	if err := autosaver.Restore(); err != nil {
		log.Warn("state restore failed", zap.Error(err))
	}

	hub := wsapi.NewHub(log)
	go hub.Run()

	game.DoOnTick(func(delta time.Duration) {
		if err := a.RetireDogs(); err != nil {
			log.Error("retire dogs failed", zap.Error(err))
		}
		autosaver.OnTick(delta)
		for _, sessionID := range a.SessionIDs() {
			if view, ok := a.SessionView(sessionID); ok {
				hub.BroadcastState(sessionID, view)
			}
		}
	})

	strand := httpapi.NewStrand()
	server := httpapi.NewServer(a, strand, cmd.String("www-root"), log)
	server.AttachHub(hub)

	mcpTools := mcpapi.NewServer(a)
	go func() {
		if err := mcpserver.ServeStdio(mcpTools.MCPServer()); err != nil {
			log.Warn("mcp stdio server exited", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:         cmd.String("addr"),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickPeriod := time.Duration(cmd.Int("tick-period")) * time.Millisecond
	var ticker *time.Ticker
	if tickPeriod > 0 {
		ticker = time.NewTicker(tickPeriod)
		go runTicker(shutdownCtx, ticker, tickPeriod, strand, game)
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case <-shutdownCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("server exited", zap.Error(err))
			return err
		}
	}

	if ticker != nil {
		ticker.Stop()
	}

	shutdownTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownTimeout); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	if stateFile != "" {
		if err := autosaver.Save(); err != nil {
			log.Error("final state save failed", zap.Error(err))
		}
	}

	log.Info("server stopped")
	return nil
}

func runTicker(ctx context.Context, ticker *time.Ticker, period time.Duration, strand *httpapi.Strand, game *dogs.Game) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			strand.Go(func() {
				game.ExternalTick(period)
			})
		}
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildRetireeStore(dbURL string, log *zap.Logger) (store.RetireeStore, func(), error) {
	if dbURL == "" {
		log.Warn("no --db-url/DOG_GAME_DB_URL set, retiree leaderboard is in-memory only")
		s := store.NewMemoryStore()
		return s, func() { s.Close() }, nil
	}

	s, err := store.NewPostgresStore(dbURL)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}
