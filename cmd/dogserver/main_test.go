package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/tarakan-labs/doggame/internal/dogs"
	"github.com/tarakan-labs/doggame/internal/httpapi"
)

func TestBuildRetireeStoreFallsBackToMemoryWithoutDBURL(t *testing.T) {
	log := zaptest.NewLogger(t)
	s, closeFn, err := buildRetireeStore("", log)
	if err != nil {
		t.Fatalf("buildRetireeStore: %v", err)
	}
	defer closeFn()

	if _, err := s.List(0, 0); err != nil {
		t.Fatalf("List on fallback store: %v", err)
	}
}

func TestBuildLoggerProductionAndDebug(t *testing.T) {
	if _, err := buildLogger(false); err != nil {
		t.Fatalf("buildLogger(false): %v", err)
	}
	if _, err := buildLogger(true); err != nil {
		t.Fatalf("buildLogger(true): %v", err)
	}
}

func TestRunTickerAdvancesGameAndStopsOnCancel(t *testing.T) {
	game := dogs.NewGame(func() *dogs.LootGenerator {
		return dogs.NewLootGenerator(time.Hour, 0, func() float64 { return 0 })
	})
	ticked := make(chan struct{}, 1)
	game.DoOnTick(func(time.Duration) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})
	strand := httpapi.NewStrand()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runTicker(ctx, ticker, 10*time.Millisecond, strand, game)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runTicker did not stop after context cancellation")
	}

	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("runTicker never advanced the game")
	}
}
