package snapshot

import (
	"time"

	"go.uber.org/zap"
)

// Source supplies the state an Autosaver persists and the sink it
// restores into, decoupling the autosave ticker from internal/app (see
// DESIGN.md).
type Source interface {
	Snapshot() State
	Restore(State) error
}

// Autosaver periodically writes a Source's state to a file, grounded on
// the reference server's infrastructure.Autosaver (same OnTick/Save/Restore
// shape, elapsed-accumulator period check), with zap replacing its
// logger::Logger::log_json calls.
type Autosaver struct {
	source    Source
	stateFile string
	period    time.Duration
	elapsed   time.Duration
	log       *zap.Logger
}

// NewAutosaver constructs an Autosaver that saves to stateFile every
// period of accumulated tick time. A period of zero disables periodic
// saving (OnTick becomes a no-op); Save can still be called explicitly.
func NewAutosaver(source Source, stateFile string, period time.Duration, log *zap.Logger) *Autosaver {
	return &Autosaver{source: source, stateFile: stateFile, period: period, log: log}
}

// Restore loads stateFile, if present, and applies it to the source.
// A missing file is logged and treated as "nothing to restore", not an error.
func (a *Autosaver) Restore() error {
	if a.stateFile == "" {
		return nil
	}
	state, err := LoadFile(a.stateFile)
	if err != nil {
		a.log.Info("autosave not found", zap.String("file", a.stateFile), zap.Error(err))
		return nil
	}
	if err := a.source.Restore(state); err != nil {
		a.log.Error("restore error", zap.Error(err))
		return err
	}
	a.log.Info("autosave restored", zap.String("file", a.stateFile))
	return nil
}

// Save writes the source's current state to stateFile immediately.
func (a *Autosaver) Save() error {
	if a.stateFile == "" {
		return nil
	}
	state := a.source.Snapshot()
	if err := SaveFile(a.stateFile, state); err != nil {
		a.log.Error("autosave error", zap.Error(err))
		return err
	}
	a.log.Info("state saved", zap.String("file", a.stateFile))
	return nil
}

// OnTick accumulates delta and saves once the configured period elapses.
func (a *Autosaver) OnTick(delta time.Duration) {
	if a.period <= 0 {
		return
	}
	a.elapsed += delta
	if a.elapsed >= a.period {
		a.Save()
		a.elapsed = 0
	}
}
