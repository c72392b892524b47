package httpapi

// Strand serializes every state-mutating call onto a single goroutine,
// replacing the teacher's sync.RWMutex-guarded manager with an explicit
// single serial execution context, per the simulation's own
// single-threaded design (see SPEC_FULL.md §5, "the API strand"). HTTP handlers
// running on arbitrary goroutines call Do and block until their
// closure has run on the strand's goroutine.
type Strand struct {
	commands chan func()
}

// NewStrand starts the strand's draining goroutine and returns a handle.
func NewStrand() *Strand {
	s := &Strand{commands: make(chan func(), 256)}
	go s.run()
	return s
}

func (s *Strand) run() {
	for fn := range s.commands {
		fn()
	}
}

// Do runs fn on the strand and blocks until it completes.
func (s *Strand) Do(fn func()) {
	done := make(chan struct{})
	s.commands <- func() {
		fn()
		close(done)
	}
	<-done
}

// Go schedules fn to run on the strand without waiting for it to
// complete, used by the tick loop so a slow request handler never
// delays the next tick's enqueue.
func (s *Strand) Go(fn func()) {
	s.commands <- fn
}
