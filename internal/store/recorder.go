package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/sim"
)

const (
	recorderQueue = 1024
	// statsEvery is how many ticks pass between running-total writes.
	statsEvery = 60
	// finalizeTimeout bounds the last write after the recorder is stopped.
	finalizeTimeout = 5 * time.Second
)

type op struct {
	crash     *CrashEvent
	objective *ObjectiveEvent
	stats     *FlightStats
}

// Recorder logs one flight from the engine's frames. Observe runs on the
// engine goroutine and never blocks; writes happen in Run.
type Recorder struct {
	store *Store
	log   zerolog.Logger
	id    uuid.UUID
	ops   chan op

	mu      sync.Mutex
	stats   FlightStats
	lastPos vector.Vec3
	primed  bool

	dropped atomic.Uint64
}

// NewRecorder starts a flight row and returns a recorder for it.
func NewRecorder(ctx context.Context, st *Store, source string, startedAt time.Time, log zerolog.Logger) (*Recorder, error) {
	f, err := st.StartFlight(ctx, source, startedAt)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		store: st,
		log:   log.With().Str("component", "recorder").Str("flight", f.ID.String()).Logger(),
		id:    f.ID,
		ops:   make(chan op, recorderQueue),
	}, nil
}

// FlightID returns the flight being recorded.
func (r *Recorder) FlightID() uuid.UUID { return r.id }

// Dropped returns how many writes were skipped because the queue was full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Stats returns the running totals.
func (r *Recorder) Stats() FlightStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Observe implements sim.Observer.
func (r *Recorder) Observe(f sim.Frame) {
	r.mu.Lock()
	p := f.Aircraft.Position
	// A respawn teleports the aircraft; that jump is not flown distance.
	if r.primed && !f.HasEvent(sim.EventRespawn) {
		r.stats.Distance += p.Dist(r.lastPos)
	}
	r.lastPos, r.primed = p, true
	r.stats.Ticks++
	if r.stats.Ticks == 1 || p.Y > r.stats.MaxAltitude {
		r.stats.MaxAltitude = p.Y
	}

	var pending []op
	for _, ev := range f.Events {
		switch ev.Type {
		case sim.EventCrash:
			r.stats.Crashes++
			pending = append(pending, op{crash: &CrashEvent{
				FlightID: r.id, Tick: f.Tick, At: ev.At,
				X: ev.Position.X, Y: ev.Position.Y, Z: ev.Position.Z,
			}})
		case sim.EventGoalCompleted:
			r.stats.Objectives = ev.Count
			pending = append(pending, op{objective: &ObjectiveEvent{
				FlightID: r.id, Tick: f.Tick, At: ev.At,
				X: ev.Position.X, Y: ev.Position.Y, Z: ev.Position.Z,
				Count: ev.Count,
			}})
		}
	}
	if len(pending) > 0 || r.stats.Ticks%statsEvery == 0 {
		st := r.stats
		pending = append(pending, op{stats: &st})
	}
	r.mu.Unlock()

	for _, o := range pending {
		select {
		case r.ops <- o:
		default:
			r.dropped.Add(1)
		}
	}
}

// Run writes queued records until ctx is done, then drains the queue and
// closes the flight.
func (r *Recorder) Run(ctx context.Context) error {
	r.log.Info().Msg("recording flight")
	wctx := context.WithoutCancel(ctx)
	for {
		select {
		case o := <-r.ops:
			r.write(wctx, o)
		case <-ctx.Done():
			return r.finish()
		}
	}
}

func (r *Recorder) finish() error {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

drain:
	for {
		select {
		case o := <-r.ops:
			r.write(ctx, o)
		default:
			break drain
		}
	}

	st := r.Stats()
	if err := r.store.EndFlight(ctx, r.id, time.Now(), st); err != nil {
		r.log.Error().Err(err).Msg("failed to close flight")
		return err
	}
	if n := r.Dropped(); n > 0 {
		r.log.Warn().Uint64("dropped", n).Msg("flight log writes dropped")
	}
	r.log.Info().
		Uint64("ticks", st.Ticks).
		Int("crashes", st.Crashes).
		Int("objectives", st.Objectives).
		Msg("flight closed")
	return nil
}

func (r *Recorder) write(ctx context.Context, o op) {
	var err error
	switch {
	case o.crash != nil:
		err = r.store.AddCrash(ctx, *o.crash)
	case o.objective != nil:
		err = r.store.AddObjective(ctx, *o.objective)
	case o.stats != nil:
		err = r.store.UpdateStats(ctx, r.id, *o.stats)
	}
	if err != nil {
		r.log.Error().Err(err).Msg("flight log write failed")
	}
}
