package sim

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"infinite-flight/internal/terrain"
)

// Observer receives every frame on the engine goroutine. Implementations
// must not block.
type Observer interface {
	Observe(Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Frame)

func (f ObserverFunc) Observe(fr Frame) { f(fr) }

type stateReq struct {
	reply chan Frame
}

type terrainReq struct {
	reply chan []terrain.Chunk
}

type subscribeReq struct {
	ch chan Frame
}

// Engine runs a Sim on its own goroutine and serializes commands, queries and
// subscriptions against it.
type Engine struct {
	sim *Sim
	log zerolog.Logger

	// Actor channels
	cmdCh       chan Command
	stateReqCh  chan stateReq
	terrainCh   chan terrainReq
	subscribeCh chan subscribeReq
	unsubCh     chan chan Frame

	tickHz    float64
	observers []Observer
}

type Config struct {
	TickHz    float64
	Sim       *Sim
	Logger    zerolog.Logger
	Observers []Observer
}

func NewEngine(cfg Config) *Engine {
	if cfg.TickHz <= 0 {
		cfg.TickHz = 60
	}
	return &Engine{
		sim:         cfg.Sim,
		log:         cfg.Logger.With().Str("component", "engine").Logger(),
		cmdCh:       make(chan Command, 128),
		stateReqCh:  make(chan stateReq, 32),
		terrainCh:   make(chan terrainReq, 32),
		subscribeCh: make(chan subscribeReq, 32),
		unsubCh:     make(chan chan Frame, 32),
		tickHz:      cfg.TickHz,
		observers:   cfg.Observers,
	}
}

// Submit queues cmd for the next loop iteration. It returns false when the
// queue is full and the command was dropped.
func (e *Engine) Submit(cmd Command) bool {
	select {
	case e.cmdCh <- cmd:
		return true
	default:
		e.log.Warn().Str("type", string(cmd.Type())).Msg("command queue full, dropping")
		return false
	}
}

// GetState returns the most recent frame.
func (e *Engine) GetState(ctx context.Context) (Frame, error) {
	req := stateReq{reply: make(chan Frame, 1)}
	return request(ctx, e.stateReqCh, req, req.reply)
}

// Terrain returns a deep copy of every streamed chunk.
func (e *Engine) Terrain(ctx context.Context) ([]terrain.Chunk, error) {
	req := terrainReq{reply: make(chan []terrain.Chunk, 1)}
	return request(ctx, e.terrainCh, req, req.reply)
}

func request[R, T any](ctx context.Context, ch chan R, req R, reply chan T) (T, error) {
	var zero T
	select {
	case ch <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Subscribe returns a channel of frames. The first frame carries the full
// terrain. Frames are dropped for subscribers that fall behind.
func (e *Engine) Subscribe(ctx context.Context) (<-chan Frame, func()) {
	ch := make(chan Frame, 32)

	select {
	case e.subscribeCh <- subscribeReq{ch: ch}:
	case <-ctx.Done():
		close(ch)
		return ch, func() {}
	}

	unsub := func() {
		select {
		case e.unsubCh <- ch:
		default:
		}
	}
	return ch, unsub
}

func (e *Engine) Run(ctx context.Context) error {
	subs := map[chan Frame]struct{}{}
	last := e.sim.Snapshot()

	publish := func(f Frame) {
		for ch := range subs {
			select {
			case ch <- f:
			default:
				// slow subscriber -> drop frame
			}
		}
	}

	tick := time.NewTicker(time.Duration(float64(time.Second) / e.tickHz))
	defer tick.Stop()

	e.log.Info().Float64("tick_hz", e.tickHz).Msg("engine started")
	defer e.log.Info().Msg("engine stopped")

	for {
		select {
		case <-ctx.Done():
			for ch := range subs {
				close(ch)
			}
			return nil

		case req := <-e.subscribeCh:
			subs[req.ch] = struct{}{}
			first := last
			first.Chunks = e.sim.TerrainSnapshot()
			// Events belong to the tick that produced them.
			first.Events = nil
			req.ch <- first

		case ch := <-e.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case req := <-e.stateReqCh:
			req.reply <- last

		case req := <-e.terrainCh:
			req.reply <- e.sim.TerrainSnapshot()

		case cmd := <-e.cmdCh:
			if err := e.sim.Apply(cmd); err != nil {
				e.log.Warn().Err(err).Str("type", string(cmd.Type())).Msg("command rejected")
			}

		case <-tick.C:
			f := e.sim.Step()
			e.logEvents(f)
			last = f
			publish(f)
			for _, o := range e.observers {
				o.Observe(f)
			}
		}
	}
}

func (e *Engine) logEvents(f Frame) {
	for _, ev := range f.Events {
		switch ev.Type {
		case EventRecentered:
			e.log.Debug().Ints("slots", ev.Slots).Msg("terrain recentered")
		case EventGoalCompleted:
			e.log.Info().Int("count", ev.Count).Msg("goal completed")
		default:
			e.log.Info().
				Str("event", string(ev.Type)).
				Float64("x", ev.Position.X).
				Float64("y", ev.Position.Y).
				Float64("z", ev.Position.Z).
				Msg("sim event")
		}
	}
}
