package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/sim"
	"infinite-flight/internal/store"
)

// FlightLog is the read side of the flight store.
type FlightLog interface {
	Flights(ctx context.Context, limit int) ([]store.Flight, error)
	Flight(ctx context.Context, id uuid.UUID) (store.Flight, error)
}

// Options configure the optional parts of the server.
type Options struct {
	// Store may be nil when the flight log is disabled.
	Store  FlightLog
	Logger zerolog.Logger
	// Encoding is the default websocket frame encoding, "cbor" or "json".
	Encoding   string
	InputRate  rate.Limit
	InputBurst int
}

type Server struct {
	eng   *sim.Engine
	store FlightLog
	log   zerolog.Logger
	mux   *http.ServeMux

	encoding   string
	inputRate  rate.Limit
	inputBurst int
}

func NewServer(eng *sim.Engine, opts Options) *Server {
	if opts.Encoding == "" {
		opts.Encoding = encodingCBOR
	}
	if opts.InputRate <= 0 {
		opts.InputRate = 120
	}
	if opts.InputBurst <= 0 {
		opts.InputBurst = 30
	}
	s := &Server{
		eng:        eng,
		store:      opts.Store,
		log:        opts.Logger.With().Str("component", "api").Logger(),
		mux:        http.NewServeMux(),
		encoding:   opts.Encoding,
		inputRate:  opts.InputRate,
		inputBurst: opts.InputBurst,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/state", s.state)
	s.mux.HandleFunc("/terrain", s.terrain)

	s.mux.HandleFunc("/flights", s.flights)
	s.mux.HandleFunc("/flights/{id}", s.flight)

	s.mux.HandleFunc("/command/key", s.keyCmd)
	s.mux.HandleFunc("/command/pick", s.pickCmd)
	s.mux.HandleFunc("/command/goal", s.goalCmd)
	s.mux.HandleFunc("/command/config", s.configCmd)

	s.mux.HandleFunc("/command/view", s.viewCmd)
	s.mux.HandleFunc("/command/resize", s.resizeCmd)

	s.mux.HandleFunc("/stream", s.streamSSE)
	s.mux.HandleFunc("/ws", s.streamWS)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.GetState(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, st)
}

func (s *Server) terrain(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	chunks, err := s.eng.Terrain(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, chunks)
}

func (s *Server) flights(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "flight log disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := s.store.Flights(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list flights")
		http.Error(w, "flight log unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (s *Server) flight(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "flight log disabled", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid flight id", http.StatusBadRequest)
		return
	}

	f, err := s.store.Flight(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("load flight")
		http.Error(w, "flight log unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, f)
}

func (s *Server) keyCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Key     string `json:"key"`
		Pressed bool   `json:"pressed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.accept(w, sim.KeyCommand{At: time.Now(), Key: body.Key, Pressed: body.Pressed})
}

func (s *Server) pickCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Origin    vector.Vec3 `json:"origin"`
		Direction vector.Vec3 `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.accept(w, sim.PickCommand{At: time.Now(), Origin: body.Origin, Direction: body.Direction})
}

func (s *Server) goalCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Position vector.Vec3 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.accept(w, sim.GoalCommand{At: time.Now(), Position: body.Position})
}

func (s *Server) configCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var patch sim.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.accept(w, sim.ConfigCommand{At: time.Now(), Patch: patch})
}

func (s *Server) viewCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.accept(w, sim.ViewCommand{At: time.Now()})
}

func (s *Server) resizeCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.accept(w, sim.ResizeCommand{At: time.Now(), Width: body.Width, Height: body.Height})
}

// accept validates cmd and queues it on the engine.
func (s *Server) accept(w http.ResponseWriter, cmd sim.Command) {
	if err := cmd.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.eng.Submit(cmd) {
		http.Error(w, "engine busy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"status": "accepted", "type": cmd.Type()})
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(f)
			if err != nil {
				s.log.Error().Err(err).Msg("encode frame")
				return
			}
			fmt.Fprintf(w, "event: frame\n")
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
