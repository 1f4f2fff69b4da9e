package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"infinite-flight/internal/api"
	"infinite-flight/internal/config"
	"infinite-flight/internal/metrics"
	"infinite-flight/internal/sim"
	"infinite-flight/internal/store"
)

func serveCommand(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	setLevel(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := sim.New(cfg.SimSettings(), sim.SystemClock{}, rand.New(rand.NewPCG(seed, seed)))

	stats, err := metrics.New(metrics.Meter())
	if err != nil {
		return err
	}
	observers := []sim.Observer{stats}

	opts := api.Options{
		Logger:     log.Logger,
		Encoding:   cfg.Stream.Encoding,
		InputRate:  rate.Limit(cfg.Stream.InputRate),
		InputBurst: cfg.Stream.InputBurst,
	}

	var recorder *store.Recorder
	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path, log.Logger)
		if err != nil {
			return err
		}
		defer st.Close()

		recorder, err = store.NewRecorder(ctx, st, "server", time.Now(), log.Logger)
		if err != nil {
			return err
		}
		observers = append(observers, recorder)
		opts.Store = st
	}

	eng := sim.NewEngine(sim.Config{
		TickHz:    cfg.Sim.TickHz,
		Sim:       s,
		Logger:    log.Logger,
		Observers: observers,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewServer(eng, opts).Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := eng.Run(gctx); err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		return nil
	})

	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
