package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"infinite-flight/internal/config"
	"infinite-flight/internal/metrics"
	"infinite-flight/internal/scenario"
	"infinite-flight/internal/sim"
	"infinite-flight/internal/store"
)

func flyCommand(configPath, scriptPath string, record bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setLevel(cfg.LogLevel())

	script, err := scenario.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	sc, err := scenario.New(script)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := metrics.New(metrics.Meter())
	if err != nil {
		return err
	}
	settings := cfg.SimSettings()
	opts := scenario.Options{
		Settings:  &settings,
		Observers: []sim.Observer{stats},
		Start:     time.Now(),
	}

	var recorded chan error
	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	if record {
		st, err := store.Open(cfg.Store.Path, log.Logger)
		if err != nil {
			return err
		}
		defer st.Close()

		source := "scenario:" + filepath.Base(scriptPath)
		recorder, err := store.NewRecorder(ctx, st, source, opts.Start, log.Logger)
		if err != nil {
			return err
		}
		opts.Observers = append(opts.Observers, recorder)

		recorded = make(chan error, 1)
		go func() { recorded <- recorder.Run(recCtx) }()
	}

	log.Info().
		Str("script", scriptPath).
		Int("ticks", sc.Script().Ticks).
		Msg("flying scenario")

	sum, err := sc.Run(ctx, opts)
	if recorded != nil {
		stopRecorder()
		if rerr := <-recorded; rerr != nil {
			log.Error().Err(rerr).Msg("flight log incomplete")
		}
	}
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
