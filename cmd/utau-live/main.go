package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-utau/internal/bus"
	"github.com/cwbudde/algo-utau/internal/config"
	"github.com/cwbudde/algo-utau/internal/telemetry"
	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/preset"
	"github.com/cwbudde/algo-utau/synth"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	voicebankDir := flag.String("voicebank", "", "Voicebank directory override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *voicebankDir != "" {
		cfg.Synth.Voicebank = *voicebankDir
	}
	logger := config.NewLogger(cfg.Telemetry.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("utau-live stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params, err := buildParams(cfg.Synth)
	if err != nil {
		return err
	}
	engine := synth.NewEngine(cfg.Audio.SampleRate, params,
		synth.WithLogger(logger),
		synth.WithControlCapacity(cfg.Audio.ControlCapacity))
	notes := newNoteQueue(cfg.Audio.EventCapacity)

	metrics, err := telemetry.Setup(engine, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()
	if h := metrics.Handler(); h != nil && cfg.Telemetry.PrometheusBind != "" {
		srv := serveMetrics(cfg.Telemetry.PrometheusBind, h, logger)
		defer srv.Close()
	}

	if cfg.Bus.Enabled {
		d := bus.NewDispatcher(cfg.Bus.Subject, engine.Controller(), notes.push, logger)
		client, err := bus.Connect(ctx, cfg.Bus, d, logger)
		if err != nil {
			return err
		}
		defer client.Close()
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.Audio.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("audio device: %w", err)
	}
	<-ready
	player := otoCtx.NewPlayer(newStream(engine, notes, cfg.Audio.BlockSize))
	player.Play()
	logger.Info("audio started",
		"sample_rate", cfg.Audio.SampleRate,
		"block_size", cfg.Audio.BlockSize,
		"voicebank", params.Voicebank)

	done := make(chan error, 1)
	go func() {
		c := &console{ctx: ctx, engine: engine, notes: notes, out: os.Stdout}
		fmt.Fprintln(os.Stdout, "type help for commands")
		done <- c.run(os.Stdin)
	}()

	select {
	case <-ctx.Done():
	case err = <-done:
	}
	player.Pause()
	if err := otoCtx.Err(); err != nil {
		logger.Warn("audio device error", "error", err)
	}
	logger.Info("shutting down", "notes_dropped_full_queue", notes.dropped.Load())
	return err
}

// buildParams starts from the preset, if any, and applies the config's
// synth section on top.
func buildParams(sc config.SynthConfig) (*synth.Params, error) {
	params := synth.NewDefaultParams()
	if sc.Preset != "" {
		p, err := preset.LoadJSON(sc.Preset)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", sc.Preset, err)
		}
		params = p
	}
	if sc.Voicebank != "" {
		params.Voicebank = sc.Voicebank
	}
	if sc.LyricFile != "" {
		params.LyricFile = sc.LyricFile
	}
	if sc.LyricSource != "" {
		s, err := lyric.ParseSource(sc.LyricSource)
		if err != nil {
			return nil, err
		}
		params.LyricSource = s
	}
	return params, nil
}

func serveMetrics(addr string, h http.Handler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
	return srv
}
