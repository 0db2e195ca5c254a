// Command kiosk is the ResKiosk session core: it owns the interaction state
// machine for one relief-shelter kiosk and bridges the local engine sidecars
// (STT, TTS, microphone pipe) to the remote answering hub.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/keithruezyl1/ResKiosk--sub000/internal/config"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/control"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/detect"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/health"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/hub"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/journal"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/kiosk"
	"github.com/keithruezyl1/ResKiosk--sub000/internal/observe"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/audio/pipe"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/punct"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/stt/whisperhttp"
	"github.com/keithruezyl1/ResKiosk--sub000/pkg/provider/tts/speechd"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "kiosk: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "kiosk: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Admin.LogLevel)
	slog.SetDefault(logger)

	slog.Info("kiosk starting",
		"config", *configPath,
		"kiosk_id", cfg.Kiosk.ID,
		"center_id", cfg.Kiosk.CenterID,
		"hub", cfg.Hub.BaseURL,
		"language", cfg.Kiosk.Language,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		sc, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(sc); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Engine sidecars ───────────────────────────────────────────────────────
	sttProvider, err := whisperhttp.New(cfg.Providers.STT.BaseURL,
		whisperhttp.WithModel(cfg.Providers.STT.Model))
	if err != nil {
		slog.Error("failed to create stt provider", "err", err)
		return 1
	}
	ttsProvider, err := speechd.New(cfg.Providers.TTS.BaseURL)
	if err != nil {
		slog.Error("failed to create tts provider", "err", err)
		return 1
	}
	micSource, err := pipe.New(cfg.Providers.Mic.Path, cfg.Capture.SampleRate, cfg.Providers.Mic.ChunkMillis)
	if err != nil {
		slog.Error("failed to create mic source", "err", err)
		return 1
	}

	// ── Hub client ────────────────────────────────────────────────────────────
	prefs := config.NewStore(cfg)
	hubClient := hub.NewClient(prefs, time.Duration(cfg.Hub.RequestTimeoutSeconds)*time.Second)
	pinger := hub.NewPinger(hubClient, 0)

	// ── Journal ───────────────────────────────────────────────────────────────
	var journalWriter journal.Writer = journal.Nop{}
	if cfg.Journal.Path != "" {
		journalWriter = journal.NewFileStore(cfg.Journal.Path)
	}

	// ── Orchestrator ──────────────────────────────────────────────────────────
	orch := kiosk.New(kiosk.Deps{
		STT:        sttProvider,
		TTS:        ttsProvider,
		Audio:      micSource,
		Punct:      punct.Noop{},
		Detector:   detect.NewMatcher(),
		Intonation: detect.LexicalAnalyzer{},
		Hub:        hubClient,
		Prefs:      prefs,
		Kiosk:      cfg.Kiosk,
		Capture:    cfg.Capture,
		Journal:    journalWriter,
		Metrics:    observe.DefaultMetrics(),
	})
	defer orch.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := orch.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("orchestrator: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		pinger.Run(gctx)
		return nil
	})
	if cfg.Hub.PushEnabled {
		feed := hub.NewPushFeed(hubClient, orch.HandleStatusEvent)
		g.Go(func() error {
			feed.Run(gctx)
			return nil
		})
	}

	// ── Control API (UI frontend) ─────────────────────────────────────────────
	if cfg.Control.ListenAddr != "" {
		controlMux := http.NewServeMux()
		control.New(orch, logger).Register(controlMux)
		g.Go(serveHTTP(gctx, "control", cfg.Control.ListenAddr, controlMux))
	}

	// ── Admin endpoint ────────────────────────────────────────────────────────
	if cfg.Admin.ListenAddr != "" {
		adminMux := http.NewServeMux()
		health.New(health.Checker{
			Name: "hub",
			Check: func(ctx context.Context) error {
				if !pinger.Healthy() {
					return fmt.Errorf("hub unreachable (%d consecutive ping failures)", pinger.ConsecutiveFailures())
				}
				return nil
			},
		}).Register(adminMux)
		adminMux.Handle("GET /metrics", promhttp.Handler())
		g.Go(serveHTTP(gctx, "admin", cfg.Admin.ListenAddr, adminMux))
	}

	slog.Info("kiosk ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// serveHTTP returns an errgroup task that serves mux on addr and shuts the
// server down gracefully when ctx is cancelled.
func serveHTTP(ctx context.Context, name, addr string, mux *http.ServeMux) func() error {
	return func() error {
		srv := &http.Server{Addr: addr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			slog.Info(name+" endpoint listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			sc, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sc); err != nil {
				slog.Warn(name+" server shutdown error", "err", err)
			}
			return nil
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", name, err)
			}
			return nil
		}
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
