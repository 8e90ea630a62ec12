package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/artifact"
	"inferd/internal/config"
	"inferd/internal/engine"
	"inferd/internal/gpu"
	"inferd/internal/httpapi"
	"inferd/internal/manager"
	"inferd/internal/vram"
	"inferd/pkg/types"
)

func main() {
	// Flags with environment variable defaults. A config file carries the
	// rest; whatever a flag names wins over the file.
	addr := flag.String("addr", envOr("INFERD_ADDR", ""), "HTTP listen address, e.g. :8000 (overrides config)")
	cfgPath := flag.String("config", envOr("INFERD_CONFIG", ""), "Path to a .yaml/.json/.toml config file")
	cacheDir := flag.String("cache-dir", envOr("INFERD_CACHE_DIR", ""), "Model cache directory (overrides config)")
	fetchBase := flag.String("fetch-base-url", envOr("INFERD_FETCH_BASE_URL", ""), "Artifact source root (overrides config)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins (overrides config)")
	logLevel := flag.String("log-level", envOr("INFERD_LOG_LEVEL", ""), "Log level: trace, debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "Emit JSON logs instead of console output")
	execTimeout := flag.Int64("execute-timeout", envInt64("INFERD_EXECUTE_TIMEOUT", 0), "Execute deadline in seconds (0 = none)")
	maxBodyMB := flag.Int64("max-body-mb", 0, "Request body cap in MiB (0 = built-in default)")
	flag.Parse()

	log := newLogger("info", *logJSON)

	var cfg config.Config
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *cfgPath).Msg("load config")
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *cacheDir != "" {
		cfg.ModelCacheDir = *cacheDir
	}
	if *fetchBase != "" {
		cfg.FetchBaseURL = *fetchBase
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *corsOrigins != "" {
		cfg.CORSOrigins = splitCSV(*corsOrigins)
	}

	cfg, err := config.Normalize(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("normalize config")
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	log = newLogger(cfg.LogLevel, *logJSON)

	device := gpu.Null{DeviceName: cfg.Device}
	fetcher := &artifact.HTTPFetcher{
		BaseURL: cfg.FetchBaseURL,
		Token:   cfg.FetchToken,
		Retries: cfg.FetchRetries,
	}
	cache, err := artifact.NewCache(cfg.ModelCacheDir, fetcher, cfg.FetchWorkers, log)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ModelCacheDir).Msg("open model cache")
	}
	tracker := vram.New(device, cfg.VRAMFallbackMB, cfg.VRAMThreshold, log)

	estimates := make(map[types.TaskType]float64, len(cfg.EstimateMB))
	for name, mb := range cfg.EstimateMB {
		task, ok := types.ParseTaskType(name)
		if !ok {
			log.Warn().Str("task", name).Msg("ignoring estimate for unknown task kind")
			continue
		}
		estimates[task] = mb
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Cache:             cache,
		Tracker:           tracker,
		Device:            device,
		DefaultEstimateMB: cfg.DefaultEstimateMB,
		EstimateMB:        estimates,
		Engine:            engine.Options{Device: cfg.Device},
		Publisher:         httpapi.NewEventsCollector(),
		Logger:            log,
	})

	baseCtx, stopServing := context.WithCancel(context.Background())
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(true, cfg.CORSOrigins,
		[]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		[]string{"Accept", "Content-Type", "X-Log-Level"})
	if *execTimeout > 0 {
		httpapi.SetExecuteTimeoutSeconds(*execTimeout)
	}
	if *maxBodyMB > 0 {
		httpapi.SetMaxBodyBytes(*maxBodyMB << 20)
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr)}

	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("cache_dir", cfg.ModelCacheDir).
			Str("device", device.Name()).
			Float64("vram_budget_mb", tracker.EffectiveLimitMB()).
			Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM): stop accepting, let in-flight
	// requests drain, then release every loaded model.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	stopServing()
	if n := mgr.PurgeAll(); n > 0 {
		log.Info().Int("models", n).Msg("released loaded models")
	}
}

// newLogger builds the process logger. Console output is the default;
// -log-json switches to raw JSON for log collectors.
func newLogger(level string, jsonOut bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if !jsonOut {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// splitCSV splits a comma separated flag value, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
