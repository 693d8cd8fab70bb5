// Command chat-replay is the archive API server and optional chat recorder.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs migrations.
//   - Records a Twitch channel's chat when TWITCH_CHANNEL is set.
//   - Serves archives, transcripts, and replay streams over HTTP, with /healthz, /readyz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/chat"
	"github.com/onnwee/chat-replay/config"
	"github.com/onnwee/chat-replay/db"
	"github.com/onnwee/chat-replay/server"
	"github.com/onnwee/chat-replay/telemetry"
	"github.com/onnwee/chat-replay/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("chat-replay", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first; the embedded DDL covers databases that
	// cannot run them.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}
	store := db.NewStore(database)

	deps := server.Deps{
		Checks: []server.Check{{Name: "database", Fn: store.Ping}},
	}
	opts := []archive.Option{archive.WithBuffers(cfg.BeforeBuffer, cfg.AfterBuffer)}

	if cfg.RedisURL != "" {
		cache, err := archive.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			// The cache is an optimization; serve from Postgres without it.
			slog.Warn("redis unavailable, transcript cache disabled", slog.Any("err", err))
		} else {
			defer func() {
				if err := cache.Close(); err != nil {
					slog.Error("failed to close redis", slog.Any("err", err))
				}
			}()
			opts = append(opts, archive.WithCache(cache))
			deps.Redis = cache.Client()
			deps.Checks = append(deps.Checks, server.Check{Name: "redis", Fn: cache.Ping})
			slog.Info("transcript cache enabled", slog.Duration("ttl", cfg.CacheTTL))
		}
	}

	if err := cfg.ValidateImportReady(); err == nil {
		opts = append(opts, archive.WithVideoSource(&twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}))
		slog.Info("twitch archive import enabled")
	} else {
		slog.Info("twitch archive import disabled", slog.Any("reason", err))
	}

	deps.Archives = archive.NewService(store, opts...)

	if err := cfg.ValidateChatReady(); err == nil {
		rec := chat.NewRecorder(chat.Config{
			Channel:  cfg.TwitchChannel,
			Username: cfg.TwitchBotUsername,
			OAuth:    cfg.TwitchOAuthToken,
		}, store)
		go func() {
			if err := rec.Run(ctx); err != nil {
				slog.Error("chat recorder exited with error", slog.Any("err", err))
			}
		}()
	} else {
		slog.Info("chat recorder disabled", slog.Any("reason", err))
	}

	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
			stop()
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}

// setupLogging configures the default logger from LOG_LEVEL and LOG_FORMAT.
// Defaults: level=info, format=text.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
		format = "text"
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}
