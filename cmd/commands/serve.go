package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/config"
	"github.com/arbor-sdk/arbor/internal/events"
	"github.com/arbor-sdk/arbor/internal/gateway"
	"github.com/arbor-sdk/arbor/internal/heartbeat"
	"github.com/arbor-sdk/arbor/internal/schedule"
	"github.com/arbor-sdk/arbor/internal/storage"
	"github.com/arbor-sdk/arbor/internal/subagent"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand returns the serve subcommand: it runs the gateway, an
// in-process subagent core, and the cron/interval/event schedule against
// a single shared registry.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the gateway, subagent core, and scheduler in-process",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Host to listen on"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := config.LoadDotenv(filepath.Join(config.HomePath(), ".env")); err != nil {
				slog.Warn("failed to load .env", "error", err)
			}

			cfgPath := cmd.String("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				slog.Warn("using default config", "path", cfgPath, "error", err)
				cfg = &config.Config{}
				applyConfigDefaults(cfg)
			}

			logLevel := resolveLogLevel(cfg.Events.LogLevel)
			if cmd.Bool("debug") {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

			if cmd.IsSet("host") {
				cfg.Gateway.Host = cmd.String("host")
			}
			if cmd.IsSet("port") {
				cfg.Gateway.Port = cmd.Int("port")
			}

			bus := events.NewBus(cfg.Events.BufferSize)
			defer bus.Close()

			logDir := filepath.Join(config.HomePath(), "logs")
			logger := storage.NewEventLogger(logDir, bus)
			defer logger.Close()

			core := subagent.NewCore(cfg.Subagent.ToLimits(), subagent.Hooks{}, slog.Default())
			core.Start()
			defer core.Stop()
			core.AttachEventsBus(bus)

			scheduleStore := schedule.NewStore(filepath.Join(config.HomePath(), "schedule"))
			dispatchTool := subagent.NewDispatchTool(core.Registry, identityTaskFn)
			sched := schedule.New(schedule.Config{
				Dispatcher: dispatchTool,
				Bus:        bus,
				NewFn:      func(tmpl *schedule.DispatchTemplate) subagent.TaskFunc { return identityTaskFn(tmpl.Prompt, tmpl.Instructions, tmpl.Metadata) },
				Store:      scheduleStore,
			})
			sched.Start()
			defer sched.Stop()

			hb := heartbeat.NewWriter(filepath.Join(config.HomePath(), "heartbeat.json"))
			hb.Start()
			defer hb.Stop()

			srv := gateway.NewServer(core, bus, cfg.Gateway.Host, cfg.Gateway.Port, identityTaskFn)

			runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
			defer cancel()

			go func() {
				<-runCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			return srv.Start()
		},
	}
}

func resolveLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyConfigDefaults(cfg *config.Config) {
	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.Port = 18420
	cfg.Events.BufferSize = 1024
	cfg.Subagent = config.SubagentConfig{
		MaxDepth:               5,
		MaxConcurrentPerParent: 10,
		MaxQueueSize:           1000,
		GCTTLMs:                60_000,
		GCIntervalMs:           30_000,
		WorkerPoolSize:         8,
		MaxBubblesPerSecond:    100,
		MaxListenersPerEvent:   100,
	}
}
