package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/syncboard/syncboard/internal/config"
	"github.com/syncboard/syncboard/internal/events"
	"github.com/syncboard/syncboard/internal/gateway"
	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/store"
	"github.com/syncboard/syncboard/internal/tracker"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the syncboard gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Store driver (memory or sqlite)",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = config.Default()
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}
	if cmd.IsSet("store") {
		cfg.Store.Driver = cmd.String("store")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	auth := identity.NewService(st)

	if ttl := cfg.Identity.SessionTTL.Duration(); ttl > 0 {
		janitor, err := identity.NewJanitor(auth, cfg.Identity.SweepCron, ttl)
		if err != nil {
			return fmt.Errorf("init session janitor: %w", err)
		}
		janitor.Start()
		defer janitor.Stop()
	}

	tr := tracker.New(st, bus)
	server := gateway.NewServer(bus, tr, auth, cfg.Gateway.Host, cfg.Gateway.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "syncboard.db"
		}
		return store.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
