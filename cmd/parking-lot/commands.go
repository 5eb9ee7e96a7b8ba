package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"parking-allocator/internal/config"
	"parking-allocator/internal/logging"
	"parking-allocator/internal/parking"
	"parking-allocator/internal/server"
)

var (
	cfgPath string
	port    string
)

var rootCmd = &cobra.Command{
	Use:          "parking-lot",
	Short:        "Multi-size parking lot allocator",
	Long:         "Allocates small, medium and large slots to vehicles and charges for the stay.\nWithout a subcommand an interactive shell is started.",
	SilenceUsage: true,
	RunE:         runShell,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the parking lot over HTTP",
	RunE:  runServer,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive command shell on stdin",
	RunE:  runShell,
}

var bothCmd = &cobra.Command{
	Use:   "both",
	Short: "Serve HTTP and run the shell against the same lot",
	RunE:  runBoth,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&port, "port", "p", "", "HTTP port, overrides server.port")
	rootCmd.AddCommand(serveCmd, shellCmd, bothCmd)
}

type app struct {
	cfg       *config.Config
	telemetry *parking.TelemetryProvider
	lot       *parking.InstrumentedParkingLot
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Development); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	telemetry, err := parking.NewTelemetryProvider(ctx, parking.TelemetryOptions{
		ServiceName:    cfg.Telemetry.ServiceName,
		Endpoint:       cfg.Telemetry.Endpoint,
		Environment:    cfg.Telemetry.Environment,
		ExportInterval: cfg.Telemetry.ExportInterval(),
		ExportEnabled:  cfg.Telemetry.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	base := parking.NewParkingLot(cfg.Lot.EntryPoints)
	if _, err := parking.RegisterOccupancyCollector(prometheus.DefaultRegisterer, base); err != nil {
		return nil, fmt.Errorf("register occupancy collector: %w", err)
	}

	lot, err := parking.NewInstrumentedParkingLot(base, telemetry)
	if err != nil {
		return nil, fmt.Errorf("create parking lot: %w", err)
	}

	logging.Logger().Info().
		Int("entry_points", cfg.Lot.EntryPoints).
		Bool("telemetry_export", cfg.Telemetry.Enabled).
		Msg("parking lot ready")

	return &app{cfg: cfg, telemetry: telemetry, lot: lot}, nil
}

func (a *app) newServer() *server.Server {
	return server.NewServer(a.lot, server.Options{
		Port:           a.cfg.Server.Port,
		ServiceName:    a.cfg.Telemetry.ServiceName,
		ReadTimeout:    a.cfg.Server.ReadTimeout(),
		WriteTimeout:   a.cfg.Server.WriteTimeout(),
		IdleTimeout:    a.cfg.Server.IdleTimeout(),
		TracerProvider: a.telemetry.TracerProvider(),
	})
}

func (a *app) shutdown() {
	logging.Logger().Info().Msg("shutting down telemetry")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.telemetry.Shutdown(ctx); err != nil {
		logging.Logger().Error().Err(err).Msg("telemetry shutdown")
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	shell := parking.NewShell(a.lot, a.telemetry, cmd.InOrStdin(), cmd.OutOrStdout())
	return shell.Run(ctx)
}

func runServer(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	return a.serve(ctx, a.newServer())
}

func runBoth(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The shell blocks on stdin and cannot be interrupted, so it is not part
	// of the group; leaving it stops the server.
	shell := parking.NewShell(a.lot, a.telemetry, cmd.InOrStdin(), cmd.OutOrStdout())
	go func() {
		defer cancel()
		if err := shell.Run(ctx); err != nil {
			logging.Logger().Error().Err(err).Msg("shell")
		}
		logging.Logger().Info().Msg("shell exited")
	}()

	return a.serve(ctx, a.newServer())
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func (a *app) serve(ctx context.Context, srv *server.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Logger().Info().Str("url", srv.GetAddress()).Msg("serving")
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Logger().Info().Msg("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
