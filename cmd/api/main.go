package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"uno-server/internal/config"
	"uno-server/internal/database"
	"uno-server/internal/server"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const releaseVersion = "0.1.0"

func gracefulShutdown(ctx context.Context, cfg config.Config, gameServer *server.Server, httpServer *http.Server, done chan<- struct{}) {
	<-ctx.Done()

	klog.Info("Shutdown signal received, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		klog.Errorf("Error during game shutdown: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		klog.Errorf("HTTP server forced to shutdown with error: %v", err)
	}

	close(done)
}

func run(ctx context.Context, cfg config.Config) error {
	db := database.Disabled()
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
	} else {
		klog.Info("No database configured, feedback storage disabled")
	}

	gameServer, httpServer := server.NewServer(cfg, db)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		gracefulShutdown(ctx, cfg, gameServer, httpServer, done)
		stop()
	}()

	klog.Infof("Listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	klog.Info("Graceful shutdown complete.")
	return nil
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "uno-server",
		Short:         "Authoritative server for multiplayer UNO rooms.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.Flags().AddGoFlagSet(klogFlags)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("uno-server v{{.Version}}\n")

	return cmd
}

func main() {
	err := newCmd().Execute()
	klog.Flush()
	cobra.CheckErr(err)
}
