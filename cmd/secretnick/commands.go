package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/secret-nick/internal/config"
	"github.com/example/secret-nick/internal/logging"
)

func newRootCommand() *cobra.Command {
	v := config.New()
	var configFile string

	root := &cobra.Command{
		Use:           "secretnick",
		Short:         "Secret Nick gift exchange API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				v.SetConfigFile(configFile)
			}
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newServeCommand(v), newMigrateCommand(v))
	return root
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(v, cmd, map[string]string{
				"http.port":      "port",
				"storage.driver": "storage",
				"sqlite.dsn":     "dsn",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().Int("port", 0, "HTTP port")
	cmd.Flags().String("storage", "", "storage driver: sqlite or memory")
	cmd.Flags().String("dsn", "", "SQLite data source name")
	return cmd
}

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(v, cmd, map[string]string{"sqlite.dsn": "dsn"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg, logger, statusOnly, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "print applied and pending migrations without applying them")
	cmd.Flags().String("dsn", "", "SQLite data source name")
	return cmd
}

// bindFlags binds the flags of the command being run. Commands share keys such
// as sqlite.dsn, so binding happens only once the command is known.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig resolves configuration and the process logger. Configuration
// errors are logged with a bootstrap logger before they are returned.
func loadConfig(v *viper.Viper, stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		slog.New(slog.NewJSONHandler(stderr, nil)).Error("failed to load configuration", "error", err)
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		logger.Error("failed to initialise application", "error", err)
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("secret nick API listening", "addr", server.Addr, "storage", cfg.Storage.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

func migrate(ctx context.Context, cfg config.Config, logger *slog.Logger, statusOnly bool, out io.Writer) error {
	if cfg.Storage.Driver != config.DriverSQLite {
		return fmt.Errorf("migrate requires the %s storage driver, got %q", config.DriverSQLite, cfg.Storage.Driver)
	}
	store, err := openSQLite(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if !statusOnly {
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			return err
		}
	}

	status, err := store.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "current version: %s\n", status.CurrentVersion)
	for _, applied := range status.AppliedMigrations {
		fmt.Fprintf(out, "applied  %s  %s\n", applied.Version, applied.AppliedAt.Format(time.RFC3339))
	}
	for _, pending := range status.PendingMigrations {
		fmt.Fprintf(out, "pending  %s  %s\n", pending.Version, pending.Description)
	}
	return nil
}
