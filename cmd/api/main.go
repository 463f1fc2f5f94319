package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/icu-api/internal/app"
	"github.com/jwalitptl/icu-api/internal/config"
	"github.com/jwalitptl/icu-api/internal/repository/postgres"
	"github.com/jwalitptl/icu-api/internal/worker"
	"github.com/jwalitptl/icu-api/pkg/logger"
	"github.com/jwalitptl/icu-api/pkg/metrics"
	"github.com/jwalitptl/icu-api/pkg/security"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "icu-api",
		Short:         "ICU management REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: ./config.yaml when present)")

	serve := serveCmd(&configPath)
	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(seedCmd(&configPath))

	// serve is the default command
	rootCmd.RunE = serve.RunE
	rootCmd.Flags().AddFlagSet(serve.Flags())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetBool("seed")
			return runServer(*configPath, seed)
		},
	}
	cmd.Flags().Bool("seed", false, "Create the admin account and ward beds before serving (always on for the memory driver)")
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs the %s driver, configured driver is %s", config.DriverPostgres, cfg.Database.Driver)
			}

			ctx := cmd.Context()
			db := postgres.NewDB(cfg.Database, metrics.New(cfg.Metrics.Namespace))
			if err := db.Connect(ctx); err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and the ward's beds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return errors.New("seeding the memory driver has no lasting effect; use serve --seed")
			}

			ctx := cmd.Context()
			m := metrics.New(cfg.Metrics.Namespace)
			res, err := openResources(ctx, cfg, m)
			if err != nil {
				return err
			}
			defer res.Close()

			return runSeed(ctx, cfg, res, m)
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadConfigFile(path)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "icu-api",
	})
	return cfg, nil
}

func runSeed(ctx context.Context, cfg *config.Config, res *resources, m *metrics.Metrics) error {
	result, err := app.Seed(ctx, res.store, security.NewBcryptHasher(0), m, cfg.Seed)
	if err != nil {
		return err
	}
	if result.GeneratedPassword != "" {
		log.Warn().
			Str("username", cfg.Seed.AdminUsername).
			Str("password", result.GeneratedPassword).
			Msg("admin account created with a generated password, change it after first login")
	}
	return nil
}

func runServer(configPath string, seed bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Env == config.EnvTest {
		gin.SetMode(gin.TestMode)
	}

	if cfg.JWT.Secret == "" {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		cfg.JWT.Secret = secret
		log.Warn().Msg("jwt.secret is not set, using a random secret; tokens will not survive a restart")
	}

	ctx := context.Background()
	m := metrics.New(cfg.Metrics.Namespace)

	res, err := openResources(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer res.Close()

	if seed || cfg.Database.Driver == config.DriverMemory {
		if err := runSeed(ctx, cfg, res, m); err != nil {
			return err
		}
	}

	engine, err := app.New(app.Dependencies{
		Config:   cfg,
		Store:    res.store,
		Database: res.database,
		Tokens:   res.tokens,
		Metrics:  m,
		Hasher:   security.NewBcryptHasher(0),
	})
	if err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Database.WatchInterval > 0 {
		go worker.NewDatabaseWatchdog(res.database, cfg.Database.WatchInterval, nil).Start(watchCtx)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("env", cfg.Env).
			Str("driver", cfg.Database.Driver).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	log.Info().Msg("shutting down server...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}
