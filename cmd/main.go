package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/orionsurvey/cutouts/config"
	"github.com/orionsurvey/cutouts/internal/api/v1/handlers"
	"github.com/orionsurvey/cutouts/internal/app"
	"github.com/orionsurvey/cutouts/internal/constants"
	"github.com/orionsurvey/cutouts/internal/cutout"
	"github.com/orionsurvey/cutouts/internal/db"
	"github.com/orionsurvey/cutouts/internal/db/repos"
	"github.com/orionsurvey/cutouts/internal/logger"
	"github.com/orionsurvey/cutouts/internal/objstore"
	"github.com/orionsurvey/cutouts/internal/queue"
	"github.com/orionsurvey/cutouts/internal/services"
)

const shutdownTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "cutouts",
	Short: "Cutouts - an asynchronous astronomical image cutout service",
	Long: `Cutouts runs image cutout requests as asynchronous jobs: the API
accepts and tracks jobs, workers execute them against the compute
backend, and the reaper enforces destruction times and execution
duration limits.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// A .env file is optional; real deployments set the
		// environment directly.
		_ = godotenv.Load()
		logger.Initialize()
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the job API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		database, err := openDatabase(false)
		if err != nil {
			return err
		}
		q, err := openQueue(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = q.Close() }()
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}

		repo := repos.NewJobRepository(database)
		jobService := services.NewJobService(repo, store)
		dispatcher := services.NewDispatcher(repo, q)
		locator := services.NewLocator(store, services.DefaultURLLifetime)
		jobHandler := handlers.NewJobHandler(jobService, dispatcher, locator)

		fiberApp := app.NewApp(jobHandler)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			logger.Info("shutting down API server")
			if err := fiberApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
				logger.Errorf("server shutdown: %v", err)
			}
		}()

		addr := config.GetEnv(constants.EnvListenAddr, ":8080")
		logger.Infof("API server listening on %s", addr)
		return fiberApp.Listen(addr)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a cutout worker process",
	RunE: func(cmd *cobra.Command, _ []string) error {
		database, err := openDatabase(false)
		if err != nil {
			return err
		}
		q, err := openQueue(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = q.Close() }()
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		reporter, err := openReporter()
		if err != nil {
			return err
		}

		repoURL := os.Getenv(constants.EnvDataRepositoryURL)
		if repoURL == "" {
			return fmt.Errorf("%s is required", constants.EnvDataRepositoryURL)
		}
		computeURL := os.Getenv(constants.EnvComputeURL)
		if computeURL == "" {
			return fmt.Errorf("%s is required", constants.EnvComputeURL)
		}

		tasks, err := strconv.Atoi(config.GetEnv(constants.EnvWorkerTasks, "1"))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", constants.EnvWorkerTasks, err)
		}

		executor := services.NewExecutor(
			repos.NewJobRepository(database),
			q,
			cutout.NewHTTPResolver(repoURL),
			cutout.NewHTTPBackend(computeURL),
			store,
			reporter,
			services.ExecutorOptions{Tasks: tasks},
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		executor.Run(ctx)
		return nil
	},
}

var reaperCmd = &cobra.Command{
	Use:   "reaper",
	Short: "Run the job reaper process",
	Long: `The reaper periodically deletes jobs whose destruction time has
passed, along with their stored results, and aborts executions that
have exceeded their execution duration.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		database, err := openDatabase(false)
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}

		reaper := services.NewReaper(repos.NewJobRepository(database), store, services.DefaultReapInterval)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		reaper.Run(ctx)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		database, err := openDatabase(true)
		if err != nil {
			return err
		}
		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Infof("schema migrated to version %d", db.SchemaVersion)
		return nil
	},
}

func openDatabase(skipSchemaCheck bool) (*gorm.DB, error) {
	port, err := strconv.Atoi(config.GetEnv(constants.EnvDBPort, "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", constants.EnvDBPort, err)
	}
	return db.New(db.Options{
		Host:            os.Getenv(constants.EnvDBHost),
		User:            os.Getenv(constants.EnvDBUser),
		Password:        os.Getenv(constants.EnvDBPassword),
		DBName:          os.Getenv(constants.EnvDBName),
		Port:            port,
		SkipSchemaCheck: skipSchemaCheck,
	})
}

func openQueue(ctx context.Context) (queue.Queue, error) {
	return queue.NewRedisQueue(ctx, queue.RedisOptions{
		Addr:     config.GetEnv(constants.EnvRedisAddr, "localhost:6379"),
		Password: os.Getenv(constants.EnvRedisPassword),
	})
}

func openStore(ctx context.Context) (objstore.Store, error) {
	return objstore.NewS3Store(ctx, objstore.S3Options{
		AccessKeyID:     os.Getenv(constants.EnvStorageAccessKey),
		SecretAccessKey: os.Getenv(constants.EnvStorageSecretKey),
		Region:          config.GetEnv(constants.EnvStorageRegion, "us-east-1"),
		Bucket:          os.Getenv(constants.EnvStorageBucket),
		Endpoint:        os.Getenv(constants.EnvStorageEndpoint),
	})
}

func openReporter() (services.Reporter, error) {
	dsn := os.Getenv(constants.EnvSentryDSN)
	if dsn == "" {
		logger.Warn("no error reporting DSN configured, unknown failures will only be logged")
		return &services.NopReporter{}, nil
	}
	return services.NewSentryReporter(dsn, config.GetEnv("ENVIRONMENT", "production"))
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(reaperCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
