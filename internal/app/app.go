// Package app wires configuration, storage and services into the
// subcommands of the tasktide binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yukikurage/tasktide/internal/auth"
	"github.com/yukikurage/tasktide/internal/config"
	"github.com/yukikurage/tasktide/internal/database"
	"github.com/yukikurage/tasktide/internal/handlers"
	"github.com/yukikurage/tasktide/internal/logger"
	"github.com/yukikurage/tasktide/internal/metrics"
	"github.com/yukikurage/tasktide/internal/repository"
	"github.com/yukikurage/tasktide/internal/rpc"
	"github.com/yukikurage/tasktide/internal/security"
	"github.com/yukikurage/tasktide/internal/services"
	"gorm.io/gorm"
)

// App holds the opened stores and the services built on them.
type App struct {
	cfg *config.Config

	taskDB *gorm.DB
	authDB *gorm.DB

	registry *prometheus.Registry

	Auth    *services.AuthService
	Tasks   *services.TaskService
	Lookups *services.LookupService
	Router  *gin.Engine
}

// New opens and migrates both stores and wires the services.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	for _, path := range []string{cfg.TaskDBPath, cfg.AuthDBPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	opts := database.Options{Key: cfg.DatabaseKey, SQLLog: cfg.SQLLog}

	taskDB, err := database.Open(cfg.TaskDBPath, opts)
	if err != nil {
		return nil, err
	}
	authDB, err := database.Open(cfg.AuthDBPath, opts)
	if err != nil {
		database.Close(taskDB)
		return nil, err
	}

	a := &App{cfg: cfg, taskDB: taskDB, authDB: authDB}

	if err := database.Migrate(taskDB, database.SchemaTasks); err != nil {
		a.closeStores()
		return nil, err
	}
	if err := database.Migrate(authDB, database.SchemaAuth); err != nil {
		a.closeStores()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	collector := metrics.NewCollector(a.registry)

	hasher := auth.NewPasswordHasher(cfg.Pepper)
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)

	a.Auth = services.NewAuthService(repository.NewUserRepository(authDB), hasher, tokens,
		services.WithLoginLimiter(services.NewLoginLimiter(cfg.LoginRateInterval, cfg.LoginRateBurst)),
		services.WithMetrics(collector),
	)
	a.Tasks = services.NewTaskService(
		repository.NewTaskRepository(taskDB),
		repository.NewMilestoneRepository(taskDB),
		security.NewSanitizer(),
	)
	a.Lookups = services.NewLookupService(repository.NewLookupRepository(taskDB))

	a.Router = handlers.NewRouter(handlers.Dependencies{
		AuthService:   a.Auth,
		TaskService:   a.Tasks,
		LookupService: a.Lookups,
		Logger:        log,
		Metrics:       collector,
	})

	return a, nil
}

// ServeStdio answers shell calls, one JSON line in and one out, until r is
// exhausted or ctx is cancelled.
func (a *App) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	slog.Info("serving calls on stdio")
	return rpc.NewBridge(a.Router).Serve(ctx, r, w)
}

// MigrationVersions reports the applied schema version of each store.
func (a *App) MigrationVersions() (map[database.Schema]uint, error) {
	versions := make(map[database.Schema]uint, 2)
	for schema, db := range map[database.Schema]*gorm.DB{
		database.SchemaTasks: a.taskDB,
		database.SchemaAuth:  a.authDB,
	} {
		version, dirty, err := database.Version(db, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s version: %w", schema, err)
		}
		if dirty {
			return nil, fmt.Errorf("%s schema is dirty at version %d", schema, version)
		}
		versions[schema] = version
	}
	return versions, nil
}

// Close writes the metrics textfile, when configured, and closes both stores.
func (a *App) Close() error {
	var errs []error
	if a.cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsTextfile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	errs = append(errs, a.closeStores())
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	return errors.Join(database.Close(a.taskDB), database.Close(a.authDB))
}

// Init loads the configuration and installs the JSON logger on stderr.
func Init(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.SetupDefault(stderr, cfg.LogLevel)

	// stdout carries responses; nothing from gin may land there.
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = stderr
	gin.DefaultErrorWriter = stderr

	return cfg, log, nil
}
