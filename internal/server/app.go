// Package server initializes and runs the accounts server. It opens the
// database, applies migrations, builds the services and serves gRPC and
// Prometheus metrics until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/credentials"
	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server/config"
	"github.com/dmitrijs2005/sampleapp/internal/server/mailer"
	"github.com/dmitrijs2005/sampleapp/internal/server/metrics"
	"github.com/dmitrijs2005/sampleapp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sampleapp/internal/server/services"
	"github.com/dmitrijs2005/sampleapp/internal/server/throttle"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/sampleapp/internal/server/grpc"
)

type App struct {
	config           *config.Config
	logger           logging.Logger
	db               *sql.DB
	limiter          throttle.Limiter
	metrics          *metrics.Metrics
	userService      *services.UserService
	micropostService *services.MicropostService
}

// NewApp connects to PostgreSQL, runs pending migrations and wires the
// services. Redis is used for throttling only when RedisAddr is set.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hasher, err := credentials.NewHasher(c.BcryptCost)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	creds := credentials.NewManager(hasher, credentials.WithResetValidity(c.ResetTokenValidityDuration))

	var limiter throttle.Limiter = throttle.Unlimited{}
	if c.RedisAddr != "" {
		rl, err := throttle.NewRedisLimiter(ctx, c.RedisAddr, c.ThrottleLimit, c.ThrottleWindow, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("throttle init error: %w", err)
		}
		limiter = rl
	}

	m := metrics.New()

	us := services.NewUserService(db, rm, c, services.Deps{
		Credentials: creds,
		Mailer:      mailer.NewLogMailer(c.BaseURL, c.ResetTokenValidityDuration, logger),
		Limiter:     limiter,
		Metrics:     m,
		Logger:      logger,
	})
	ms := services.NewMicropostService(db, rm, c, logger)

	return &App{
		config:           c,
		logger:           logger,
		db:               db,
		limiter:          limiter,
		metrics:          m,
		userService:      us,
		micropostService: ms,
	}, nil
}

// Users exposes the account service to operator tooling.
func (app *App) Users() *services.UserService {
	return app.userService
}

// Close releases the database and the throttle backend.
func (app *App) Close() error {
	return errors.Join(app.limiter.Close(), app.db.Close())
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.micropostService, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())

	srv := &http.Server{
		Addr:              app.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err)
	}
}
