// Package server wires the repositories, services and gRPC transport of the
// fieldsync server and runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/dmitrijs2005/fieldsync/internal/server/config"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/server/services"

	gs "github.com/dmitrijs2005/fieldsync/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     repomanager.RepositoryManager
	calendars *services.CalendarService
}

// NewApp opens the repositories, loads the seed file and builds the
// calendar service described by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSONLogger(os.Stdout, c.SlogLevel()))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repos, err := openRepositories(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	opts := []services.Option{services.WithLogger(logger)}
	if c.S3Bucket != "" {
		opts = append(opts, services.WithUploadSigner(services.NewS3Presigner(c)))
	} else {
		logger.Warn(ctx, "no S3 bucket configured, images will not get upload URLs")
	}
	cs := services.NewCalendarService(repos, opts...)

	if c.SeedFile != "" {
		seed, err := services.ReadSeedFile(c.SeedFile)
		if err == nil {
			err = cs.Seed(ctx, seed)
		}
		if err != nil {
			_ = repos.Close()
			return nil, err
		}
	}

	return &App{config: c, logger: logger, repos: repos, calendars: cs}, nil
}

func openRepositories(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, data is kept in memory")
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	return repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
}

// IssueToken writes an access token for operator to w.
func IssueToken(c *config.Config, operator string, w io.Writer) error {
	if operator == "" {
		return errors.New("operator is required")
	}
	tok, err := auth.GenerateToken(operator, []byte(c.SecretKey), c.AccessTokenValidityDuration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.calendars, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = app.startGRPCServer(ctx, cancelFunc)
	}()
	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return runErr
}
