package cli

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/config"
	"github.com/dmitrijs2005/fieldsync/internal/client/idgen"
	"github.com/dmitrijs2005/fieldsync/internal/client/importer"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
	"github.com/dmitrijs2005/fieldsync/internal/client/storage"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// App holds everything a command needs. It is built once per process and
// shared by the commands of an interactive shell.
type App struct {
	config    *config.Config
	repos     *storage.Repositories
	transport client.Transport
	settings  *settings.Store
	importer  *importer.Importer
	calendars services.CalendarService
	log       logging.Logger

	mu   sync.Mutex
	mode Mode
}

// NewApp opens the local cache and connects the gRPC transport described by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewJSONLogger(os.Stderr, c.SlogLevel())

	repos, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	transport, err := client.NewGRPCClient(c.ServerEndpointAddr,
		client.WithAccessToken(c.AccessToken),
		client.WithPendingStore(repos.Mutations),
		client.WithCallTimeout(c.CallTimeout),
		client.WithLogger(log),
	)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	return newApp(c, repos, transport, log), nil
}

func newApp(c *config.Config, repos *storage.Repositories, transport client.Transport, log logging.Logger, opts ...importer.Option) *App {
	log = logging.OrNop(log)
	st := settings.NewStore(repos.Metadata)
	im := importer.New(transport, repos.Entities, st, append([]importer.Option{importer.WithLogger(log)}, opts...)...)
	cs := services.NewCalendarService(transport, repos.Entities, idgen.NewAllocator(repos.Entities), im, st,
		services.WithLogger(log),
	)
	return &App{
		config:    c,
		repos:     repos,
		transport: transport,
		settings:  st,
		importer:  im,
		calendars: cs,
		log:       log.With("module", "cli"),
	}
}

func (a *App) Close() error {
	return errors.Join(a.transport.Close(), a.repos.Close())
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// setMode reports whether the mode changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	return true
}

// checkOnline probes the server once. Coming back online replays the
// mutations recorded while offline.
func (a *App) checkOnline(ctx context.Context) {
	probe, cancel := context.WithTimeout(ctx, 3*time.Second)
	online := a.transport.Online(probe)
	cancel()

	if !online {
		if a.setMode(ModeOffline) {
			a.log.Info(ctx, "switched to offline mode")
		}
		return
	}
	if !a.setMode(ModeOnline) {
		return
	}
	a.log.Info(ctx, "switched to online mode")

	n, err := a.calendars.ReplayPending(ctx)
	if err != nil {
		a.log.Warn(ctx, "replay of offline mutations incomplete", "replayed", n, "error", err)
		return
	}
	if n > 0 {
		a.log.Info(ctx, "replayed offline mutations", "count", n)
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) status() string {
	if m := a.Mode(); m != "" {
		return "(" + string(m) + ")"
	}
	return ""
}
