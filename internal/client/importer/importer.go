// Package importer fills the local store with what a user needs to work
// offline: the program, its reference data, the vessels and the calendars
// already recorded for them.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
)

const defaultMaxRetries = 3

// Progress is one update of a running import. The last update has Done set.
type Progress struct {
	Fraction float64
	Done     bool
	Err      error
	Warnings []string
}

type Options struct {
	// SkipHistorical stops after the reference data.
	SkipHistorical bool
	// MaxRetries bounds the retries of each step. Zero means the default.
	MaxRetries uint64
}

type Importer struct {
	transport client.Transport
	store     entities.Repository
	settings  *settings.Store
	log       logging.Logger

	now        func() time.Time
	newBackOff func() backoff.BackOff

	mu      sync.Mutex
	current *job

	historical singleflight.Group
}

type Option func(*Importer)

func WithLogger(l logging.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// WithBackOff replaces the exponential back-off used between retries.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(im *Importer) { im.newBackOff = f }
}

func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

func New(transport client.Transport, store entities.Repository, st *settings.Store, opts ...Option) *Importer {
	im := &Importer{
		transport: transport,
		store:     store,
		settings:  st,
		now:       time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(im)
	}
	im.log = logging.OrNop(im.log).With("module", "importer")
	return im
}

// Execute starts an import and streams its progress. When an import is
// already running the caller joins it and receives its progress instead.
// The channel is closed after the Done update.
func (im *Importer) Execute(ctx context.Context, filter models.OfflineFilter, opts Options) <-chan Progress {
	im.mu.Lock()
	defer im.mu.Unlock()

	if im.current != nil {
		im.log.Info(ctx, "import already running, joining it")
		return im.current.subscribe()
	}

	j := newJob()
	im.current = j
	ch := j.subscribe()

	go func() {
		warnings, err := im.run(ctx, j, filter, opts)

		im.mu.Lock()
		im.current = nil
		im.mu.Unlock()

		j.finish(Progress{Fraction: 1, Done: true, Err: err, Warnings: warnings})
	}()
	return ch
}

// Run is the blocking form of Execute. It returns the last update.
func (im *Importer) Run(ctx context.Context, filter models.OfflineFilter, opts Options) Progress {
	var last Progress
	for p := range im.Execute(ctx, filter, opts) {
		last = p
	}
	return last
}

// step weights, summing to 1
const (
	weightProgram      = 0.05
	weightReferentials = 0.5
	weightVessels      = 0.1
	weightStoreProgram = 0.05
	weightHistorical   = 0.3
)

func (im *Importer) run(ctx context.Context, j *job, filter models.OfflineFilter, opts Options) ([]string, error) {
	var warnings []string
	warn := func(msg string) {
		im.log.Warn(ctx, msg)
		warnings = append(warnings, msg)
		j.warn(msg)
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	offset := 0.0
	report := func(weight, progression float64) {
		j.publish(offset + weight*clamp(progression))
	}
	next := func(weight float64) {
		offset += weight
		j.publish(offset)
	}

	im.log.Info(ctx, "offline import started", "program", filter.ProgramLabel, "vessels", filter.AllVesselIDs())

	var program *models.Program
	var entityNames []string
	err := im.retry(ctx, "program", maxRetries, func() error {
		var err error
		var msg string
		program, entityNames, msg, err = im.resolveProgram(ctx, filter.ProgramLabel)
		if err == nil && msg != "" {
			warn(msg)
		}
		return err
	})
	if err != nil {
		return warnings, err
	}
	next(weightProgram)

	levels := []string{models.AcquisitionLevelActivityCalendar}
	if program != nil && len(program.AcquisitionLevels) > 0 {
		levels = program.AcquisitionLevels
	}
	for i, name := range entityNames {
		err := im.retry(ctx, "referentials "+name, maxRetries, func() error {
			return im.importReferentials(ctx, name, levels)
		})
		if err != nil {
			return warnings, err
		}
		report(weightReferentials, float64(i+1)/float64(len(entityNames)))
	}
	next(weightReferentials)

	if err := im.retry(ctx, "vessels", maxRetries, func() error {
		return im.importVessels(ctx, filter.AllVesselIDs())
	}); err != nil {
		return warnings, err
	}
	next(weightVessels)

	if program != nil {
		if err := im.saveProgram(ctx, program); err != nil {
			return warnings, err
		}
		filter.ProgramLabel = program.Label
	}
	next(weightStoreProgram)

	switch {
	case opts.SkipHistorical:
	case filter.ProgramLabel == "":
		warn("no program resolved, historical calendars not imported")
	default:
		cf, err := filter.Resolve(im.now())
		if err != nil {
			return warnings, err
		}
		if err := im.retry(ctx, "historical", maxRetries, func() error {
			_, err := im.ImportHistorical(ctx, cf)
			return err
		}); err != nil {
			return warnings, err
		}
	}
	next(weightHistorical)

	if err := im.settings.SaveOfflineFilter(ctx, settings.FeatureActivityCalendar, filter); err != nil {
		return warnings, err
	}
	for _, feature := range []string{settings.FeatureActivityCalendar, settings.FeatureVessel} {
		if err := im.settings.MarkFeatureSynced(ctx, feature); err != nil {
			return warnings, err
		}
	}

	im.log.Info(ctx, "offline import finished", "program", filter.ProgramLabel, "warnings", len(warnings))
	return warnings, nil
}

// resolveProgram returns the program to import and the reference entities
// it needs. An unresolvable program is not an error: the unscoped set of
// reference entities is returned with a warning.
func (im *Importer) resolveProgram(ctx context.Context, label string) (*models.Program, []string, string, error) {
	if label != "" {
		var p models.Program
		err := im.transport.Query(ctx, rpc.OpLoadProgram, rpc.LoadProgramVars{Label: label}, &p)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, models.ReferenceEntityNames, fmt.Sprintf("program %q not found, importing all reference entities", label), nil
		}
		if err != nil {
			return nil, nil, "", err
		}
		return &p, entityNamesOf(&p), "", nil
	}

	var programs []*models.Program
	vars := rpc.LoadProgramsVars{AcquisitionLevel: models.AcquisitionLevelActivityCalendar}
	if err := im.transport.Query(ctx, rpc.OpLoadPrograms, vars, &programs); err != nil {
		return nil, nil, "", err
	}
	if len(programs) != 1 {
		msg := fmt.Sprintf("%d programs match %s, importing all reference entities", len(programs), models.AcquisitionLevelActivityCalendar)
		return nil, models.ReferenceEntityNames, msg, nil
	}
	return programs[0], entityNamesOf(programs[0]), "", nil
}

func entityNamesOf(p *models.Program) []string {
	if len(p.ReferentialEntityNames) == 0 {
		return models.ReferenceEntityNames
	}
	return p.ReferentialEntityNames
}

func (im *Importer) importReferentials(ctx context.Context, name string, levels []string) error {
	var rows []*models.Referential
	vars := rpc.LoadReferentialsVars{EntityName: name, AcquisitionLevels: levels}
	if err := im.transport.Query(ctx, rpc.OpLoadReferentials, vars, &rows); err != nil {
		return err
	}

	recs := make([]entities.Record, 0, len(rows))
	for _, r := range rows {
		if !r.UsedAt(levels) {
			continue
		}
		rec, err := record(models.ReferentialType(name), &r.Entity, r)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	if err := im.store.ReplaceRemote(ctx, models.ReferentialType(name), recs); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	im.log.Debug(ctx, "reference entities imported", "entity", name, "count", len(recs))
	return nil
}

func (im *Importer) importVessels(ctx context.Context, ids []int64) error {
	var vessels []*models.VesselSnapshot
	if err := im.transport.Query(ctx, rpc.OpLoadVessels, rpc.LoadVesselsVars{IDs: ids}, &vessels); err != nil {
		return err
	}
	recs := make([]entities.Record, 0, len(vessels))
	for _, v := range vessels {
		rec, err := record(models.TypeVesselSnapshot, &v.Entity, v)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	if err := im.store.ReplaceRemote(ctx, models.TypeVesselSnapshot, recs); err != nil {
		return fmt.Errorf("store vessels: %w", err)
	}
	return nil
}

func (im *Importer) saveProgram(ctx context.Context, p *models.Program) error {
	rec, err := record(models.TypeProgram, &p.Entity, p)
	if err != nil {
		return err
	}
	if err := im.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("store program: %w", err)
	}
	return nil
}

// ImportHistorical fetches the remote calendars matching f and stores them
// as synchronized. Concurrent calls with the same filter share one fetch.
func (im *Importer) ImportHistorical(ctx context.Context, f models.CalendarFilter) (int, error) {
	key, err := models.Encode(f)
	if err != nil {
		return 0, err
	}
	v, err, _ := im.historical.Do(string(key), func() (any, error) {
		var calendars []*models.Calendar
		if err := im.transport.Query(ctx, rpc.OpLoadCalendars, rpc.LoadCalendarsVars{Filter: f}, &calendars); err != nil {
			return 0, err
		}
		recs := make([]entities.Record, 0, len(calendars))
		for _, c := range calendars {
			if !c.HasID() || c.IsLocal() {
				return 0, fmt.Errorf("%w: remote calendar with id %d", common.ErrInvalidID, c.ID)
			}
			c.SynchronizationStatus = models.StatusSync
			rec, err := record(models.TypeActivityCalendar, &c.Entity, c)
			if err != nil {
				return 0, err
			}
			rec.SyncStatus = models.StatusSync
			recs = append(recs, rec)
		}
		// calendars edited offline keep their local version until pushed
		n, err := im.store.SaveSynced(ctx, recs)
		if err != nil {
			return 0, fmt.Errorf("store calendars: %w", err)
		}
		if skipped := len(recs) - n; skipped > 0 {
			im.log.Info(ctx, "calendars with offline edits kept", "count", skipped)
		}
		im.log.Info(ctx, "historical calendars imported", "count", n, "from", f.StartDate, "program", f.ProgramLabel)
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (im *Importer) retry(ctx context.Context, step string, maxRetries uint64, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(im.newBackOff(), maxRetries), ctx)
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		im.log.Warn(ctx, "import step failed, retrying", "step", step, "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		return fmt.Errorf("import %s: %w", step, err)
	}
	return nil
}

// transient errors are worth another attempt.
func transient(err error) bool {
	switch {
	case errors.Is(err, client.ErrUnauthorized),
		errors.Is(err, common.ErrUnknownOperation),
		errors.Is(err, common.ErrInvalidID),
		errors.Is(err, common.ErrorNotFound),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func record(t models.EntityType, e *models.Entity, v any) (entities.Record, error) {
	data, err := models.Encode(v)
	if err != nil {
		return entities.Record{}, fmt.Errorf("encode %s %d: %w", t, e.ID, err)
	}
	return entities.Record{
		EntityType: t,
		ID:         e.ID,
		UpdateDate: e.UpdateDate,
		SyncStatus: models.StatusSync,
		Data:       data,
	}, nil
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
