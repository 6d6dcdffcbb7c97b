package importer

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/client/clienttest"
	"github.com/dmitrijs2005/fieldsync/internal/client/migrations"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
)

var fixedNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	transport *clienttest.Transport
	store     *entities.SQLiteRepository
	settings  *settings.Store
	importer  *Importer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	f := &fixture{
		transport: clienttest.New(),
		store:     entities.NewSQLiteRepository(db),
		settings:  settings.NewStore(metadata.NewSQLiteRepository(db)),
	}
	f.importer = New(f.transport, f.store, f.settings,
		WithClock(func() time.Time { return fixedNow }),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)

	f.transport.Reply(rpc.OpLoadProgram, &models.Program{
		Entity:                 models.Entity{ID: 3},
		Label:                  "SIH-ACTIFLOT",
		AcquisitionLevels:      []string{models.AcquisitionLevelActivityCalendar},
		ReferentialEntityNames: []string{"Location", "Gear"},
	})
	f.transport.Handle(rpc.OpLoadReferentials, func(_ context.Context, raw json.RawMessage) (any, error) {
		var vars rpc.LoadReferentialsVars
		if err := json.Unmarshal(raw, &vars); err != nil {
			return nil, err
		}
		return []*models.Referential{
			{Entity: models.Entity{ID: 1}, EntityName: vars.EntityName, Label: vars.EntityName + "-1"},
			{Entity: models.Entity{ID: 2}, EntityName: vars.EntityName, Label: vars.EntityName + "-2",
				AcquisitionLevels: []string{"OBSERVED_TRIP"}},
		}, nil
	})
	f.transport.Reply(rpc.OpLoadVessels, []*models.VesselSnapshot{
		{Entity: models.Entity{ID: 77}, RegistrationCode: "FRA000851751", Name: "Mariette"},
	})
	f.transport.Reply(rpc.OpLoadCalendars, []*models.Calendar{
		{Entity: models.Entity{ID: 501, UpdateDate: "2024-02-01T00:00:00Z"}, Year: 2023, VesselID: 77,
			SynchronizationStatus: models.StatusDirty},
		{Entity: models.Entity{ID: 502}, Year: 2024, VesselID: 77},
	})
	return f
}

func filter() models.OfflineFilter {
	return models.OfflineFilter{
		ProgramLabel:   "SIH-ACTIFLOT",
		VesselID:       77,
		PeriodDuration: 1,
		PeriodUnit:     models.PeriodYear,
	}
}

func TestRun_ImportsEverything(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p := f.importer.Run(ctx, filter(), Options{})
	require.NoError(t, p.Err)
	assert.True(t, p.Done)
	assert.Equal(t, 1.0, p.Fraction)
	assert.Empty(t, p.Warnings)

	for _, name := range []string{"Location", "Gear"} {
		page, err := f.store.LoadAll(ctx, models.ReferentialType(name), entities.Query{})
		require.NoError(t, err)
		require.Len(t, page.Data, 1, name)
		assert.Equal(t, int64(1), page.Data[0].ID)
	}
	page, err := f.store.LoadAll(ctx, models.ReferentialType("Metier"), entities.Query{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	_, err = f.store.Load(ctx, models.TypeVesselSnapshot, 77)
	require.NoError(t, err)
	_, err = f.store.Load(ctx, models.TypeProgram, 3)
	require.NoError(t, err)

	calendars, err := f.store.LoadAll(ctx, models.TypeActivityCalendar, entities.Query{})
	require.NoError(t, err)
	require.Len(t, calendars.Data, 2)
	for _, rec := range calendars.Data {
		assert.Equal(t, models.StatusSync, rec.SyncStatus)
		c, err := models.Decode[models.Calendar](rec.Data)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSync, c.SynchronizationStatus)
	}

	calls := f.transport.Calls(rpc.OpLoadCalendars)
	require.Len(t, calls, 1)
	var vars rpc.LoadCalendarsVars
	require.NoError(t, json.Unmarshal(calls[0].Variables, &vars))
	assert.Equal(t, models.Date("2023-06-15"), vars.Filter.StartDate)
	assert.Equal(t, []int64{77}, vars.Filter.VesselIDs)
	assert.Equal(t, "SIH-ACTIFLOT", vars.Filter.ProgramLabel)

	saved, ok, err := f.settings.OfflineFilter(ctx, settings.FeatureActivityCalendar)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filter(), saved)

	for _, feature := range []string{settings.FeatureActivityCalendar, settings.FeatureVessel} {
		at, err := f.settings.FeatureSyncedAt(ctx, feature)
		require.NoError(t, err)
		assert.False(t, at.IsZero(), feature)
	}
}

func TestRun_UnresolvableProgram(t *testing.T) {
	f := setup(t)
	f.transport.Reply(rpc.OpLoadPrograms, []*models.Program{
		{Entity: models.Entity{ID: 3}, Label: "SIH-ACTIFLOT"},
		{Entity: models.Entity{ID: 4}, Label: "SIH-ACTIPRED"},
	})
	in := filter()
	in.ProgramLabel = ""

	p := f.importer.Run(context.Background(), in, Options{})
	require.NoError(t, p.Err)
	assert.True(t, p.Done)
	require.Len(t, p.Warnings, 2)
	assert.Contains(t, p.Warnings[0], "2 programs match")
	assert.Contains(t, p.Warnings[1], "historical calendars not imported")

	assert.Len(t, f.transport.Calls(rpc.OpLoadReferentials), len(models.ReferenceEntityNames))
	assert.Empty(t, f.transport.Calls(rpc.OpLoadCalendars))
	assert.Empty(t, f.transport.Calls(rpc.OpLoadProgram))
}

func TestRun_SingleScopedProgram(t *testing.T) {
	f := setup(t)
	f.transport.Reply(rpc.OpLoadPrograms, []*models.Program{
		{Entity: models.Entity{ID: 4}, Label: "SIH-ACTIPRED", ReferentialEntityNames: []string{"Metier"}},
	})
	in := filter()
	in.ProgramLabel = ""

	p := f.importer.Run(context.Background(), in, Options{SkipHistorical: true})
	require.NoError(t, p.Err)
	assert.Empty(t, p.Warnings)
	assert.Len(t, f.transport.Calls(rpc.OpLoadReferentials), 1)

	saved, _, err := f.settings.OfflineFilter(context.Background(), settings.FeatureActivityCalendar)
	require.NoError(t, err)
	assert.Equal(t, "SIH-ACTIPRED", saved.ProgramLabel)
}

func TestRun_UnknownProgramLabel(t *testing.T) {
	f := setup(t)
	f.transport.FailNext(rpc.OpLoadProgram, client.ErrUnavailable, common.ErrorNotFound)

	p := f.importer.Run(context.Background(), filter(), Options{SkipHistorical: true})
	require.NoError(t, p.Err)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], `program "SIH-ACTIFLOT" not found`)
	assert.Len(t, f.transport.Calls(rpc.OpLoadProgram), 2)
	assert.Len(t, f.transport.Calls(rpc.OpLoadReferentials), len(models.ReferenceEntityNames))
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	f := setup(t)
	f.transport.FailNext(rpc.OpLoadVessels, client.ErrUnavailable, client.ErrUnavailable)

	p := f.importer.Run(context.Background(), filter(), Options{})
	require.NoError(t, p.Err)
	assert.Len(t, f.transport.Calls(rpc.OpLoadVessels), 3)
}

func TestRun_GivesUpAfterMaxRetries(t *testing.T) {
	f := setup(t)
	f.transport.FailNext(rpc.OpLoadVessels, client.ErrUnavailable, client.ErrUnavailable, client.ErrUnavailable)

	p := f.importer.Run(context.Background(), filter(), Options{MaxRetries: 2})
	require.ErrorIs(t, p.Err, client.ErrUnavailable)
	assert.True(t, p.Done)
	assert.Len(t, f.transport.Calls(rpc.OpLoadVessels), 3)

	_, ok, err := f.settings.OfflineFilter(context.Background(), settings.FeatureActivityCalendar)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_PermanentFailureIsNotRetried(t *testing.T) {
	f := setup(t)
	f.transport.FailNext(rpc.OpLoadProgram, client.ErrUnauthorized)

	p := f.importer.Run(context.Background(), filter(), Options{})
	require.ErrorIs(t, p.Err, client.ErrUnauthorized)
	assert.Len(t, f.transport.Calls(rpc.OpLoadProgram), 1)
	assert.Empty(t, f.transport.Calls(rpc.OpLoadReferentials))
}

func TestExecute_ProgressIsMonotonic(t *testing.T) {
	f := setup(t)

	var updates []Progress
	for p := range f.importer.Execute(context.Background(), filter(), Options{}) {
		updates = append(updates, p)
	}
	require.NotEmpty(t, updates)

	last := updates[len(updates)-1]
	assert.True(t, last.Done)
	for i, p := range updates {
		assert.GreaterOrEqual(t, p.Fraction, 0.0)
		assert.LessOrEqual(t, p.Fraction, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, p.Fraction, updates[i-1].Fraction)
		}
		if i < len(updates)-1 {
			assert.False(t, p.Done)
		}
	}
}

func TestExecute_ConcurrentCallJoinsRunningImport(t *testing.T) {
	f := setup(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	f.transport.Handle(rpc.OpLoadProgram, func(context.Context, json.RawMessage) (any, error) {
		once.Do(func() { close(entered) })
		<-release
		return &models.Program{Entity: models.Entity{ID: 3}, Label: "SIH-ACTIFLOT"}, nil
	})

	ctx := context.Background()
	first := f.importer.Execute(ctx, filter(), Options{SkipHistorical: true})
	<-entered
	second := f.importer.Execute(ctx, filter(), Options{SkipHistorical: true})
	close(release)

	drain := func(ch <-chan Progress) Progress {
		var last Progress
		for p := range ch {
			last = p
		}
		return last
	}
	a, b := drain(first), drain(second)
	require.NoError(t, a.Err)
	require.NoError(t, b.Err)
	assert.True(t, a.Done)
	assert.True(t, b.Done)
	assert.Len(t, f.transport.Calls(rpc.OpLoadProgram), 1)

	// a later call starts a new import
	c := f.importer.Run(ctx, filter(), Options{SkipHistorical: true})
	require.NoError(t, c.Err)
	assert.Len(t, f.transport.Calls(rpc.OpLoadProgram), 2)
}

func TestImportHistorical_RejectsLocalIDs(t *testing.T) {
	f := setup(t)
	f.transport.Reply(rpc.OpLoadCalendars, []*models.Calendar{{Entity: models.Entity{ID: -4}, Year: 2024}})

	n, err := f.importer.ImportHistorical(context.Background(), models.CalendarFilter{ProgramLabel: "SIH-ACTIFLOT"})
	require.Error(t, err)
	assert.Zero(t, n)

	page, err := f.store.LoadAll(context.Background(), models.TypeActivityCalendar, entities.Query{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-0.2))
	assert.Equal(t, 0.4, clamp(0.4))
	assert.Equal(t, 1.0, clamp(1.3))
}
