package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/idgen"
	"github.com/dmitrijs2005/fieldsync/internal/client/reconcile"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/entities"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
	"github.com/dmitrijs2005/fieldsync/internal/client/status"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/netx"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
)

// CalendarService is the entry point for every calendar operation of the
// client, online or offline.
type CalendarService interface {
	Load(ctx context.Context, id int64) (*models.Calendar, error)
	LoadAll(ctx context.Context, filter models.CalendarFilter) ([]*models.Calendar, error)

	Save(ctx context.Context, c *models.Calendar) (*models.Calendar, error)
	SaveLocally(ctx context.Context, c *models.Calendar) (*models.Calendar, error)

	Synchronize(ctx context.Context, c *models.Calendar) (*models.Calendar, error)
	SynchronizeByID(ctx context.Context, id int64) (*models.Calendar, error)
	SynchronizeAll(ctx context.Context) ([]*models.Calendar, error)

	Delete(ctx context.Context, calendars []*models.Calendar, trash bool) error
	CopyLocally(ctx context.Context, source *models.Calendar, fromTrash bool) (*models.Calendar, error)

	// ReplayPending sends the saves and deletes recorded while offline and
	// refreshes the local copies the server accepted.
	ReplayPending(ctx context.Context) (int, error)

	ListTrash(ctx context.Context) ([]TrashEntry, error)
	RestoreFromTrash(ctx context.Context, trashID uuid.UUID) (*models.Calendar, error)
	PurgeTrash(ctx context.Context, trashIDs ...uuid.UUID) (int, error)
}

// HistoricalImporter stores remote calendars matching a filter locally.
// importer.Importer implements it.
type HistoricalImporter interface {
	ImportHistorical(ctx context.Context, f models.CalendarFilter) (int, error)
}

// ImageUploader sends an image file to a presigned URL. netx.Uploader
// implements it.
type ImageUploader interface {
	UploadFile(ctx context.Context, url, contentType, path string) error
}

// TrashEntry is a calendar deleted locally and kept for restore.
type TrashEntry struct {
	TrashID   uuid.UUID
	DeletedAt time.Time
	Calendar  *models.Calendar
}

type calendarService struct {
	transport  client.Transport
	store      entities.Repository
	alloc      *idgen.Allocator
	historical HistoricalImporter
	settings   *settings.Store

	machine    *status.Machine
	reconciler *reconcile.Reconciler
	policy     ConflictPolicy
	notifier   Notifier
	uploader   ImageUploader
	log        logging.Logger
	now        func() time.Time

	inflight singleflight.Group
}

type Option func(*calendarService)

func WithLogger(l logging.Logger) Option {
	return func(s *calendarService) { s.log = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *calendarService) { s.notifier = n }
}

func WithConflictPolicy(p ConflictPolicy) Option {
	return func(s *calendarService) { s.policy = p }
}

func WithImageUploader(u ImageUploader) Option {
	return func(s *calendarService) { s.uploader = u }
}

func WithClock(now func() time.Time) Option {
	return func(s *calendarService) { s.now = now }
}

func NewCalendarService(
	transport client.Transport,
	store entities.Repository,
	alloc *idgen.Allocator,
	historical HistoricalImporter,
	st *settings.Store,
	opts ...Option,
) CalendarService {
	s := &calendarService{
		transport:  transport,
		store:      store,
		alloc:      alloc,
		historical: historical,
		settings:   st,
		machine:    status.NewMachine(),
		policy:     LastWriterWins{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log).With("module", "calendars")
	s.reconciler = reconcile.New(s.log)
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.log)
	}
	if s.uploader == nil {
		s.uploader = netx.NewUploader(nil)
	}
	return s
}

func (s *calendarService) Load(ctx context.Context, id int64) (*models.Calendar, error) {
	if id < 0 {
		c, err := s.loadLocal(ctx, id)
		if err != nil {
			return nil, common.NewLoadEntityError("load", err)
		}
		return c, nil
	}

	var c models.Calendar
	err := s.transport.Query(ctx, rpc.OpLoadCalendar, rpc.LoadCalendarVars{ID: id}, &c)
	if errors.Is(err, client.ErrUnavailable) {
		// offline: fall back to the copy imported for offline use
		if local, lerr := s.loadLocal(ctx, id); lerr == nil {
			return local, nil
		}
	}
	if err != nil {
		return nil, common.NewLoadEntityError("load", err)
	}
	return &c, nil
}

func (s *calendarService) loadLocal(ctx context.Context, id int64) (*models.Calendar, error) {
	rec, err := s.store.Load(ctx, models.TypeActivityCalendar, id)
	if err != nil {
		return nil, err
	}
	return models.Decode[models.Calendar](rec.Data)
}

// LoadAll returns the local calendars first, then the remote ones. Offline,
// the remote part comes from the copies imported for offline use. A remote
// calendar edited offline is returned in its local version.
func (s *calendarService) LoadAll(ctx context.Context, filter models.CalendarFilter) ([]*models.Calendar, error) {
	page, err := s.store.LoadAll(ctx, models.TypeActivityCalendar, entities.Query{})
	if err != nil {
		return nil, common.NewLoadEntityError("loadAll", err)
	}

	var out []*models.Calendar
	stored := make(map[int64]*models.Calendar)
	for _, rec := range page.Data {
		c, err := models.Decode[models.Calendar](rec.Data)
		if err != nil {
			return nil, common.NewLoadEntityError("loadAll", err)
		}
		if !filter.Match(c) {
			continue
		}
		if c.IsLocal() {
			out = append(out, c)
			continue
		}
		stored[c.ID] = c
	}

	var remote []*models.Calendar
	err = s.transport.Query(ctx, rpc.OpLoadCalendars, rpc.LoadCalendarsVars{Filter: filter}, &remote)
	switch {
	case errors.Is(err, client.ErrUnavailable):
		s.log.Info(ctx, "server unreachable, listing offline copies", "count", len(stored))
		for _, rec := range page.Data {
			if c, ok := stored[rec.ID]; ok {
				out = append(out, c)
			}
		}
		return out, nil
	case err != nil:
		return nil, common.NewLoadEntityError("loadAll", err)
	}

	for _, c := range remote {
		if own, ok := stored[c.ID]; ok && own.SynchronizationStatus == models.StatusDirty {
			c = own
		}
		out = append(out, c)
	}
	return out, nil
}

// Save sends c to the server. Local calendars are saved locally instead.
// When the server cannot be reached the save is answered offline: a new
// calendar becomes a local one, an existing one is kept locally as DIRTY and
// its mutation is replayed later.
func (s *calendarService) Save(ctx context.Context, c *models.Calendar) (*models.Calendar, error) {
	if c == nil {
		return nil, common.NewSaveEntityError("save", nil, common.ErrInvalidID)
	}
	if c.IsLocal() {
		return s.SaveLocally(ctx, c)
	}

	// the server must see the ranks the reconciler will match on
	c.ReindexRanks()
	data, err := c.Clone()
	if err != nil {
		return nil, common.NewSaveEntityError("save", c, err)
	}
	data.SynchronizationStatus = models.StatusSync

	isNew := !c.HasID()
	opts := []client.MutateOption{client.WithOfflineResponse(client.OfflineResponseFunc(
		func(ctx context.Context, _ client.OfflineContext) (any, error) {
			return s.saveOffline(ctx, c, isNew)
		}))}
	if !isNew {
		opts = append(opts, client.WithTracking(fmt.Sprintf("%s:%d", models.TypeActivityCalendar, c.ID)))
	}

	var saved models.Calendar
	if err := s.transport.Mutate(ctx, rpc.OpSaveCalendar, &rpc.SaveCalendarVars{Calendar: data}, &saved, opts...); err != nil {
		return nil, common.NewSaveEntityError("save", c, err)
	}

	if saved.IsLocal() || saved.SynchronizationStatus == models.StatusDirty {
		// answered offline
		return &saved, nil
	}
	if !saved.HasID() {
		return nil, common.NewSaveEntityError("save", &saved, common.ErrInvalidID)
	}

	rep := s.reconciler.Apply(ctx, c, &saved)
	s.reportUnmatched(ctx, saved.ID, rep)

	saved.SynchronizationStatus = models.StatusSync
	event := status.EventSaveRemote
	if c.SynchronizationStatus == models.StatusDirty {
		// edited offline before
		event = status.EventSynchronized
	}
	if err := s.machine.Apply(ctx, c, event); err != nil {
		return nil, common.NewSaveEntityError("save", c, err)
	}
	if err := s.keepOfflineCopy(ctx, &saved); err != nil {
		s.log.Warn(ctx, "offline copy not refreshed", "calendar", saved.ID, "error", err)
	}
	s.uploadImages(ctx, c, &saved)
	return &saved, nil
}

func (s *calendarService) saveOffline(ctx context.Context, c *models.Calendar, isNew bool) (*models.Calendar, error) {
	local, err := c.Clone()
	if err != nil {
		return nil, err
	}
	if isNew {
		local.SynchronizationStatus = ""
		if _, err := s.SaveLocally(ctx, local); err != nil {
			return nil, err
		}
		return local, nil
	}

	// UpdateDate stays the one the server issued: it is the version the
	// replayed save is checked against.
	if err := s.machine.Apply(ctx, local, status.EventEditLocal); err != nil {
		return nil, err
	}
	if err := s.saveRecord(ctx, local); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "calendar saved offline, will be replayed", "calendar", local.ID)
	return local, nil
}

// keepOfflineCopy refreshes the local copy of a remote calendar, when one was
// imported.
func (s *calendarService) keepOfflineCopy(ctx context.Context, saved *models.Calendar) error {
	if _, err := s.store.Load(ctx, models.TypeActivityCalendar, saved.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	return s.saveRecord(ctx, saved)
}

func (s *calendarService) ReplayPending(ctx context.Context) (int, error) {
	return s.transport.ReplayPending(ctx, s.replayed)
}

// replayed swaps the DIRTY copy of a calendar saved offline for the version
// the server stored on replay.
func (s *calendarService) replayed(ctx context.Context, r client.Replayed) {
	if r.Operation != rpc.OpSaveCalendar {
		return
	}
	saved, err := models.Decode[models.Calendar](r.Data)
	if err != nil || !saved.HasID() || saved.IsLocal() {
		s.log.Warn(ctx, "replayed save without a usable calendar", "key", r.SerializationKey, "error", err)
		return
	}
	saved.SynchronizationStatus = models.StatusSync
	if err := s.keepOfflineCopy(ctx, saved); err != nil {
		s.log.Warn(ctx, "offline copy not refreshed after replay", "calendar", saved.ID, "error", err)
		return
	}
	s.log.Debug(ctx, "offline copy refreshed after replay", "calendar", saved.ID)
}

// SaveLocally gives every node of c a local id and stores it as DIRTY.
func (s *calendarService) SaveLocally(ctx context.Context, c *models.Calendar) (*models.Calendar, error) {
	if c == nil {
		return nil, common.NewSaveEntityError("saveLocally", nil, common.ErrInvalidID)
	}
	if c.HasID() && !c.IsLocal() {
		return nil, common.NewSaveEntityError("saveLocally", c, fmt.Errorf("%w: %d", common.ErrNotLocal, c.ID))
	}

	event := status.EventEditLocal
	if !c.HasID() {
		event = status.EventCreateLocal
		c.SynchronizationStatus = ""
	}

	if err := s.alloc.AssignLocalIDs(ctx, c); err != nil {
		return nil, common.NewSaveEntityError("saveLocally", c, err)
	}
	c.FillRanks()

	now := models.NewTimestamp(s.now())
	if c.CreationDate == "" {
		c.CreationDate = now
	}
	c.UpdateDate = now

	if err := s.machine.Apply(ctx, c, event); err != nil {
		return nil, common.NewSaveEntityError("saveLocally", c, err)
	}
	if err := s.saveRecord(ctx, c); err != nil {
		return nil, common.NewSaveEntityError("saveLocally", c, err)
	}
	s.log.Debug(ctx, "calendar saved locally", "calendar", c.ID, "nodes", c.CountByType())
	return c, nil
}

func (s *calendarService) saveRecord(ctx context.Context, c *models.Calendar) error {
	data, err := models.Encode(c)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, entities.Record{
		EntityType: models.TypeActivityCalendar,
		ID:         c.ID,
		UpdateDate: c.UpdateDate,
		SyncStatus: c.SynchronizationStatus,
		Data:       data,
	})
}

// Synchronize pushes a local calendar to the server and swaps the local copy
// for the server one. Concurrent calls for the same calendar share one push.
// Once the push has started it runs to the end even if ctx is cancelled.
func (s *calendarService) Synchronize(ctx context.Context, c *models.Calendar) (*models.Calendar, error) {
	if c == nil {
		return nil, common.NewSynchronizeEntityError(nil, common.ErrInvalidID)
	}
	if !c.IsLocal() {
		return nil, fmt.Errorf("%w: %d", common.ErrNotLocal, c.ID)
	}
	if !s.transport.Online(ctx) {
		return nil, common.ErrOffline
	}

	ch := s.inflight.DoChan(strconv.FormatInt(c.ID, 10), func() (any, error) {
		return s.synchronize(ctx, c)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Calendar), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *calendarService) synchronize(ctx context.Context, c *models.Calendar) (*models.Calendar, error) {
	localID := c.ID
	log := s.log.With("calendar", localID)

	c.ReindexRanks()
	data, err := c.Clone()
	if err != nil {
		return nil, common.NewSynchronizeEntityError(c, err)
	}
	data.SynchronizationStatus = models.StatusSync
	data.ClearLocalIDs()

	if data, err = s.resolveConflict(ctx, data); err != nil {
		return nil, common.NewSynchronizeEntityError(c, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// past this point the server may have the calendar: finish regardless
	ctx = context.WithoutCancel(ctx)

	var saved models.Calendar
	if err := s.transport.Mutate(ctx, rpc.OpSaveCalendar, &rpc.SaveCalendarVars{Calendar: data}, &saved); err != nil {
		return nil, common.NewSynchronizeEntityError(c, err)
	}
	if !saved.HasID() || saved.IsLocal() || saved.HasLocalIDs() {
		return nil, common.NewSynchronizeEntityError(data,
			fmt.Errorf("%w: server returned id %d", common.ErrInvalidID, saved.ID))
	}
	saved.SynchronizationStatus = models.StatusSync

	rep := s.reconciler.Apply(ctx, c, &saved)
	s.reportUnmatched(ctx, saved.ID, rep)
	if err := s.machine.Apply(ctx, c, status.EventSynchronized); err != nil {
		log.Warn(ctx, "local status not updated", "error", err)
	}

	if err := s.store.Delete(ctx, models.TypeActivityCalendar, localID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.notifier.Notify(ctx, Warning{Code: WarnLocalDelete, Message: "local copy not deleted", CalendarID: localID, Err: err})
	}

	filter := s.historicalFilter(ctx, &saved)
	if _, err := s.historical.ImportHistorical(ctx, filter); err != nil {
		s.notifier.Notify(ctx, Warning{Code: WarnHistoricalImport, Message: "calendar synchronized, offline data not refreshed", CalendarID: saved.ID, Err: err})
	}

	if _, err := s.settings.ClearPageHistory(ctx, models.TypeActivityCalendar, localID); err != nil {
		s.notifier.Notify(ctx, Warning{Code: WarnPageHistory, Message: "page history not cleared", CalendarID: localID, Err: err})
	}

	s.uploadImages(ctx, c, &saved)

	log.Info(ctx, "calendar synchronized", "id", saved.ID, "matched", rep.Matched, "unmatched", rep.Unmatched)
	return &saved, nil
}

// resolveConflict looks for a remote calendar with the same program, vessel
// and year and lets the policy decide what to push.
func (s *calendarService) resolveConflict(ctx context.Context, data *models.Calendar) (*models.Calendar, error) {
	if data.HasID() {
		return data, nil
	}
	f := models.CalendarFilter{ProgramLabel: data.ProgramLabel(), VesselIDs: []int64{data.VesselID}}
	if data.Year > 0 {
		jan1 := time.Date(data.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		f.StartDate = models.NewDate(jan1)
		f.EndDate = models.NewDate(jan1.AddDate(1, 0, -1))
	}

	var remote []*models.Calendar
	if err := s.transport.Query(ctx, rpc.OpLoadCalendars, rpc.LoadCalendarsVars{Filter: f}, &remote); err != nil {
		return nil, err
	}
	for _, r := range remote {
		if r.HasID() && r.Key() == data.Key() {
			s.log.Info(ctx, "remote calendar with the same key", "remote", r.ID)
			return s.policy.Resolve(ctx, data, r)
		}
	}
	return data, nil
}

// historicalFilter scopes the offline import to the calendar's program,
// vessel and year, within the saved offline filter when there is one.
func (s *calendarService) historicalFilter(ctx context.Context, c *models.Calendar) models.CalendarFilter {
	f := models.CalendarFilter{}
	if saved, ok, err := s.settings.OfflineFilter(ctx, settings.FeatureActivityCalendar); err == nil && ok {
		if resolved, err := saved.Resolve(s.now()); err == nil {
			f = resolved
		}
	}
	f.ProgramLabel = c.ProgramLabel()
	f.VesselIDs = []int64{c.VesselID}
	f.IncludedIDs = nil
	return f.ExtendToYear(c.Year)
}

func (s *calendarService) reportUnmatched(ctx context.Context, id int64, rep reconcile.Report) {
	if rep.Unmatched == 0 && rep.Ambiguous == 0 {
		return
	}
	s.notifier.Notify(ctx, Warning{
		Code:       WarnUnmatchedChild,
		Message:    fmt.Sprintf("%d children not matched, %d ambiguous", rep.Unmatched, rep.Ambiguous),
		CalendarID: id,
	})
}

// uploadImages sends the files of local images to the URLs the server
// presigned for them.
func (s *calendarService) uploadImages(ctx context.Context, local, saved *models.Calendar) {
	paths := make(map[models.ImageKey]string)
	for _, img := range local.Images {
		if img.LocalPath != "" {
			paths[img.Key()] = img.LocalPath
		}
	}
	for _, img := range saved.Images {
		path, ok := paths[img.Key()]
		if !ok || img.UploadURL == "" {
			continue
		}
		if err := s.uploader.UploadFile(ctx, img.UploadURL, img.ContentType, path); err != nil {
			s.notifier.Notify(ctx, Warning{Code: WarnImageUpload, Message: "image " + img.Title + " not uploaded", CalendarID: saved.ID, Err: err})
			continue
		}
		s.log.Debug(ctx, "image uploaded", "calendar", saved.ID, "key", img.StorageKey)
	}
}

func (s *calendarService) SynchronizeByID(ctx context.Context, id int64) (*models.Calendar, error) {
	if id >= 0 {
		return nil, fmt.Errorf("%w: %d", common.ErrNotLocal, id)
	}
	c, err := s.loadLocal(ctx, id)
	if err != nil {
		return nil, common.NewLoadEntityError("synchronize", err)
	}
	return s.Synchronize(ctx, c)
}

// SynchronizeAll synchronizes every local calendar in turn and returns the
// ones that made it. Failures do not stop the loop.
func (s *calendarService) SynchronizeAll(ctx context.Context) ([]*models.Calendar, error) {
	if !s.transport.Online(ctx) {
		return nil, common.ErrOffline
	}
	page, err := s.store.LoadAll(ctx, models.TypeActivityCalendar, entities.Query{LocalOnly: true, SyncStatus: models.StatusDirty})
	if err != nil {
		return nil, common.NewLoadEntityError("synchronizeAll", err)
	}

	var out []*models.Calendar
	var errs []error
	for _, rec := range page.Data {
		c, err := models.Decode[models.Calendar](rec.Data)
		if err != nil {
			errs = append(errs, common.NewLoadEntityError("synchronizeAll", err))
			continue
		}
		saved, err := s.Synchronize(ctx, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("calendar %d: %w", rec.ID, err))
			if errors.Is(err, client.ErrUnavailable) || ctx.Err() != nil {
				break
			}
			continue
		}
		out = append(out, saved)
	}
	return out, errors.Join(errs...)
}

// Delete removes local calendars from the store, optionally keeping them in
// the trash, and remote ones through the server.
func (s *calendarService) Delete(ctx context.Context, calendars []*models.Calendar, trash bool) error {
	var remoteIDs []int64
	for _, c := range calendars {
		if c == nil || !c.HasID() {
			continue
		}
		if !c.IsLocal() {
			remoteIDs = append(remoteIDs, c.ID)
			continue
		}
		if err := s.deleteLocal(ctx, c, trash); err != nil {
			return common.NewDeleteEntityError("delete", err)
		}
	}
	if len(remoteIDs) == 0 {
		return nil
	}

	dropCopies := func(ctx context.Context) error {
		for _, id := range remoteIDs {
			if err := s.store.Delete(ctx, models.TypeActivityCalendar, id); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
		}
		return nil
	}
	offline := client.OfflineResponseFunc(func(ctx context.Context, _ client.OfflineContext) (any, error) {
		return nil, dropCopies(ctx)
	})
	err := s.transport.Mutate(ctx, rpc.OpDeleteCalendars, rpc.DeleteCalendarsVars{IDs: remoteIDs}, nil,
		client.WithOfflineResponse(offline),
		client.WithTracking(fmt.Sprintf("%s:%v", rpc.OpDeleteCalendars, remoteIDs)))
	if err != nil {
		return common.NewDeleteEntityError("delete", err)
	}
	if err := dropCopies(ctx); err != nil {
		return common.NewDeleteEntityError("delete", err)
	}
	return nil
}

func (s *calendarService) deleteLocal(ctx context.Context, c *models.Calendar, trash bool) error {
	if trash {
		data, err := models.Encode(c)
		if err != nil {
			return err
		}
		if err := s.store.SaveToTrash(ctx, entities.TrashRecord{
			TrashID:    uuid.New(),
			EntityType: models.TypeActivityCalendar,
			OriginalID: c.ID,
			DeletedAt:  s.now(),
			Data:       data,
		}); err != nil {
			return fmt.Errorf("trash calendar %d: %w", c.ID, err)
		}
	}
	if err := s.store.Delete(ctx, models.TypeActivityCalendar, c.ID); err != nil {
		return fmt.Errorf("delete calendar %d: %w", c.ID, err)
	}
	if _, err := s.settings.ClearPageHistory(ctx, models.TypeActivityCalendar, c.ID); err != nil {
		s.notifier.Notify(ctx, Warning{Code: WarnPageHistory, Message: "page history not cleared", CalendarID: c.ID, Err: err})
	}
	return nil
}

// CopyLocally stores a copy of source as a new local calendar. With
// fromTrash, the trashed versions of source are removed.
func (s *calendarService) CopyLocally(ctx context.Context, source *models.Calendar, fromTrash bool) (*models.Calendar, error) {
	if source == nil {
		return nil, common.NewSaveEntityError("copyLocally", nil, common.ErrInvalidID)
	}
	originalID := source.ID

	c, err := source.Clone()
	if err != nil {
		return nil, common.NewSaveEntityError("copyLocally", source, err)
	}
	c.ResetIdentity()
	c.SynchronizationStatus = ""
	for _, img := range c.Images {
		img.UploadURL = ""
	}

	if _, err := s.SaveLocally(ctx, c); err != nil {
		return nil, err
	}

	if fromTrash {
		entries, err := s.store.ListTrash(ctx, models.TypeActivityCalendar)
		if err != nil {
			return nil, common.NewDeleteEntityError("copyLocally", err)
		}
		for _, e := range entries {
			if e.OriginalID != originalID {
				continue
			}
			if err := s.store.DeleteFromTrash(ctx, e.TrashID); err != nil {
				return nil, common.NewDeleteEntityError("copyLocally", err)
			}
		}
	}
	return c, nil
}

func (s *calendarService) ListTrash(ctx context.Context) ([]TrashEntry, error) {
	recs, err := s.store.ListTrash(ctx, models.TypeActivityCalendar)
	if err != nil {
		return nil, common.NewLoadEntityError("listTrash", err)
	}
	out := make([]TrashEntry, 0, len(recs))
	for _, r := range recs {
		c, err := models.Decode[models.Calendar](r.Data)
		if err != nil {
			return nil, common.NewLoadEntityError("listTrash", err)
		}
		out = append(out, TrashEntry{TrashID: r.TrashID, DeletedAt: r.DeletedAt, Calendar: c})
	}
	return out, nil
}

// RestoreFromTrash copies a trashed calendar back as a new local calendar
// and removes it from the trash.
func (s *calendarService) RestoreFromTrash(ctx context.Context, trashID uuid.UUID) (*models.Calendar, error) {
	rec, err := s.store.LoadFromTrash(ctx, trashID)
	if err != nil {
		return nil, common.NewLoadEntityError("restore", err)
	}
	c, err := models.Decode[models.Calendar](rec.Data)
	if err != nil {
		return nil, common.NewLoadEntityError("restore", err)
	}
	restored, err := s.CopyLocally(ctx, c, false)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteFromTrash(ctx, trashID); err != nil {
		return nil, common.NewDeleteEntityError("restore", err)
	}
	return restored, nil
}

// PurgeTrash deletes the given trash entries, or the whole trash when no id
// is given, and returns how many were deleted.
func (s *calendarService) PurgeTrash(ctx context.Context, trashIDs ...uuid.UUID) (int, error) {
	if len(trashIDs) == 0 {
		entries, err := s.store.ListTrash(ctx, models.TypeActivityCalendar)
		if err != nil {
			return 0, common.NewDeleteEntityError("purge", err)
		}
		for _, e := range entries {
			trashIDs = append(trashIDs, e.TrashID)
		}
	}
	n := 0
	for _, id := range trashIDs {
		if err := s.store.DeleteFromTrash(ctx, id); err != nil {
			return n, common.NewDeleteEntityError("purge", err)
		}
		n++
	}
	return n, nil
}
