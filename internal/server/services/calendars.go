// Package services contains the server-side business logic behind the
// DataService operations.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/calendars"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/referentials"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/repomanager"
)

// CalendarService owns server identity of calendars and serves the
// reference data.
type CalendarService struct {
	repos  repomanager.RepositoryManager
	signer UploadSigner
	log    logging.Logger
	now    func() time.Time
}

type Option func(*CalendarService)

// WithUploadSigner makes Save return upload URLs for pending images.
func WithUploadSigner(s UploadSigner) Option {
	return func(cs *CalendarService) { cs.signer = s }
}

func WithLogger(l logging.Logger) Option {
	return func(cs *CalendarService) { cs.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(cs *CalendarService) { cs.now = now }
}

func NewCalendarService(repos repomanager.RepositoryManager, opts ...Option) *CalendarService {
	s := &CalendarService{repos: repos, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.log = logging.OrNop(s.log).With("module", "calendars")
	return s
}

// StorageKey names the object an image of calendar id is uploaded to.
func StorageKey(calendarID int64) string {
	return fmt.Sprintf("calendars/%d/%s", calendarID, uuid.New())
}

// Save inserts a new calendar or updates an existing one. An update must
// carry the update date the server last returned, otherwise it fails with
// common.ErrVersionConflict. Nodes without an id get one, every node gets
// the same new update date, and the stored calendar is returned.
func (s *CalendarService) Save(ctx context.Context, c *models.Calendar) (*models.Calendar, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no calendar", common.ErrValidation)
	}
	if c.HasLocalIDs() {
		return nil, fmt.Errorf("%w: calendar carries local ids", common.ErrValidation)
	}
	if c.Year <= 0 || c.VesselID <= 0 {
		return nil, fmt.Errorf("%w: year and vessel are required", common.ErrValidation)
	}

	saved, err := c.Clone()
	if err != nil {
		return nil, err
	}
	ts := models.NewTimestamp(s.now())
	isNew := !saved.HasID()

	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		cals := repos.Calendars()

		var expected models.Timestamp
		if isNew {
			saved.CreationDate = ts
		} else {
			current, err := cals.Get(ctx, saved.ID)
			if err != nil {
				return err
			}
			if current.UpdateDate != saved.UpdateDate {
				return fmt.Errorf("calendar %d updated at %s, got %s: %w",
					saved.ID, current.UpdateDate, saved.UpdateDate, common.ErrVersionConflict)
			}
			expected = current.UpdateDate
			saved.CreationDate = current.CreationDate
		}

		if err := s.assignIDs(ctx, cals, saved, ts); err != nil {
			return err
		}
		saved.SynchronizationStatus = models.StatusSync
		for _, img := range saved.Images {
			if img.StorageKey == "" {
				img.StorageKey = StorageKey(saved.ID)
			}
		}

		stored, err := saved.Clone()
		if err != nil {
			return err
		}
		for _, img := range stored.Images {
			img.UploadURL = ""
			img.LocalPath = ""
		}

		if isNew {
			return cals.Insert(ctx, stored)
		}
		return cals.Update(ctx, stored, expected)
	})
	if err != nil {
		s.log.Warn(ctx, "calendar not saved", "operator", auth.OperatorFrom(ctx), "id", c.ID, "error", err)
		return nil, err
	}

	s.signUploads(ctx, saved)

	s.log.Info(ctx, "calendar saved", "operator", auth.OperatorFrom(ctx), "id", saved.ID, "new", isNew)
	return saved, nil
}

// assignIDs gives every node without an id a fresh one, in walk order, and
// stamps all nodes with ts.
func (s *CalendarService) assignIDs(ctx context.Context, cals calendars.Repository, c *models.Calendar, ts models.Timestamp) error {
	missing := 0
	c.Walk(func(_ models.EntityType, e *models.Entity) {
		if !e.HasID() {
			missing++
		}
	})
	ids, err := cals.NextIDs(ctx, missing)
	if err != nil {
		return err
	}
	c.Walk(func(_ models.EntityType, e *models.Entity) {
		if !e.HasID() {
			e.ID, ids = ids[0], ids[1:]
		}
		e.UpdateDate = ts
	})
	return nil
}

// signUploads hands out an upload URL for every image the client still
// holds a local file for.
func (s *CalendarService) signUploads(ctx context.Context, c *models.Calendar) {
	for _, img := range c.Images {
		pending := img.LocalPath != ""
		img.LocalPath = ""
		if !pending || s.signer == nil {
			continue
		}
		url, err := s.signer.PresignPut(ctx, img.StorageKey, img.ContentType)
		if err != nil {
			s.log.Warn(ctx, "upload url not signed", "calendar", c.ID, "key", img.StorageKey, "error", err)
			continue
		}
		img.UploadURL = url
	}
}

// Delete removes the given calendars and returns how many existed.
func (s *CalendarService) Delete(ctx context.Context, ids []int64) (int64, error) {
	for _, id := range ids {
		if id <= 0 {
			return 0, fmt.Errorf("%w: cannot delete calendar %d", common.ErrValidation, id)
		}
	}
	var n int64
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		var err error
		n, err = repos.Calendars().Delete(ctx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "calendars deleted", "operator", auth.OperatorFrom(ctx), "ids", ids, "deleted", n)
	return n, nil
}

func (s *CalendarService) Load(ctx context.Context, id int64) (*models.Calendar, error) {
	return s.repos.Calendars().Get(ctx, id)
}

func (s *CalendarService) LoadAll(ctx context.Context, f models.CalendarFilter, offset, size int) ([]*models.Calendar, error) {
	return s.repos.Calendars().List(ctx, f, offset, size)
}

func (s *CalendarService) Programs(ctx context.Context, level string) ([]*models.Program, error) {
	return s.repos.Referentials().Programs(ctx, level)
}

func (s *CalendarService) Program(ctx context.Context, label string) (*models.Program, error) {
	return s.repos.Referentials().ProgramByLabel(ctx, label)
}

func (s *CalendarService) Referentials(ctx context.Context, entityName string, levels []string) ([]*models.Referential, error) {
	if entityName == "" {
		return nil, fmt.Errorf("%w: entity name is required", common.ErrValidation)
	}
	return s.repos.Referentials().Referentials(ctx, entityName, levels)
}

func (s *CalendarService) Vessels(ctx context.Context, ids []int64) ([]*models.VesselSnapshot, error) {
	return s.repos.Referentials().Vessels(ctx, ids)
}

// Seed loads reference data in one transaction.
func (s *CalendarService) Seed(ctx context.Context, seed referentials.Seed) error {
	err := s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		return repos.Referentials().Seed(ctx, seed)
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "reference data loaded",
		"programs", len(seed.Programs), "referentials", len(seed.Referentials), "vessels", len(seed.Vessels))
	return nil
}

// ReadSeedFile decodes a JSON reference data file.
func ReadSeedFile(path string) (referentials.Seed, error) {
	var seed referentials.Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("parse seed file: %w", err)
	}
	for _, p := range seed.Programs {
		if p.ID <= 0 || p.Label == "" {
			return seed, errors.New("parse seed file: programs need an id and a label")
		}
	}
	return seed, nil
}
