// Package settings stores the offline feature configuration and the
// navigation history of the client on top of the metadata key-value store.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// Offline feature names.
const (
	FeatureActivityCalendar = "activityCalendar"
	FeatureVessel           = "vessel"
)

type Store struct {
	repo metadata.Repository
	now  func() time.Time
}

func NewStore(repo metadata.Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

func filterKey(feature string) string   { return "offline/" + feature + "/filter" }
func syncedAtKey(feature string) string { return "offline/" + feature + "/synced_at" }

func historyPrefix(entityType models.EntityType, id int64) string {
	return fmt.Sprintf("history/%s/%d/", entityType, id)
}

// OfflineFilter returns the filter saved for feature, and false when none was
// saved yet.
func (s *Store) OfflineFilter(ctx context.Context, feature string) (models.OfflineFilter, bool, error) {
	var f models.OfflineFilter
	b, err := s.repo.Get(ctx, filterKey(feature))
	if err != nil || b == nil {
		return f, false, err
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return f, false, fmt.Errorf("decode offline filter %s: %w", feature, err)
	}
	return f, true, nil
}

func (s *Store) SaveOfflineFilter(ctx context.Context, feature string, f models.OfflineFilter) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode offline filter %s: %w", feature, err)
	}
	return s.repo.Set(ctx, filterKey(feature), b)
}

// MarkFeatureSynced records the time of the last successful import.
func (s *Store) MarkFeatureSynced(ctx context.Context, feature string) error {
	return s.repo.Set(ctx, syncedAtKey(feature), []byte(s.now().UTC().Format(time.RFC3339Nano)))
}

// FeatureSyncedAt returns the zero time when the feature was never imported.
func (s *Store) FeatureSyncedAt(ctx context.Context, feature string) (time.Time, error) {
	b, err := s.repo.Get(ctx, syncedAtKey(feature))
	if err != nil || b == nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, string(b))
	if err != nil {
		return time.Time{}, fmt.Errorf("decode synced_at %s: %w", feature, err)
	}
	return t, nil
}

// HasOfflineFeature reports whether the feature has been imported at least once.
func (s *Store) HasOfflineFeature(ctx context.Context, feature string) (bool, error) {
	t, err := s.FeatureSyncedAt(ctx, feature)
	return !t.IsZero(), err
}

// PushPage remembers a page opened for an entity.
func (s *Store) PushPage(ctx context.Context, entityType models.EntityType, id int64, path string) error {
	key := historyPrefix(entityType, id) + path
	return s.repo.Set(ctx, key, []byte(s.now().UTC().Format(time.RFC3339Nano)))
}

// PageHistory lists remembered page paths, sorted.
func (s *Store) PageHistory(ctx context.Context) ([]string, error) {
	m, err := s.repo.ListPrefix(ctx, "history/")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m))
	for k := range m {
		parts := strings.SplitN(k, "/", 4)
		if len(parts) == 4 {
			out = append(out, parts[3])
		}
	}
	sort.Strings(out)
	return out, nil
}

// ClearPageHistory forgets every page of the given entity and reports how
// many were dropped.
func (s *Store) ClearPageHistory(ctx context.Context, entityType models.EntityType, id int64) (int64, error) {
	return s.repo.DeletePrefix(ctx, historyPrefix(entityType, id))
}
