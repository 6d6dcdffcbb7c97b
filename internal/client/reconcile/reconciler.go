// Package reconcile stitches server-issued identities onto the in-memory
// calendar graph after a remote save.
//
// Children are matched by domain key, never by id: local ids are negative
// placeholders the server has never seen. The local graph keeps every
// pointer it had, so open editors keep working on the same nodes.
//
// Rank orders are re-indexed to 1..N before matching. This assumes the server
// kept the ranks it received; when it renumbers them, the affected children
// come back unmatched.
package reconcile

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// Report counts what happened to the local children.
type Report struct {
	Matched   int
	Unmatched int
	// Ambiguous counts local children that shared a key with an earlier
	// sibling and were left untouched.
	Ambiguous int
}

func (r *Report) add(o Report) {
	r.Matched += o.Matched
	r.Unmatched += o.Unmatched
	r.Ambiguous += o.Ambiguous
}

type Reconciler struct {
	log logging.Logger
}

func New(log logging.Logger) *Reconciler {
	return &Reconciler{log: logging.OrNop(log).With("module", "reconcile")}
}

// Apply copies ids and update dates from saved onto local. Server-only
// children are never added to local, and unmatched local children are left
// as they are.
func (r *Reconciler) Apply(ctx context.Context, local, saved *models.Calendar) Report {
	var rep Report
	if local == nil || saved == nil {
		return rep
	}

	local.CopyIdentity(&saved.Entity)
	if saved.CreationDate != "" {
		local.CreationDate = saved.CreationDate
	}

	// Duplicates in ranked collections only show before re-indexing splits
	// them; the first one in slice order keeps the original rank.
	rep.Ambiguous += duplicates[models.GearKey](ctx, r, models.TypeGearUseFeatures, local.GearUseFeatures)
	rep.Ambiguous += duplicates[models.GearKey](ctx, r, models.TypeGearPhysicalFeatures, local.GearPhysicalFeatures)
	rep.Ambiguous += duplicates[models.ImageKey](ctx, r, models.TypeImageAttachment, local.Images)

	local.ReindexRanks()

	rep.add(match[models.VesselUseKey](ctx, r, models.TypeVesselUseFeatures,
		local.VesselUseFeatures, saved.VesselUseFeatures, nil))

	rep.add(match[models.GearKey](ctx, r, models.TypeGearUseFeatures,
		local.GearUseFeatures, saved.GearUseFeatures,
		func(l, s *models.GearUseFeatures) Report {
			return match[models.FishingAreaKey](ctx, r, models.TypeFishingArea, l.FishingAreas, s.FishingAreas, nil)
		}))

	rep.add(match[models.GearKey](ctx, r, models.TypeGearPhysicalFeatures,
		local.GearPhysicalFeatures, saved.GearPhysicalFeatures, nil))

	rep.add(match[models.ImageKey](ctx, r, models.TypeImageAttachment,
		local.Images, saved.Images,
		func(l, s *models.Image) Report {
			l.StorageKey = s.StorageKey
			l.UploadURL = s.UploadURL
			return Report{}
		}))

	if rep.Unmatched > 0 || rep.Ambiguous > 0 {
		r.log.Warn(ctx, "calendar reconciled with leftovers",
			"id", local.ID, "matched", rep.Matched, "unmatched", rep.Unmatched, "ambiguous", rep.Ambiguous)
	} else {
		r.log.Debug(ctx, "calendar reconciled", "id", local.ID, "matched", rep.Matched)
	}
	return rep
}

type node[K comparable] interface {
	Identity() *models.Entity
	Key() K
}

func duplicates[K comparable, T node[K]](ctx context.Context, r *Reconciler, kind models.EntityType, items []T) int {
	seen := make(map[K]struct{}, len(items))
	n := 0
	for _, it := range items {
		k := it.Key()
		if _, ok := seen[k]; ok {
			n++
			r.log.Warn(ctx, "duplicate local key, keeping first match", "type", kind, "key", k, "local_id", it.Identity().ID)
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}

// match pairs each local child with the first saved child of the same key.
// then runs on every matched pair (for nested collections and extra fields).
func match[K comparable, T node[K]](
	ctx context.Context,
	r *Reconciler,
	kind models.EntityType,
	locals, saved []T,
	then func(l, s T) Report,
) Report {
	var rep Report
	if len(locals) == 0 {
		return rep
	}

	index := make(map[K]T, len(saved))
	for _, s := range saved {
		k := s.Key()
		if _, dup := index[k]; dup {
			r.log.Warn(ctx, "server returned duplicate key", "type", kind, "key", k)
			continue
		}
		index[k] = s
	}

	claimed := make(map[K]struct{}, len(locals))
	for _, l := range locals {
		k := l.Key()
		if _, taken := claimed[k]; taken {
			rep.Ambiguous++
			r.log.Warn(ctx, "duplicate local key, keeping first match", "type", kind, "key", k, "local_id", l.Identity().ID)
			continue
		}
		claimed[k] = struct{}{}

		s, ok := index[k]
		if !ok {
			rep.Unmatched++
			r.log.Info(ctx, "no server match for local child", "type", kind, "key", k, "local_id", l.Identity().ID)
			continue
		}

		l.Identity().CopyIdentity(s.Identity())
		rep.Matched++
		if then != nil {
			rep.add(then(l, s))
		}
	}
	return rep
}
