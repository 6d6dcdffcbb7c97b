// Package entities is the client Local Store: a durable key space of
// serialized entities addressed by (entity type, id), with a trash table that
// holds minified snapshots of deleted roots and a sequence table backing the
// local identity allocator.
//
// Entities are stored as opaque JSON documents next to the few columns the
// engine filters on (id, update date, synchronization status). Negative ids
// are local rows; the repository never assigns ids itself.
//
//	repo := entities.NewSQLiteRepository(db)
//	_ = repo.Save(ctx, entities.Record{EntityType: models.TypeActivityCalendar, ID: -1, Data: b})
//	page, _ := repo.LoadAll(ctx, models.TypeActivityCalendar, entities.Query{LocalOnly: true})
package entities
