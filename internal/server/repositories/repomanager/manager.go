// Package repomanager hands out the server repositories and runs work
// against them inside one transaction.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/calendars"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/referentials"
)

// Repositories is the set of repositories bound to one connection or transaction.
type Repositories interface {
	Calendars() calendars.Repository
	Referentials() referentials.Repository
}

type RepositoryManager interface {
	Repositories
	// WithTx runs fn with repositories bound to a single transaction that
	// commits when fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Close() error
}
