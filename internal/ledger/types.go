// Package ledger stores the registration roster and the submission log
// behind a single Store interface with excel, SQL, MongoDB, and
// in-memory backends.
package ledger

import (
	"context"
	"time"
)

// Entry is one accepted submission recorded in the ledger.
type Entry struct {
	Email       string
	ActivityRef string
	DistanceKm  float64
	Duration    string
	SubmittedAt time.Time
}

// Store is the backend contract. IsRegistered consults the registration
// roster; ListEntries and Append operate on the submission log.
type Store interface {
	IsRegistered(ctx context.Context, email string) (bool, error)
	ListEntries(ctx context.Context) ([]Entry, error)
	Append(ctx context.Context, entry Entry) error
	Ping(ctx context.Context) error
	Close() error
}
