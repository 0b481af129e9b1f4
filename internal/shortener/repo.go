package shortener

import (
	"context"
	"time"
)

// Repository defines the persistence operations for Link entities.
// It is the single source of truth for links: uniqueness of codes is
// enforced by the store, and Create reports a duplicate code as Conflict.
type Repository interface {
	Create(ctx context.Context, link Link) (Link, error)
	GetByCode(ctx context.Context, code string) (Link, error)
	// List returns every link, newest first.
	List(ctx context.Context) ([]Link, error)
	// IncrementClicks adds one click and sets last clicked to at in a single
	// statement, returning the updated link.
	IncrementClicks(ctx context.Context, code string, at time.Time) (Link, error)
	// Delete removes the link with code. Deleting a missing code is not an error.
	Delete(ctx context.Context, code string) error
	Ping(ctx context.Context) error
}
