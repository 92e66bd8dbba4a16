package host

import "context"

// Host is everything the table engine needs from the platform.
type Host interface {
	// Get fetches one record, returning ErrNotFound if it was deleted.
	Get(ctx context.Context, id string) (Record, error)

	// GetMany fetches records by ID in the given order, skipping deleted ones.
	GetMany(ctx context.Context, ids []string) ([]Record, error)

	// Query fetches records of an entity matching a constraint evaluated
	// against the context record.
	Query(ctx context.Context, entity, constraint string, contextRec Record) ([]Record, error)

	// ExecuteAction runs a flow or opens a page for rec.
	ExecuteAction(ctx context.Context, a Action, rec Record) (Result, error)

	// Create makes a transient record of the entity.
	Create(ctx context.Context, entity string) (MutableRecord, error)

	// Commit registers a transient record so it can be read during the session.
	Commit(ctx context.Context, rec MutableRecord) error

	// IsPersistable reports whether records of the entity are stored durably.
	IsPersistable(entity string) bool

	// Subscribe registers a change callback for one record.
	Subscribe(id string, fn func(id string)) Subscription

	// Unsubscribe removes a change callback.
	Unsubscribe(sub Subscription)
}
