// Package memhost provides an in-memory host.Host.
//
// Records are kept in insertion order so queries return deterministic
// results. Writes through Put and Delete notify subscribers the same way a
// platform change feed would.
package memhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jacentio/dyntable/host"
)

// Constraint filters query candidates against the context record.
type Constraint func(rec, contextRec host.Record) bool

// Host is an in-memory host. It is safe for concurrent use.
type Host struct {
	*host.Hub
	*host.Dispatcher

	mu          sync.RWMutex
	records     map[string]*host.Object
	order       []string
	persistable map[string]bool
	constraints map[string]Constraint
	gets        int
}

var _ host.Host = (*Host)(nil)

// New creates an empty Host.
func New() *Host {
	return &Host{
		Hub:         host.NewHub(),
		Dispatcher:  host.NewDispatcher(),
		records:     make(map[string]*host.Object),
		persistable: make(map[string]bool),
		constraints: make(map[string]Constraint),
	}
}

// DefineEntity records whether an entity is persistable.
func (h *Host) DefineEntity(name string, persistable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.persistable[name] = persistable
}

// RegisterConstraint binds a constraint string to a filter.
func (h *Host) RegisterConstraint(constraint string, fn Constraint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.constraints[constraint] = fn
}

// Put inserts or replaces a record and notifies its subscribers.
func (h *Host) Put(obj *host.Object) {
	h.store(obj)
	h.Notify(obj.ID())
}

// Seed inserts records without notifying anyone.
func (h *Host) Seed(objs ...*host.Object) {
	for _, obj := range objs {
		h.store(obj)
	}
}

func (h *Host) store(obj *host.Object) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.records[obj.ID()]; !ok {
		h.order = append(h.order, obj.ID())
	}
	h.records[obj.ID()] = obj.Clone()
}

// Delete removes a record and notifies its subscribers.
func (h *Host) Delete(id string) {
	h.mu.Lock()
	if _, ok := h.records[id]; ok {
		delete(h.records, id)
		for i, existing := range h.order {
			if existing == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
	h.mu.Unlock()
	h.Notify(id)
}

// Gets returns how many single-record fetches were served.
func (h *Host) Gets() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gets
}

// Get returns a copy of the stored record, or host.ErrNotFound.
func (h *Host) Get(_ context.Context, id string) (host.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gets++
	obj, ok := h.records[id]
	if !ok {
		return nil, host.ErrNotFound
	}
	return obj.Clone(), nil
}

// GetMany returns copies of the stored records in the order of ids, skipping
// unknown ones.
func (h *Host) GetMany(_ context.Context, ids []string) ([]host.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	recs := make([]host.Record, 0, len(ids))
	for _, id := range ids {
		if obj, ok := h.records[id]; ok {
			recs = append(recs, obj.Clone())
		}
	}
	return recs, nil
}

// Query returns the records of the entity in insertion order. A non-empty
// constraint must have been registered with RegisterConstraint.
func (h *Host) Query(_ context.Context, entity, constraint string, contextRec host.Record) ([]host.Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var filter Constraint
	if constraint != "" {
		fn, ok := h.constraints[constraint]
		if !ok {
			return nil, fmt.Errorf("memhost: unknown constraint %q", constraint)
		}
		filter = fn
	}

	var recs []host.Record
	for _, id := range h.order {
		obj := h.records[id]
		if obj.Entity() != entity {
			continue
		}
		if filter != nil && !filter(obj, contextRec) {
			continue
		}
		recs = append(recs, obj.Clone())
	}
	return recs, nil
}

// ExecuteAction runs the action through the registered flows.
func (h *Host) ExecuteAction(ctx context.Context, a host.Action, rec host.Record) (host.Result, error) {
	return h.Execute(ctx, a, rec)
}

// Create makes a record with a fresh ID. It is stored on Commit.
func (h *Host) Create(_ context.Context, entity string) (host.MutableRecord, error) {
	if entity == "" {
		return nil, host.ErrUnknownEntity
	}
	return host.NewObject(entity, uuid.NewString(), nil), nil
}

// Commit stores the record without notifying subscribers.
func (h *Host) Commit(_ context.Context, rec host.MutableRecord) error {
	obj, ok := rec.(*host.Object)
	if !ok {
		return fmt.Errorf("memhost: cannot commit %T", rec)
	}
	h.store(obj)
	return nil
}

// IsPersistable reports whether the entity was defined as persistable.
func (h *Host) IsPersistable(entity string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.persistable[entity]
}
