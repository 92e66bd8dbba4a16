package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jacentio/dyntable/host"
)

// EmptyTitle is the placeholder shown for a blank or failed title.
const EmptyTitle = " "

// Kind names the axis an object belongs to.
type Kind string

const (
	KindRow    Kind = "Row"
	KindColumn Kind = "Column"
	KindEntry  Kind = "Entry"
)

// TitleFunc resolves a title asynchronously, e.g. by running a flow.
type TitleFunc func(ctx context.Context, rec host.Record) (string, error)

// StaticTitleFunc derives a title synchronously, e.g. from an attribute.
type StaticTitleFunc func(rec host.Record) string

// ClassFunc derives a class name.
type ClassFunc func(rec host.Record) string

// SortFunc derives a sort key. Numbers, strings, times and nil are ordered.
type SortFunc func(rec host.Record) any

// GetMethods bundles the derivations for one axis. StaticTitle wins over
// Title when both are set.
type GetMethods struct {
	Title       TitleFunc
	StaticTitle StaticTitleFunc
	Class       ClassFunc
	Sort        SortFunc
}

// ChangeFunc handles a change notification for id. The handler calls done
// with removed=true when the record no longer exists.
type ChangeFunc func(id string, done func(removed bool))

// Subscriber registers change callbacks for records.
type Subscriber interface {
	Subscribe(id string, fn func(id string)) host.Subscription
	Unsubscribe(sub host.Subscription)
}

// env carries what an object borrows from its store.
type env struct {
	ctx     context.Context
	subs    Subscriber
	pending *sync.WaitGroup
	logger  *slog.Logger
}

// Object wraps one host record and keeps its derived fields current.
type Object struct {
	kind     Kind
	rec      host.Record
	id       string
	get      GetMethods
	onChange ChangeFunc
	env      env

	mu         sync.Mutex
	title      string
	emptyTitle bool
	class      string
	sortKey    any
	subs       []host.Subscription
	disposed   bool
	generation uint64
}

func newObject(e env, kind Kind, rec host.Record, onChange ChangeFunc, get GetMethods) *Object {
	o := &Object{
		kind:     kind,
		rec:      rec,
		get:      get,
		onChange: onChange,
		env:      e,
	}
	if rec != nil {
		o.id = rec.ID()
	}

	o.fixTitle()
	o.fixClass()
	o.fixSort()

	if o.id != "" {
		o.resetSubscription()
	}
	return o
}

// ID returns the record identifier.
func (o *Object) ID() string { return o.id }

// Kind returns the axis of the object.
func (o *Object) Kind() Kind { return o.kind }

// Record returns the wrapped record.
func (o *Object) Record() host.Record { return o.rec }

// Title returns the derived title, "" while an asynchronous title is pending.
func (o *Object) Title() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.title
}

// TitleEmpty reports whether the title fell back to EmptyTitle.
func (o *Object) TitleEmpty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.emptyTitle
}

// ClassName returns the derived class name.
func (o *Object) ClassName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.class
}

// SortKey returns the derived sort key.
func (o *Object) SortKey() any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sortKey
}

// Disposed reports whether ClearSubscriptions has run.
func (o *Object) Disposed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disposed
}

// ClearSubscriptions releases every subscription and disposes the object.
// Pending asynchronous titles are dropped. Calling it again is a no-op.
func (o *Object) ClearSubscriptions() {
	o.mu.Lock()
	subs := o.subs
	o.subs = nil
	o.disposed = true
	o.generation++
	o.mu.Unlock()

	for _, sub := range subs {
		o.env.subs.Unsubscribe(sub)
	}
}

func (o *Object) resetSubscription() {
	sub := o.env.subs.Subscribe(o.id, o.handleChange)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed {
		o.env.subs.Unsubscribe(sub)
		return
	}
	o.subs = append(o.subs, sub)
}

func (o *Object) handleChange(id string) {
	if o.Disposed() {
		return
	}
	o.env.logger.Debug("subscription fired", "kind", o.kind, "id", id)
	if o.onChange == nil {
		return
	}
	o.onChange(id, func(removed bool) {
		if removed {
			o.env.logger.Debug("object removed", "kind", o.kind, "id", id)
			return
		}
		o.refresh()
	})
}

// refresh recomputes title, sort key and class.
func (o *Object) refresh() {
	if o.Disposed() {
		return
	}
	o.fixTitle()
	o.fixSort()
	o.fixClass()
}

func (o *Object) fixTitle() {
	switch {
	case o.get.StaticTitle != nil:
		o.mu.Lock()
		o.generation++
		o.setTitleLocked(o.get.StaticTitle(o.rec))
		o.mu.Unlock()
	case o.get.Title != nil:
		o.resolveTitle()
	}
}

func (o *Object) resolveTitle() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	o.env.pending.Add(1)
	go func() {
		defer o.env.pending.Done()

		text, err := o.computeTitle()
		if err != nil {
			o.env.logger.Warn("title resolution failed",
				"kind", o.kind,
				"id", o.id,
				"error", err,
			)
			text = ""
		}

		o.mu.Lock()
		defer o.mu.Unlock()
		if o.disposed || gen != o.generation {
			return
		}
		o.setTitleLocked(text)
	}()
}

// computeTitle runs the title flow, turning a panic into an error.
func (o *Object) computeTitle() (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("title panicked: %v", r)
		}
	}()
	return o.get.Title(o.env.ctx, o.rec)
}

func (o *Object) setTitleLocked(text string) {
	if text == "" {
		o.title = EmptyTitle
		o.emptyTitle = true
		return
	}
	o.title = text
	o.emptyTitle = false
}

func (o *Object) fixClass() {
	if o.get.Class == nil {
		return
	}
	class := o.get.Class(o.rec)
	o.mu.Lock()
	o.class = class
	o.mu.Unlock()
}

func (o *Object) fixSort() {
	if o.get.Sort == nil {
		return
	}
	key := o.get.Sort(o.rec)
	o.mu.Lock()
	o.sortKey = key
	o.mu.Unlock()
}
