package host

import (
	"context"
	"fmt"
	"sync"
)

// OpenAs is the location a page opens in.
type OpenAs string

const (
	OpenContent OpenAs = "content"
	OpenPopup   OpenAs = "popup"
	OpenModal   OpenAs = "modal"
)

// Page names a page to open for a record.
type Page struct {
	Name   string
	OpenAs OpenAs
}

// Action is a click, selection, or data action. At most one of the fields is
// expected to be set; Microflow wins over Nanoflow, and both win over Page.
type Action struct {
	Microflow string
	Nanoflow  string
	Page      *Page
}

// Empty reports whether the action has nothing to run.
func (a Action) Empty() bool {
	return a.Microflow == "" && a.Nanoflow == "" && (a.Page == nil || a.Page.Name == "")
}

func (a Action) String() string {
	switch {
	case a.Microflow != "":
		return "microflow:" + a.Microflow
	case a.Nanoflow != "":
		return "nanoflow:" + a.Nanoflow
	case a.Page != nil && a.Page.Name != "":
		return "page:" + a.Page.Name
	}
	return "nothing"
}

// Result is the outcome of a flow: a scalar value, records, or nothing.
type Result struct {
	Value   any
	Records []Record
}

// Text renders the scalar value as a title string.
func (r Result) Text() string {
	switch v := r.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// FlowFunc runs a named business-logic flow against a record.
type FlowFunc func(ctx context.Context, rec Record) (Result, error)

// PageFunc opens a page for a record.
type PageFunc func(ctx context.Context, page Page, rec Record) error

// Dispatcher executes actions against registered flows and a page opener.
// It is safe for concurrent use.
type Dispatcher struct {
	mu    sync.RWMutex
	flows map[string]FlowFunc
	pages PageFunc
}

// NewDispatcher creates a Dispatcher with no flows.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{flows: make(map[string]FlowFunc)}
}

// RegisterFlow binds a microflow or nanoflow name to its implementation.
func (d *Dispatcher) RegisterFlow(name string, fn FlowFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flows[name] = fn
}

// SetPageOpener installs the function used for page actions.
func (d *Dispatcher) SetPageOpener(fn PageFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages = fn
}

// Execute runs the action against rec. Flows run without the dispatcher
// lock held, so they may execute further actions or register flows.
func (d *Dispatcher) Execute(ctx context.Context, a Action, rec Record) (Result, error) {
	name := a.Microflow
	if name == "" {
		name = a.Nanoflow
	}

	d.mu.RLock()
	fn, ok := d.flows[name]
	pages := d.pages
	d.mu.RUnlock()

	if name != "" {
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrFlowNotFound, name)
		}
		return fn(ctx, rec)
	}
	if a.Page != nil && a.Page.Name != "" {
		if pages == nil {
			return Result{}, ErrNoPageOpener
		}
		return Result{}, pages(ctx, *a.Page, rec)
	}
	return Result{}, ErrEmptyAction
}
