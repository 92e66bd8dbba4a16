package store

import (
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/internal/keys"
)

// RowOptions controls how row records expose their tree structure.
type RowOptions struct {
	// ChildRef is a reference set on the row listing its children.
	ChildRef string

	// HasChildAttr is a boolean attribute flagging rows with children that
	// are loaded on expansion.
	HasChildAttr string

	// Parent is the row ID the batch is nested under, "" for top level.
	Parent string
}

// Row is a tracked row record.
type Row struct {
	*Object

	expandable  bool
	references  []string
	hasChildren *bool
	parent      string
	selected    bool
}

func newRow(e env, rec host.Record, ropts RowOptions, onChange ChangeFunc, get GetMethods) *Row {
	r := &Row{
		Object: newObject(e, KindRow, rec, onChange, get),
		parent: ropts.Parent,
	}
	if rec == nil {
		return r
	}

	var refs []string
	if ropts.ChildRef != "" && rec.Has(ropts.ChildRef) {
		refs = rec.References(ropts.ChildRef)
	}

	if len(refs) > 0 {
		r.expandable = true
		r.references = refs
	} else if ropts.HasChildAttr != "" && rec.Has(ropts.HasChildAttr) {
		v, _ := rec.Get(ropts.HasChildAttr).(bool)
		r.hasChildren = &v
		r.expandable = v
	}
	return r
}

// Key returns the projection key of the row.
func (r *Row) Key() string { return r.ID() }

// NamespacedID returns the namespaced row identifier.
func (r *Row) NamespacedID() string { return keys.Row(r.ID()) }

// Parent returns the parent row ID, "" for top-level rows.
func (r *Row) Parent() string { return r.parent }

// Expandable reports whether the row declares a (possibly unloaded) child list.
func (r *Row) Expandable() bool { return r.expandable }

// References returns the child IDs referenced by the row.
func (r *Row) References() []string { return append([]string(nil), r.references...) }

// HasChildren returns the has-children flag, nil when not sourced.
func (r *Row) HasChildren() *bool { return r.hasChildren }

// Selected reports the selection flag.
func (r *Row) Selected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

func (r *Row) setSelected(state bool) {
	r.mu.Lock()
	r.selected = state
	r.mu.Unlock()
}
