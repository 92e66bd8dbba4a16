package store

import (
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/internal/keys"
)

// EntryRefs names the references from an entry record to its row and column.
type EntryRefs struct {
	Row    string
	Column string
}

// Entry is a tracked cell record. Its row and column are resolved from the
// record when the entry is created; an update creates a new Entry.
type Entry struct {
	*Object

	row    string
	column string
}

func newEntry(e env, rec host.Record, refs EntryRefs, onChange ChangeFunc, get GetMethods) *Entry {
	en := &Entry{Object: newObject(e, KindEntry, rec, onChange, get)}
	if rec == nil {
		return en
	}
	if refs.Row != "" {
		en.row = rec.Reference(refs.Row)
	}
	if refs.Column != "" {
		en.column = rec.Reference(refs.Column)
	}
	return en
}

// Key returns the namespaced entry identifier.
func (e *Entry) Key() string { return keys.Entry(e.ID()) }

// Row returns the row ID of the entry, "" when unresolved.
func (e *Entry) Row() string { return e.row }

// Column returns the column ID of the entry, "" when unresolved.
func (e *Entry) Column() string { return e.column }
