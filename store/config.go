package store

import (
	"log/slog"

	"github.com/jacentio/dyntable/validation"
)

// SortType orders an axis by its derived sort key.
type SortType string

const (
	SortNone SortType = "none"
	SortAsc  SortType = "asc"
	SortDesc SortType = "desc"
)

// TableIDs identifies the slice of the table a hook is about.
type TableIDs struct {
	Context string
	Rows    []string
	Columns []string
	Entries []string
}

// Options holds configuration for a TableStore.
type Options struct {
	// EntriesLoader is asked to load entries for the given rows and columns.
	// clean=true means the result replaces the entry collection.
	// When nil, the store never requests entries.
	EntriesLoader func(ids TableIDs, clean bool)

	// OnSelectionChange receives the context and the selected row IDs.
	OnSelectionChange func(ids TableIDs)

	// ReloadOnColumnChange reloads the entries of a column when it changes.
	// Default: true
	ReloadOnColumnChange bool

	// ReloadOnRowChange reloads the entries of a row when it changes.
	// Default: true
	ReloadOnRowChange bool

	// ValidationMessages seeds the message list. Any fatal message disables
	// the store.
	ValidationMessages []validation.Message

	// SortRows and SortColumns order the projections.
	// Default: SortNone
	SortRows    SortType
	SortColumns SortType

	// Logger receives debug and warning output. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultOptions returns options that reload on every axis change and keep
// insertion order.
func DefaultOptions() Options {
	return Options{
		ReloadOnColumnChange: true,
		ReloadOnRowChange:    true,
		SortRows:             SortNone,
		SortColumns:          SortNone,
	}
}

// validate fills in defaults for unset or unknown values.
func (o *Options) validate() {
	o.SortRows = o.SortRows.normalize()
	o.SortColumns = o.SortColumns.normalize()
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (t SortType) normalize() SortType {
	switch t {
	case SortAsc, SortDesc:
		return t
	}
	return SortNone
}
