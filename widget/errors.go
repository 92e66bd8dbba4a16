package widget

import "errors"

var (
	// ErrMissingHelper is returned when the helper entity or its row and
	// column references aren't configured.
	ErrMissingHelper = errors.New("dyntable: missing helper entity and/or references")

	// ErrNotExpandable is returned when a row has no children to load.
	ErrNotExpandable = errors.New("dyntable: row is not expandable")
)
