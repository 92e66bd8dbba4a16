package host

import "errors"

var (
	// ErrNotFound is returned when a record doesn't exist or was deleted.
	ErrNotFound = errors.New("dyntable: record not found")

	// ErrFlowNotFound is returned when an action names a flow that isn't registered.
	ErrFlowNotFound = errors.New("dyntable: flow not registered")

	// ErrEmptyAction is returned when an action has no flow and no page.
	ErrEmptyAction = errors.New("dyntable: action is empty")

	// ErrNoPageOpener is returned when a page action runs without a page opener.
	ErrNoPageOpener = errors.New("dyntable: no page opener configured")

	// ErrUnknownEntity is returned when an entity has no backing storage.
	ErrUnknownEntity = errors.New("dyntable: unknown entity")
)
