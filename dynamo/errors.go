package dynamo

import "errors"

// ErrNotObject is returned when Commit receives a record it can't encode.
var ErrNotObject = errors.New("dyntable: record is not a *host.Object")
