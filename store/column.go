package store

import (
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/internal/keys"
)

// Column is a tracked column record.
type Column struct {
	*Object
}

func newColumn(e env, rec host.Record, onChange ChangeFunc, get GetMethods) *Column {
	return &Column{Object: newObject(e, KindColumn, rec, onChange, get)}
}

// Key returns the namespaced key used for the column's cells.
func (c *Column) Key() string { return keys.Column(c.ID()) }
