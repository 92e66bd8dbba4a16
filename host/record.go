package host

import (
	"fmt"
	"sort"
)

// Record is a read-only view of one host-owned object.
type Record interface {
	// ID returns the unique identifier of the record.
	ID() string

	// Entity returns the entity name (e.g., "Sales.Region").
	Entity() string

	// Has reports whether the record exposes the attribute or reference.
	Has(attr string) bool

	// Get returns the attribute value, or nil when absent.
	Get(attr string) any

	// Reference returns the single ID stored in a reference, or "".
	Reference(name string) string

	// References returns all IDs stored in a reference set.
	References(name string) []string
}

// MutableRecord is a record that can be filled before it is committed.
type MutableRecord interface {
	Record

	// Set stores an attribute value.
	Set(attr string, value any)

	// AddReference appends one ID to a reference.
	AddReference(name, id string)

	// AddReferences appends IDs to a reference set.
	AddReferences(name string, ids []string)
}

// Object is the map-backed Record implementation shared by the hosts.
// An Object is not safe for concurrent mutation; hosts hand out clones.
type Object struct {
	id     string
	entity string
	attrs  map[string]any
}

// NewObject creates an Object. The attrs map is copied.
func NewObject(entity, id string, attrs map[string]any) *Object {
	o := &Object{
		id:     id,
		entity: entity,
		attrs:  make(map[string]any, len(attrs)),
	}
	for k, v := range attrs {
		o.attrs[k] = v
	}
	return o
}

func (o *Object) ID() string     { return o.id }
func (o *Object) Entity() string { return o.entity }

func (o *Object) Has(attr string) bool {
	_, ok := o.attrs[attr]
	return ok
}

func (o *Object) Get(attr string) any {
	return o.attrs[attr]
}

// Reference returns the first ID held by the named reference.
func (o *Object) Reference(name string) string {
	switch v := o.attrs[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// References returns a copy of the IDs held by the named reference. Single
// IDs and decoded []any lists are accepted.
func (o *Object) References(name string) []string {
	switch v := o.attrs[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	}
	return nil
}

func (o *Object) Set(attr string, value any) {
	o.attrs[attr] = value
}

func (o *Object) AddReference(name, id string) {
	o.AddReferences(name, []string{id})
}

// AddReferences appends ids to the named reference.
func (o *Object) AddReferences(name string, ids []string) {
	o.attrs[name] = append(o.References(name), ids...)
}

// Attributes returns the attribute names in sorted order.
func (o *Object) Attributes() []string {
	names := make([]string, 0, len(o.attrs))
	for k := range o.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the attribute map.
func (o *Object) Values() map[string]any {
	out := make(map[string]any, len(o.attrs))
	for k, v := range o.attrs {
		out[k] = v
	}
	return out
}

// Clone returns a deep enough copy for handing out to readers.
func (o *Object) Clone() *Object {
	c := NewObject(o.entity, o.id, nil)
	for k, v := range o.attrs {
		if ids, ok := v.([]string); ok {
			v = append([]string(nil), ids...)
		}
		c.attrs[k] = v
	}
	return c
}

func (o *Object) String() string {
	return fmt.Sprintf("%s#%s", o.entity, o.id)
}

// IDs returns the identifiers of the records, skipping records without one.
func IDs(recs []Record) []string {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if r != nil && r.ID() != "" {
			ids = append(ids, r.ID())
		}
	}
	return ids
}
