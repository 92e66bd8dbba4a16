package dynamo

import "sort"

// Entity describes one entity stored in the records table.
type Entity struct {
	// Name is the entity name (e.g., "Sales.Region").
	Name string

	// Persistable entities are stored durably. Records of other entities
	// are committed with a TTL.
	Persistable bool
}

// Registry holds the entities the host knows about.
type Registry struct {
	entities map[string]Entity
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]Entity)}
}

// Register adds or replaces an entity.
func (r *Registry) Register(e Entity) {
	r.entities[e.Name] = e
}

// Lookup returns the entity with the given name.
func (r *Registry) Lookup(name string) (Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// IsPersistable reports whether the entity is registered as persistable.
func (r *Registry) IsPersistable(name string) bool {
	return r.entities[name].Persistable
}

// Entities returns all registered entities sorted by name.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
