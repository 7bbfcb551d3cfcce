package domain

import "sort"

// Entity is a typed domain object built from a coerced Record
type Entity struct {
	Kind string

	attributes   Record
	associations map[string]any
}

// NewEntity creates an entity of kind from already coerced attributes
func NewEntity(kind string, attrs Record) *Entity {
	if attrs == nil {
		attrs = Record{}
	}
	return &Entity{
		Kind:         kind,
		attributes:   attrs,
		associations: make(map[string]any),
	}
}

// ID returns the "id" attribute, or nil. Relations declared with another
// key read it with Get.
func (e *Entity) ID() any {
	return e.attributes[DefaultKey]
}

// Get returns an attribute value
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.attributes[name]
	return v, ok
}

// Set assigns an attribute value
func (e *Entity) Set(name string, value any) {
	e.attributes[name] = value
}

// Attributes returns a copy of the entity's attributes
func (e *Entity) Attributes() Record {
	return e.attributes.Clone()
}

// SetAssociation writes an association slot. value is nil, *Entity or []*Entity.
func (e *Entity) SetAssociation(name string, value any) {
	e.associations[name] = value
}

// Association returns an association slot and whether it was loaded
func (e *Entity) Association(name string) (any, bool) {
	v, ok := e.associations[name]
	return v, ok
}

// One returns a to-one association, nil when unloaded or absent
func (e *Entity) One(name string) *Entity {
	v, _ := e.associations[name].(*Entity)
	return v
}

// Many returns a to-many association, nil when unloaded
func (e *Entity) Many(name string) []*Entity {
	v, _ := e.associations[name].([]*Entity)
	return v
}

// Loaded lists the association names that have been written, sorted
func (e *Entity) Loaded() []string {
	names := make([]string, 0, len(e.associations))
	for name := range e.associations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
