// Package schema builds, once per relation, the table that coerces raw
// stored records into typed attribute mappings.
//
// A Schema is frozen after Build. Call either returns every known key
// coerced or fails with a *domain.CoercionError; it never returns a
// partial mapping. Keys the schema does not know are dropped.
package schema

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/spf13/cast"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
)

// Association describes a relation-level association for coercion purposes
type Association struct {
	Name   string
	Target string // kind registered in the Registry
	Many   bool
}

// TranslateFunc maps a legacy column name to its attribute name
type TranslateFunc func(column string) (attribute string, ok bool)

// Rename builds a TranslateFunc from a column → attribute map
func Rename(mapping map[string]string) TranslateFunc {
	return func(column string) (string, bool) {
		attr, ok := mapping[column]
		return attr, ok
	}
}

// Definition is the input to Build
type Definition struct {
	Kind         string
	Columns      map[string]Type
	Associations []Association
	Translate    TranslateFunc
}

type entry struct {
	column    string
	attribute string
	typeName  string
	coerce    func(any) (any, error)
	nested    bool
}

// Schema is the frozen coercion table of one relation
type Schema struct {
	kind    string
	entries []*entry // sorted by attribute
	byName  map[string]*entry
}

// Build validates def and computes its coercion table. Association targets
// are resolved through reg when values are coerced, so kinds that refer to
// each other can be registered in any order.
func Build(reg *Registry, def Definition) (*Schema, error) {
	s := &Schema{
		kind:   def.Kind,
		byName: make(map[string]*entry, len(def.Columns)+len(def.Associations)),
	}

	for column, typ := range def.Columns {
		if typ == nil {
			return nil, errors.Newf("%s: column %s has no type", def.Kind, column)
		}
		attr := column
		if def.Translate != nil {
			if translated, ok := def.Translate(column); ok && translated != "" {
				attr = translated
			}
		}
		if err := s.add(&entry{column: column, attribute: attr, typeName: typ.Name(), coerce: typ.Coerce}); err != nil {
			return nil, err
		}
	}

	for _, assoc := range def.Associations {
		if assoc.Name == "" || assoc.Target == "" {
			return nil, errors.Newf("%s: association needs a name and a target", def.Kind)
		}
		if reg == nil {
			return nil, errors.Newf("%s: association %s needs a registry", def.Kind, assoc.Name)
		}
		e := &entry{
			column:    assoc.Name,
			attribute: assoc.Name,
			typeName:  assoc.Target,
			coerce:    associationCoercion(reg, assoc),
			nested:    true,
		}
		if assoc.Many {
			e.typeName = "[]" + assoc.Target
		}
		if err := s.add(e); err != nil {
			return nil, err
		}
	}

	sort.Slice(s.entries, func(i, j int) bool {
		return s.entries[i].attribute < s.entries[j].attribute
	})
	return s, nil
}

func (s *Schema) add(e *entry) error {
	if _, exists := s.byName[e.attribute]; exists {
		return errors.Newf("%s: attribute %s declared twice", s.kind, e.attribute)
	}
	s.entries = append(s.entries, e)
	s.byName[e.attribute] = e
	return nil
}

// Kind returns the relation kind the schema was built for
func (s *Schema) Kind() string { return s.kind }

// IsAttribute reports whether name is in the coercion table
func (s *Schema) IsAttribute(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Column returns the stored column name for attribute. Associations and
// unknown names report false.
func (s *Schema) Column(attribute string) (string, bool) {
	e, ok := s.byName[attribute]
	if !ok || e.nested {
		return "", false
	}
	return e.column, true
}

// Attributes returns the attribute names in sorted order
func (s *Schema) Attributes() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.attribute
	}
	return names
}

// Call coerces raw into a mapping of known attributes. nil yields an empty
// mapping. A raw key matches an entry by column name, or by attribute name
// when the column is absent.
func (s *Schema) Call(raw domain.Record) (domain.Record, error) {
	out := make(domain.Record, len(raw))
	if raw == nil {
		return out, nil
	}

	for _, e := range s.entries {
		v, ok := raw[e.column]
		if !ok {
			v, ok = raw[e.attribute]
		}
		if !ok {
			continue
		}
		if v == nil {
			out[e.attribute] = nil
			continue
		}
		coerced, err := e.coerce(v)
		if err != nil {
			return nil, errors.WithStack(&domain.CoercionError{
				Attribute: e.attribute,
				Value:     v,
				Type:      e.typeName,
				Cause:     err,
			})
		}
		out[e.attribute] = coerced
	}
	return out, nil
}

// Entity coerces raw and wraps it as an entity of the schema's kind
func (s *Schema) Entity(raw domain.Record) (*domain.Entity, error) {
	attrs, err := s.Call(raw)
	if err != nil {
		return nil, err
	}
	return domain.NewEntity(s.kind, attrs), nil
}

func associationCoercion(reg *Registry, assoc Association) func(any) (any, error) {
	one := func(v any) (*domain.Entity, error) {
		if e, ok := v.(*domain.Entity); ok {
			if e.Kind != assoc.Target {
				return nil, fmt.Errorf("entity of kind %s, want %s", e.Kind, assoc.Target)
			}
			return e, nil
		}
		target, ok := reg.Lookup(assoc.Target)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownKind, "%q", assoc.Target)
		}
		raw, err := toRecord(v)
		if err != nil {
			return nil, err
		}
		return target.Entity(raw)
	}

	if !assoc.Many {
		return func(v any) (any, error) { return one(v) }
	}

	return func(v any) (any, error) {
		items, err := toItems(v)
		if err != nil {
			return nil, err
		}
		out := make([]*domain.Entity, 0, len(items))
		for i, item := range items {
			e, err := one(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	}
}

func toRecord(v any) (domain.Record, error) {
	if r, ok := v.(domain.Record); ok {
		return r, nil
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, err
	}
	return domain.Record(m), nil
}

func toItems(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case []*domain.Entity:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%T is not a sequence", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
