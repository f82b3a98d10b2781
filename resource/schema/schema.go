// Package schema describes the attribute surface of a resource type: which
// attributes exist, which are required, and which cannot be changed in place
// on the remote system.
package schema

import "sort"

// An Attr describes a single attribute of a resource type.
type Attr struct {
	// Required attributes must be set before a create is attempted.
	Required bool

	// Immutable attributes cannot be changed in place; a diff that touches
	// one requires replacing the resource.
	Immutable bool

	// Validate holds validation rules in a comma separated list
	// (min=3,oneof=small large). Empty means no validation beyond type.
	Validate string
}

// A Schema describes a resource type.
type Schema struct {
	// Attrs maps attribute names to their definitions. Attributes not listed
	// here are rejected during validation.
	Attrs map[string]Attr

	// CreateBeforeDestroy controls replacement ordering. When true, the
	// remote API tolerates two resources briefly coexisting and the
	// replacement is created before the old resource is destroyed. When
	// false, the old resource is destroyed first, with an availability gap.
	CreateBeforeDestroy bool
}

// Immutable returns true if changing the named attribute forces a
// replacement.
func (s Schema) Immutable(name string) bool {
	return s.Attrs[name].Immutable
}

// A Registry maintains a list of registered resource type schemas.
type Registry struct {
	schemas map[string]Schema
}

// RegistryFromSchemas creates a registry from a predefined list of schemas.
// It is primarily used in tests.
func RegistryFromSchemas(schemas map[string]Schema) *Registry {
	r := &Registry{}
	for n, s := range schemas {
		r.Register(n, s)
	}
	return r
}

// Register adds a new resource type. If another schema with the same type
// name is already registered, it is overwritten.
//
// Not safe for concurrent access.
func (r *Registry) Register(typename string, s Schema) {
	if r.schemas == nil {
		r.schemas = make(map[string]Schema)
	}
	r.schemas[typename] = s
}

// Lookup returns the schema registered for a type name. The second return
// value is false if the type has not been registered.
func (r *Registry) Lookup(typename string) (Schema, bool) {
	s, ok := r.schemas[typename]
	return s, ok
}

// Types returns the type names that have been registered. The results are
// lexicographically sorted.
func (r *Registry) Types() []string {
	tt := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		tt = append(tt, k)
	}
	sort.Strings(tt)
	return tt
}
