// Package data implements the self-describing interchange format for
// storage-management value types. Entities serialize to a tagged JSON
// mapping carrying their type name, so the receiving side can rebuild
// live typed values without compile-time knowledge of what was sent.
package data

// ClassKey is the reserved mapping key that carries an entity's type name
// in its serialized form. No entity uses it as a field name.
const ClassKey = "class"

// field is one entry of an entity's flat field schema. The encoder walks
// this list instead of introspecting struct members, so the serialized
// field set is exactly what the matching builder expects back.
type field struct {
	name  string
	value any
}

// Entity is satisfied by every value type that participates in the tagged
// serialization contract. The fields method is unexported on purpose: the
// entity set is closed, and every member registers a builder alongside its
// definition.
type Entity interface {
	// Class returns the tag embedded in the serialized mapping.
	Class() string

	fields() []field
}
