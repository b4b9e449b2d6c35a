package schema

import "encoding/json"

// Class says what kind of records a dynamic table holds.
type Class string

const (
	// ClassDomain tables hold records keyed by an entity key with no
	// owner.
	ClassDomain Class = "domain"

	// ClassUserContext tables hold per-user records and must declare a
	// refUserId field in the definition.
	ClassUserContext Class = "user_context"
)

// RefUserField is the field a user_context definition must contain.
// It compiles to an ordinary column like any other field; the
// ref_user_id system column is separate and always present for
// user_context tables.
const RefUserField = "refUserId"

// FieldDef declares one user field of a dynamic table.
type FieldDef struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Nullable bool            `json:"nullable,omitempty"`
	Default  json.RawMessage `json:"default,omitempty"`
}

// Definition is a user-supplied schema for one dynamic table.
//
// A definition is immutable once stored except for whole-record
// replacement on re-registration: the registry row is overwritten but
// an already-created physical table is never altered (no migration
// path for field changes).
type Definition struct {
	SchemaID string     `json:"schema_id"`
	Version  string     `json:"version"`
	Class    Class      `json:"class"`
	Fields   []FieldDef `json:"fields"`
}
