// Package schema parses, validates, and compiles user-supplied schema
// definitions for dynamic record tables.
//
// A definition flows through three stages:
//
//	Parse    - structural check against an embedded CUE contract,
//	           then decode into a Definition
//	Validate - semantic rules (blank identifiers, duplicate fields,
//	           class tags, the refUserId requirement)
//	Compile  - pure translation into a TableSpec holding the physical
//	           column set and index list
//
// Compile never touches a database; the engine executes the rendered
// DDL inside its own transaction. Registration is idempotent for an
// unchanged definition, but a re-registration with different fields
// does not alter an existing table (schema evolution is undefined
// behavior, deliberately left unguarded).
package schema
