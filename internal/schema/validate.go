package schema

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed schema definition.
type ValidationError struct {
	// Field names the offending part of the definition ("schema_id",
	// "fields", "fields.name", "class").
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %s: %s", e.Field, e.Message)
}

// Validate checks the semantic rules for a definition:
//
//   - schema_id and version must be non-blank
//   - fields must be non-empty, names non-blank and unique
//     (case-sensitive exact match)
//   - class must be domain or user_context
//   - user_context definitions must declare a refUserId field
func Validate(def *Definition) error {
	if strings.TrimSpace(def.SchemaID) == "" {
		return &ValidationError{Field: "schema_id", Message: "schema_id is required"}
	}
	if strings.TrimSpace(def.Version) == "" {
		return &ValidationError{Field: "version", Message: "version is required"}
	}
	if def.Class != ClassDomain && def.Class != ClassUserContext {
		return &ValidationError{
			Field:   "class",
			Message: fmt.Sprintf("invalid class %q (expected domain|user_context)", def.Class),
		}
	}
	if len(def.Fields) == 0 {
		return &ValidationError{Field: "fields", Message: "fields[] is required"}
	}

	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return &ValidationError{Field: "fields.name", Message: "each field requires a non-empty name"}
		}
		if seen[f.Name] {
			return &ValidationError{
				Field:   "fields.name",
				Message: fmt.Sprintf("duplicate field name %q in schema_id=%s", f.Name, def.SchemaID),
			}
		}
		seen[f.Name] = true
	}

	if def.Class == ClassUserContext && !seen[RefUserField] {
		return &ValidationError{
			Field:   "fields",
			Message: fmt.Sprintf("user_context schema_id=%s must include field name=%s", def.SchemaID, RefUserField),
		}
	}

	return nil
}
