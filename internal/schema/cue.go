package schema

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

// definitionCUE is the structural contract for a schema definition
// document. Semantic rules (blank ids, duplicate fields, refUserId)
// are applied afterwards by Validate.
const definitionCUE = `
#Field: {
	name:      string
	type:      string
	nullable?: bool
	default?:  _
}

#Definition: {
	schema_id: string
	version:   string
	class:     "domain" | "user_context"
	fields: [...#Field]
}
`

// Parse checks a raw JSON definition document against the CUE
// structural contract, decodes it, and applies the semantic rules.
// Every failure surfaces as a *ValidationError.
func Parse(raw []byte) (*Definition, error) {
	ctx := cuecontext.New()

	contract := ctx.CompileString(definitionCUE)
	if err := contract.Err(); err != nil {
		// The contract is a compile-time constant; failing to build it
		// is a programming error, not bad input.
		return nil, fmt.Errorf("compile definition contract: %w", err)
	}

	expr, err := cuejson.Extract("definition.json", raw)
	if err != nil {
		return nil, &ValidationError{Field: "document", Message: fmt.Sprintf("invalid schema json: %v", err)}
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return nil, &ValidationError{Field: "document", Message: cueerrors.Details(err, nil)}
	}

	unified := contract.LookupPath(cue.ParsePath("#Definition")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &ValidationError{Field: "document", Message: cueerrors.Details(err, nil)}
	}

	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, &ValidationError{Field: "document", Message: fmt.Sprintf("decode definition: %v", err)}
	}

	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}
