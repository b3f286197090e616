package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schema types the manifest fields. Value rules such as positive counts are
// left to Validate so both formats report the same errors.
const schema = `
#Item: {
	template: string
	count:    int
}

#Manifest: {
	name:         string
	description?: string
	scope?:       "suite" | "test"
	inject?:      bool
	fixtures:     [...#Item]
}
`

// ParseCUE compiles, type-checks and validates a CUE manifest.
// filename is used in error positions only.
func ParseCUE(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()

	def := ctx.CompileString(schema, cue.Filename("manifest-schema.cue")).
		LookupPath(cue.ParsePath("#Manifest"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %s", cueerrors.Details(err, nil))
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid manifest: %s", cueerrors.Details(err, nil))
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}
