package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/weftlabs/weft/internal/ir"
)

// bundleSchema is the CUE shape every bundle document must satisfy.
// Validation happens on the decoded YAML before any conversion, so shape
// mistakes surface with the field path, not as a downstream conversion
// error. Field values are restricted to the log's value model: no floats,
// no nulls.
const bundleSchema = `
#Scalar: string | int | bool
#Literal: #Scalar | [...#Literal] | {[string]: #Literal}

#Field: {
	bind?:    string
	literal?: #Literal
}

#When: {
	concept: string
	action:  string
	input?: {[string]: #Field}
	output?: {[string]: #Field}
}

#ThenField: {
	var?:     string
	literal?: #Literal
}

#Then: {
	concept: string
	action:  string
	input?: {[string]: #ThenField}
}

#Sync: {
	name:   string
	when:   [...#When] & [_, ...]
	where?: string
	then:   [...#Then] & [_, ...]
}

#Action: {
	name:      string
	params?:   [...string]
	variants?: [...string]
}

#Concept: {
	name:         string
	uri:          string
	annotations?: [...string]
	actions:      [...#Action]
}

#Bundle: {
	concepts?: [...#Concept]
	syncs?:    [...#Sync]
}
`

// Bundle is a loaded and validated set of concept manifests and compiled
// syncs, the unit the CLI feeds into the index and engine.
type Bundle struct {
	Concepts []ir.ConceptManifest
	Syncs    []ir.CompiledSync
}

// yaml mirrors of the bundle document.

type bundleDoc struct {
	Concepts []conceptDoc `yaml:"concepts"`
	Syncs    []syncDoc    `yaml:"syncs"`
}

type conceptDoc struct {
	Name        string      `yaml:"name"`
	URI         string      `yaml:"uri"`
	Annotations []string    `yaml:"annotations"`
	Actions     []actionDoc `yaml:"actions"`
}

type actionDoc struct {
	Name     string   `yaml:"name"`
	Params   []string `yaml:"params"`
	Variants []string `yaml:"variants"`
}

type syncDoc struct {
	Name  string    `yaml:"name"`
	When  []whenDoc `yaml:"when"`
	Where string    `yaml:"where"`
	Then  []thenDoc `yaml:"then"`
}

type whenDoc struct {
	Concept string              `yaml:"concept"`
	Action  string              `yaml:"action"`
	Input   map[string]fieldDoc `yaml:"input"`
	Output  map[string]fieldDoc `yaml:"output"`
}

type fieldDoc struct {
	Bind    string `yaml:"bind"`
	Literal any    `yaml:"literal"`
}

type thenDoc struct {
	Concept string                  `yaml:"concept"`
	Action  string                  `yaml:"action"`
	Input   map[string]thenFieldDoc `yaml:"input"`
}

type thenFieldDoc struct {
	Var     string `yaml:"var"`
	Literal any    `yaml:"literal"`
}

// LoadBundle reads, schema-checks, and converts a YAML bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	return ParseBundle(data)
}

// ParseBundle parses and validates bundle bytes.
func ParseBundle(data []byte) (*Bundle, error) {
	// Generic decode first, for schema validation against the raw shape.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse bundle yaml: %w", err)
	}
	if err := validateBundleShape(raw); err != nil {
		return nil, err
	}

	var doc bundleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return convertBundle(doc)
}

// validateBundleShape unifies the decoded document with the CUE schema.
func validateBundleShape(raw any) error {
	if raw == nil {
		return fmt.Errorf("bundle is empty")
	}
	ctx := cuecontext.New()

	schema := ctx.CompileString(bundleSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile bundle schema: %w", err)
	}
	bundle := schema.LookupPath(cue.ParsePath("#Bundle"))
	if err := bundle.Err(); err != nil {
		return fmt.Errorf("lookup bundle schema: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode bundle document: %w", err)
	}

	unified := bundle.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("bundle does not match schema: %w", err)
	}
	return nil
}

func convertBundle(doc bundleDoc) (*Bundle, error) {
	out := &Bundle{}

	for _, c := range doc.Concepts {
		m := ir.ConceptManifest{
			Name:        c.Name,
			URI:         c.URI,
			Annotations: c.Annotations,
		}
		for _, a := range c.Actions {
			m.Actions = append(m.Actions, ir.ActionSig{
				Name:     a.Name,
				Params:   a.Params,
				Variants: a.Variants,
			})
		}
		out.Concepts = append(out.Concepts, m)
	}

	for _, s := range doc.Syncs {
		sync, err := convertSync(s)
		if err != nil {
			return nil, fmt.Errorf("sync %q: %w", s.Name, err)
		}
		out.Syncs = append(out.Syncs, sync)
	}

	return out, nil
}

func convertSync(doc syncDoc) (ir.CompiledSync, error) {
	sync := ir.CompiledSync{Name: doc.Name, Where: doc.Where}

	for _, w := range doc.When {
		clause := ir.WhenPattern{Concept: w.Concept, Action: w.Action}
		var err error
		if clause.Input, err = convertFields(w.Input); err != nil {
			return ir.CompiledSync{}, fmt.Errorf("when %s input: %w", clause.Ref(), err)
		}
		if clause.Output, err = convertFields(w.Output); err != nil {
			return ir.CompiledSync{}, fmt.Errorf("when %s output: %w", clause.Ref(), err)
		}
		sync.When = append(sync.When, clause)
	}

	for _, t := range doc.Then {
		clause := ir.ThenClause{Concept: t.Concept, Action: t.Action}
		if len(t.Input) > 0 {
			clause.Input = make(map[string]ir.ThenField, len(t.Input))
			for name, f := range t.Input {
				field := ir.ThenField{Var: f.Var}
				if f.Var == "" {
					lit, err := ir.FromAny(f.Literal)
					if err != nil {
						return ir.CompiledSync{}, fmt.Errorf("then %s/%s field %q: %w", t.Concept, t.Action, name, err)
					}
					field.Literal = lit
				}
				clause.Input[name] = field
			}
		}
		sync.Then = append(sync.Then, clause)
	}

	return sync, nil
}

func convertFields(fields map[string]fieldDoc) (map[string]ir.FieldPattern, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]ir.FieldPattern, len(fields))
	for name, f := range fields {
		p := ir.FieldPattern{Bind: f.Bind}
		if f.Bind == "" {
			lit, err := ir.FromAny(f.Literal)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			p.Literal = lit
		}
		out[name] = p
	}
	return out, nil
}
