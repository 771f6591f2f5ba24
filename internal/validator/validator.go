package validator

// The CUE validator is the contract guard between front ends and the
// analysis core. Front ends run out of process and hand over JSON; a
// renamed field or mistyped value would otherwise surface as empty
// analysis results instead of an error. Validation fails the load
// immediately with the exact path that is wrong.
//
// When validation fails, fix the front end or the schema, never the
// validator: it only states the contract.

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed ir_schema.cue
var irSchemaFS embed.FS

//go:embed report_schema.cue
var reportSchemaFS embed.FS

// Validator validates controller IR documents against the embedded
// CUE contract before they enter the analysis core.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a Validator with the embedded IR schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := irSchemaFS.ReadFile("ir_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded ir schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling ir schema: %w", schema.Err())
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate checks that a controller document conforms to the IR
// contract. Returns nil if valid, or an error naming what failed.
func (v *Validator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling controller to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates raw controller JSON directly against the
// contract, before any unmarshaling into Go types.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath("#Controller"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #Controller definition: %w", def.Err())
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("ir schema validation failed: %w", err)
	}
	return nil
}

// ValidationErrors returns every validation error for a controller
// document, one message per failing path.
func (v *Validator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}

	def := v.schema.LookupPath(cue.ParsePath("#Controller"))
	if def.Err() != nil {
		return []string{fmt.Sprintf("schema lookup error: %v", def.Err())}
	}

	unified := def.Unify(dataValue)
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// ReportValidator validates the relational report against the output
// schema, so downstream consumers can rely on its shape.
type ReportValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewReportValidator creates a validator for analysis reports.
func NewReportValidator() (*ReportValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := reportSchemaFS.ReadFile("report_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading report schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling report schema: %w", schema.Err())
	}

	return &ReportValidator{ctx: ctx, schema: schema}, nil
}

// Validate checks that report tables conform to the output schema.
func (v *ReportValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling report to JSON: %w", err)
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling report as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath("#Tables"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #Tables definition: %w", def.Err())
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("report schema validation failed: %w", err)
	}
	return nil
}
