package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func emptyReport() map[string]interface{} {
	return map[string]interface{}{
		"controllers":     []interface{}{},
		"tags":            []interface{}{},
		"nodes":           []interface{}{},
		"edges":           []interface{}{},
		"flows":           []interface{}{},
		"dependencies":    []interface{}{},
		"conflicts":       []interface{}{},
		"fsm_states":      []interface{}{},
		"fsm_transitions": []interface{}{},
		"diagnostics":     []interface{}{},
	}
}

func TestCleanReportProducesNoFindings(t *testing.T) {
	engine, err := New("", nil)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	result, err := engine.Evaluate(emptyReport())
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}
	if len(result.Findings) != 0 {
		t.Fatalf("expected no findings, got %#v", result.Findings)
	}
	if result.Summary.TotalFindings != 0 {
		t.Fatalf("expected empty summary, got %#v", result.Summary)
	}
}

func TestConflictAndDiagnosticRulesFire(t *testing.T) {
	engine, err := New("", nil)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	report := emptyReport()
	report["conflicts"] = []interface{}{
		map[string]interface{}{
			"tag":           "MODE",
			"conflict_type": "type_mismatch",
			"controllers":   []interface{}{"PLC1", "PLC2"},
		},
	}
	report["diagnostics"] = []interface{}{
		map[string]interface{}{
			"code":       "UNRESOLVED_REFERENCE",
			"controller": "PLC1",
			"tag":        "GHOST",
			"detail":     "tag GHOST is not declared in any enclosing scope",
		},
		map[string]interface{}{
			"code":       "STRUCTURAL_GAP",
			"controller": "PLC2",
		},
	}

	result, err := engine.Evaluate(report)
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}

	got := map[string]Finding{}
	for _, f := range result.Findings {
		got[f.Rule] = f
	}

	mismatch, ok := got["conflict-type-mismatch"]
	if !ok {
		t.Fatalf("type mismatch rule did not fire: %#v", result.Findings)
	}
	if mismatch.Severity != "error" || mismatch.Tag != "MODE" {
		t.Fatalf("unexpected mismatch finding: %#v", mismatch)
	}

	unresolved, ok := got["unresolved-reference"]
	if !ok {
		t.Fatalf("unresolved reference rule did not fire: %#v", result.Findings)
	}
	if unresolved.Controller != "PLC1" || unresolved.Tag != "GHOST" {
		t.Fatalf("unexpected unresolved finding: %#v", unresolved)
	}

	// The diagnostic without tag/detail still produces a finding.
	if _, ok := got["structural-gap"]; !ok {
		t.Fatalf("structural gap rule did not fire: %#v", result.Findings)
	}

	if result.Summary.TotalFindings != 3 {
		t.Fatalf("expected 3 findings in summary, got %#v", result.Summary)
	}
	if result.Summary.Errors != 2 || result.Summary.Info != 1 {
		t.Fatalf("unexpected severity counts: %#v", result.Summary)
	}
}

func TestMultiWriterRule(t *testing.T) {
	engine, err := New("", nil)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	report := emptyReport()
	report["dependencies"] = []interface{}{
		map[string]interface{}{"tag": "LEVEL", "writer": "PLC1", "readers": []interface{}{"PLC3"}},
		map[string]interface{}{"tag": "LEVEL", "writer": "PLC2", "readers": []interface{}{"PLC3"}},
	}

	result, err := engine.Evaluate(report)
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("expected exactly one multi-writer finding, got %#v", result.Findings)
	}
	f := result.Findings[0]
	if f.Rule != "multi-writer-tag" || f.Tag != "LEVEL" || f.Controller != "PLC1,PLC2" {
		t.Fatalf("unexpected finding: %#v", f)
	}
}

func TestSeverityOverrides(t *testing.T) {
	engine, err := New("", map[string]string{"conflict-type-mismatch": "warning"})
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	report := emptyReport()
	report["conflicts"] = []interface{}{
		map[string]interface{}{
			"tag":           "MODE",
			"conflict_type": "type_mismatch",
			"controllers":   []interface{}{"PLC1", "PLC2"},
		},
	}

	result, err := engine.Evaluate(report)
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}
	if len(result.Findings) != 1 || result.Findings[0].Severity != "warning" {
		t.Fatalf("severity override not applied: %#v", result.Findings)
	}
	if result.Summary.Errors != 0 || result.Summary.Warnings != 1 {
		t.Fatalf("summary not recomputed under overrides: %#v", result.Summary)
	}
}

func TestExtraRulesDirExtendsFindingSets(t *testing.T) {
	dir := t.TempDir()
	rule := `package crossplc.audit

import rego.v1

findings_structural_gap contains f if {
	some c in input.controllers
	c.routines == 0
	f := {
		"rule": "empty-controller",
		"severity": "info",
		"controller": c.name,
		"tag": "",
		"message": "controller declares no routines",
	}
}
`
	if err := os.WriteFile(filepath.Join(dir, "extra.rego"), []byte(rule), 0o644); err != nil {
		t.Fatalf("writing extra rule: %v", err)
	}

	engine, err := New(dir, nil)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	report := emptyReport()
	report["controllers"] = []interface{}{
		map[string]interface{}{"name": "PLC1", "source_type": "rockwell", "programs": 0, "routines": 0},
	}

	result, err := engine.Evaluate(report)
	if err != nil {
		t.Fatalf("evaluating: %v", err)
	}
	if len(result.Findings) != 1 || result.Findings[0].Rule != "empty-controller" {
		t.Fatalf("extra rule did not fire: %#v", result.Findings)
	}
}
