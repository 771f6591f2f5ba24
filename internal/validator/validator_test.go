package validator

import (
	"testing"

	"github.com/iotrustlab/CrossPLC/internal/ir"
)

func validController() map[string]interface{} {
	return map[string]interface{}{
		"name":        "PLC1",
		"source_type": "rockwell",
		"programs": []interface{}{
			map[string]interface{}{
				"name": "Main",
				"routines": []interface{}{
					map[string]interface{}{
						"name": "R1",
						"body": []interface{}{
							map[string]interface{}{
								"kind":   "assignment",
								"target": map[string]interface{}{"tag": "MV101", "member": "CMD"},
								"value":  map[string]interface{}{"text": "1", "literal": "1"},
							},
						},
					},
				},
			},
		},
		"tags": []interface{}{
			map[string]interface{}{
				"name":      "MV101",
				"data_type": "MV",
				"kind":      "struct",
				"scope":     "controller",
			},
		},
		"valid":       true,
		"has_overlay": false,
	}
}

func TestControllerContractEnforcement(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("creating validator: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		wantErr bool
	}{
		{
			name:    "valid_controller",
			mutate:  func(map[string]interface{}) {},
			wantErr: false,
		},
		{
			name: "unknown_source_type",
			mutate: func(m map[string]interface{}) {
				m["source_type"] = "mitsubishi"
			},
			wantErr: true,
		},
		{
			name: "empty_controller_name",
			mutate: func(m map[string]interface{}) {
				m["name"] = ""
			},
			wantErr: true,
		},
		{
			name: "missing_valid_flag",
			mutate: func(m map[string]interface{}) {
				delete(m, "valid")
			},
			wantErr: true,
		},
		{
			name: "bad_tag_kind",
			mutate: func(m map[string]interface{}) {
				tag := m["tags"].([]interface{})[0].(map[string]interface{})
				tag["kind"] = "word"
			},
			wantErr: true,
		},
		{
			name: "unknown_instruction_kind",
			mutate: func(m map[string]interface{}) {
				body := m["programs"].([]interface{})[0].(map[string]interface{})["routines"].([]interface{})[0].(map[string]interface{})["body"].([]interface{})
				body[0].(map[string]interface{})["kind"] = "goto"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validController()
			tt.mutate(data)
			err := v.Validate(data)
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateMarshaledController(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("creating validator: %v", err)
	}

	c := ir.Controller{
		Name:       "PLC2",
		SourceType: ir.SourceOpenPLC,
		Valid:      true,
		Programs: []ir.Program{{
			Name: "Main",
			Routines: []ir.Routine{{Name: "R1", Body: ir.Body{
				ir.Assignment{
					Target: ir.TagRef{Tag: "ALARM"},
					Value:  ir.Expr{Text: "1", Literal: "1"},
				},
			}}},
		}},
		Tags: []ir.Tag{
			{Name: "ALARM", DataType: "BOOL", Kind: ir.KindBit, Scope: ir.ScopeController},
		},
	}
	if err := v.Validate(c); err != nil {
		t.Fatalf("marshaled controller failed validation: %v", err)
	}
}

func TestValidationErrorsListsFailures(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("creating validator: %v", err)
	}

	data := validController()
	data["source_type"] = "unknown"
	errs := v.ValidationErrors(data)
	if len(errs) == 0 {
		t.Fatalf("expected at least one validation error, got none")
	}

	if errs := v.ValidationErrors(validController()); errs != nil {
		t.Fatalf("expected no errors for valid controller, got %#v", errs)
	}
}

func TestReportContractEnforcement(t *testing.T) {
	v, err := NewReportValidator()
	if err != nil {
		t.Fatalf("creating report validator: %v", err)
	}

	valid := map[string]interface{}{
		"controllers": []interface{}{
			map[string]interface{}{"name": "PLC1", "source_type": "rockwell", "programs": 1, "routines": 2},
		},
		"tags":  []interface{}{},
		"nodes": []interface{}{},
		"edges": []interface{}{
			map[string]interface{}{"source": "a.b0", "target": "a.b1", "flow_type": "true"},
		},
		"flows":           []interface{}{},
		"dependencies":    []interface{}{},
		"conflicts":       []interface{}{},
		"fsm_states":      []interface{}{},
		"fsm_transitions": []interface{}{},
		"diagnostics":     []interface{}{},
	}
	if err := v.Validate(valid); err != nil {
		t.Fatalf("valid report failed validation: %v", err)
	}

	bad := map[string]interface{}{}
	for k, val := range valid {
		bad[k] = val
	}
	bad["edges"] = []interface{}{
		map[string]interface{}{"source": "a.b0", "target": "a.b1", "flow_type": "maybe"},
	}
	if err := v.Validate(bad); err == nil {
		t.Fatalf("expected error for unknown flow_type, got nil")
	}
}
