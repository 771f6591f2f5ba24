package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

//go:embed rules/*.rego
var builtinRules embed.FS

// Engine evaluates audit rules against an analysis report.
type Engine struct {
	queries    map[string]rego.PreparedEvalQuery
	severities map[string]string
}

// Finding is one audit rule hit.
type Finding struct {
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Controller string `json:"controller"`
	Tag        string `json:"tag"`
	Message    string `json:"message"`
}

// Result contains the evaluation results.
type Result struct {
	Findings []Finding
	Summary  Summary
}

// Summary provides aggregate counts.
type Summary struct {
	TotalFindings int `json:"total_findings"`
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	Info          int `json:"info"`
}

// New creates an audit engine from the built-in rules plus any .rego
// files in extraDir (empty disables). Severity overrides map rule
// names to "error", "warning" or "info".
func New(extraDir string, severities map[string]string) (*Engine, error) {
	var modules []func(*rego.Rego)

	err := fs.WalkDir(builtinRules, "rules", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := builtinRules.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading builtin rule %s: %w", path, err)
		}
		modules = append(modules, rego.Module(path, string(content)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if extraDir != "" {
		files, err := filepath.Glob(filepath.Join(extraDir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding audit rules: %w", err)
		}
		sort.Strings(files)
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			modules = append(modules, rego.Module(f, string(content)))
		}
	}

	engine := &Engine{
		queries:    make(map[string]rego.PreparedEvalQuery),
		severities: severities,
	}

	opts := append(append([]func(*rego.Rego){}, modules...), rego.Query("data.crossplc.audit.all_findings"))
	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing findings query: %w", err)
	}
	engine.queries["findings"] = query

	opts = append(append([]func(*rego.Rego){}, modules...), rego.Query("data.crossplc.audit.summary"))
	query, err = rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing summary query: %w", err)
	}
	engine.queries["summary"] = query

	return engine, nil
}

// Evaluate runs the audit rules against the report tables. The tables
// value is anything that marshals to the report JSON shape.
func (e *Engine) Evaluate(tables interface{}) (*Result, error) {
	ctx := context.Background()

	inputMap, err := structToMap(tables)
	if err != nil {
		return nil, fmt.Errorf("converting report: %w", err)
	}

	result := &Result{}

	rs, err := e.queries["findings"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating findings: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if findings, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, f := range findings {
				fmap, ok := f.(map[string]interface{})
				if !ok {
					continue
				}
				finding := Finding{
					Rule:       getString(fmap, "rule"),
					Severity:   getString(fmap, "severity"),
					Controller: getString(fmap, "controller"),
					Tag:        getString(fmap, "tag"),
					Message:    getString(fmap, "message"),
				}
				if sev, ok := e.severities[finding.Rule]; ok {
					finding.Severity = sev
				}
				result.Findings = append(result.Findings, finding)
			}
		}
	}

	// Findings arrive as a set; order them for stable output.
	sort.Slice(result.Findings, func(i, j int) bool {
		a, b := result.Findings[i], result.Findings[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Controller != b.Controller {
			return a.Controller < b.Controller
		}
		return a.Tag < b.Tag
	})

	// Severity overrides shift the counts, so tally locally instead of
	// reading the rego summary when overrides are present.
	if len(e.severities) > 0 {
		result.Summary = tally(result.Findings)
		return result, nil
	}

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				TotalFindings: getInt(smap, "total_findings"),
				Errors:        getInt(smap, "errors"),
				Warnings:      getInt(smap, "warnings"),
				Info:          getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

func tally(findings []Finding) Summary {
	s := Summary{TotalFindings: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case "error":
			s.Errors++
		case "warning":
			s.Warnings++
		case "info":
			s.Info++
		}
	}
	return s
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
