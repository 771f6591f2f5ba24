package project

import (
	"fmt"
	"sort"
	"strings"
)

type dependentsGraph map[string]map[string]bool

// buildDependentsGraph inverts cross-controller dependencies: for each
// controller, the set of controllers reading anything it writes.
func (p *Project) buildDependentsGraph() dependentsGraph {
	graph := make(dependentsGraph)
	for _, dep := range p.FindCrossPLCDependencies() {
		for _, reader := range dep.Readers {
			if reader == dep.Writer {
				continue
			}
			if graph[dep.Writer] == nil {
				graph[dep.Writer] = make(map[string]bool)
			}
			graph[dep.Writer][reader] = true
		}
	}
	return graph
}

// ImpactReport lists, level by level, the controllers transitively
// affected by changes to the root controller's outputs.
type ImpactReport struct {
	Root   string
	Levels [][]string
}

// Impact computes the breadth-first dependent closure of one
// controller over the shared-tag graph. Levels are sorted so the
// report is reproducible.
func (p *Project) Impact(root string) ImpactReport {
	dependents := p.buildDependentsGraph()

	visited := map[string]bool{root: true}
	frontier := []string{root}
	var levels [][]string

	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for dep := range dependents[f] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		levels = append(levels, next)
		frontier = next
	}

	return ImpactReport{Root: root, Levels: levels}
}

// FormatImpactReport renders an impact report for terminal output.
func FormatImpactReport(report ImpactReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", report.Root))
	for i, level := range report.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}
