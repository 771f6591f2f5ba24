package export

import (
	"fmt"
	"strings"
)

// WriteDOT renders the control-flow nodes and edges as a Graphviz
// digraph, one cluster per routine. Node fill encodes block type:
// branches green, loop heads yellow, straight-line blocks blue.
func WriteDOT(tables Tables) string {
	var b strings.Builder
	b.WriteString("digraph CFG {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=filled, fillcolor=lightblue];\n")
	b.WriteString("  edge [color=black];\n\n")

	for _, routine := range nodeRoutines(tables.Nodes) {
		fmt.Fprintf(&b, "  subgraph cluster_%s {\n", sanitizeID(routine))
		fmt.Fprintf(&b, "    label=%q;\n", routine)
		b.WriteString("    style=filled;\n")
		b.WriteString("    color=lightgrey;\n\n")

		for _, n := range tables.Nodes {
			if n.Routine != routine {
				continue
			}
			fmt.Fprintf(&b, "    %q [label=%q, fillcolor=%q];\n",
				n.ID, dotLabel(n), nodeColor(n.Type))
		}
		b.WriteString("  }\n\n")
	}

	for _, e := range tables.Edges {
		switch e.Type {
		case "successor":
			fmt.Fprintf(&b, "  %q -> %q;\n", e.Source, e.Target)
		case "case-value":
			fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.Source, e.Target, e.Value)
		default:
			fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.Source, e.Target, e.Type)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func dotLabel(n NodeRow) string {
	label := n.Label
	if len(n.Defs) > 0 || len(n.Uses) > 0 {
		label += "\ndefs: " + truncList(n.Defs)
		label += "\nuses: " + truncList(n.Uses)
	}
	return label
}

// truncList caps a tag list at three entries for display.
func truncList(items []string) string {
	if len(items) > 3 {
		return strings.Join(items[:3], ", ") + "..."
	}
	return strings.Join(items, ", ")
}

func nodeColor(blockType string) string {
	switch blockType {
	case "branch":
		return "lightgreen"
	case "control":
		return "lightyellow"
	default:
		return "lightblue"
	}
}

// nodeRoutines returns routine names in first-appearance order.
func nodeRoutines(nodes []NodeRow) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range nodes {
		if !seen[n.Routine] {
			seen[n.Routine] = true
			out = append(out, n.Routine)
		}
	}
	return out
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// WriteFlowDOT renders the cross-scope tag flows as a digraph of
// scopes linked by the tags that flow between them.
func WriteFlowDOT(tables Tables) string {
	var b strings.Builder
	b.WriteString("digraph DataFlow {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fillcolor=lightcoral];\n\n")

	seen := map[string]bool{}
	declare := func(name string) {
		if !seen[name] {
			seen[name] = true
			fmt.Fprintf(&b, "  %q;\n", name)
		}
	}
	for _, f := range tables.Flows {
		declare(f.Writer)
		for _, r := range f.Readers {
			declare(r)
		}
	}
	b.WriteString("\n")
	for _, f := range tables.Flows {
		for _, r := range f.Readers {
			fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", f.Writer, r, f.Tag)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
