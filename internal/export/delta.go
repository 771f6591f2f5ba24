package export

import "strings"

// Delta captures added and removed report rows between two analysis
// snapshots of the same plant.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two
// snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Controllers = diffControllerRows(from.Controllers, to.Controllers)
	out.Tags = diffTagRows(from.Tags, to.Tags)
	out.Nodes = diffNodeRows(from.Nodes, to.Nodes)
	out.Edges = diffEdgeRows(from.Edges, to.Edges)
	out.Flows = diffFlowRows(from.Flows, to.Flows)
	out.Dependencies = diffDependencyRows(from.Dependencies, to.Dependencies)
	out.Conflicts = diffConflictRows(from.Conflicts, to.Conflicts)
	out.FSMStates = diffFSMStateRows(from.FSMStates, to.FSMStates)
	out.FSMTransitions = diffFSMTransitionRows(from.FSMTransitions, to.FSMTransitions)
	out.Diagnostics = diffDiagnosticRows(from.Diagnostics, to.Diagnostics)

	return out
}

func emptyTables() Tables {
	return Tables{
		Controllers:    []ControllerRow{},
		Tags:           []TagRow{},
		Nodes:          []NodeRow{},
		Edges:          []EdgeRow{},
		Flows:          []FlowRow{},
		Dependencies:   []DependencyRow{},
		Conflicts:      []ConflictRow{},
		FSMStates:      []FSMStateRow{},
		FSMTransitions: []FSMTransitionRow{},
		Diagnostics:    []DiagnosticRow{},
	}
}

func diffControllerRows(from, to []ControllerRow) []ControllerRow {
	return diffRows(from, to, func(r ControllerRow) string {
		return r.Name + "|" + r.SourceType + "|" + itoa(r.Programs) + "|" + itoa(r.Routines)
	})
}

func diffTagRows(from, to []TagRow) []TagRow {
	return diffRows(from, to, func(r TagRow) string {
		return r.Controller + "|" + r.Program + "|" + r.Name + "|" + r.DataType + "|" + r.Kind + "|" + r.Scope + "|" + r.Initial + "|" + r.Address
	})
}

func diffNodeRows(from, to []NodeRow) []NodeRow {
	return diffRows(from, to, func(r NodeRow) string {
		return r.ID + "|" + r.Label + "|" + r.Type + "|" + listKey(r.Defs) + "|" + listKey(r.Uses)
	})
}

func diffEdgeRows(from, to []EdgeRow) []EdgeRow {
	return diffRows(from, to, func(r EdgeRow) string {
		return r.Source + "|" + r.Target + "|" + r.Type + "|" + r.Value
	})
}

func diffFlowRows(from, to []FlowRow) []FlowRow {
	return diffRows(from, to, func(r FlowRow) string {
		return r.Tag + "|" + r.Writer + "|" + listKey(r.Readers)
	})
}

func diffDependencyRows(from, to []DependencyRow) []DependencyRow {
	return diffRows(from, to, func(r DependencyRow) string {
		return r.Tag + "|" + r.Writer + "|" + listKey(r.Readers)
	})
}

func diffConflictRows(from, to []ConflictRow) []ConflictRow {
	return diffRows(from, to, func(r ConflictRow) string {
		return r.Tag + "|" + r.Type + "|" + listKey(r.Controllers) + "|" + listKey(r.Details)
	})
}

func diffFSMStateRows(from, to []FSMStateRow) []FSMStateRow {
	return diffRows(from, to, func(r FSMStateRow) string {
		return r.Controller + "|" + r.StateVariable + "|" + r.Name + "|" + r.Classification
	})
}

func diffFSMTransitionRows(from, to []FSMTransitionRow) []FSMTransitionRow {
	return diffRows(from, to, func(r FSMTransitionRow) string {
		return r.Controller + "|" + r.From + "|" + r.To + "|" + r.Guard + "|" + listKey(r.Actions)
	})
}

func diffDiagnosticRows(from, to []DiagnosticRow) []DiagnosticRow {
	return diffRows(from, to, func(r DiagnosticRow) string {
		return r.Code + "|" + r.Controller + "|" + r.Program + "|" + r.Routine + "|" + r.Tag + "|" + r.Detail
	})
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	var diff []T
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func listKey(items []string) string {
	return strings.Join(items, ",")
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
