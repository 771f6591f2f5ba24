package export

import (
	"sort"
	"strings"

	"github.com/iotrustlab/CrossPLC/internal/cfg"
	"github.com/iotrustlab/CrossPLC/internal/dataflow"
	"github.com/iotrustlab/CrossPLC/internal/fsm"
	"github.com/iotrustlab/CrossPLC/internal/ir"
	"github.com/iotrustlab/CrossPLC/internal/project"
)

// Tables is the relational report model. Each slice is a relation
// with flat rows, ordered deterministically so repeated runs over the
// same inputs produce byte-identical JSON.
type Tables struct {
	Controllers    []ControllerRow    `json:"controllers"`
	Tags           []TagRow           `json:"tags"`
	Nodes          []NodeRow          `json:"nodes"`
	Edges          []EdgeRow          `json:"edges"`
	Flows          []FlowRow          `json:"flows"`
	Dependencies   []DependencyRow    `json:"dependencies"`
	Conflicts      []ConflictRow      `json:"conflicts"`
	FSMStates      []FSMStateRow      `json:"fsm_states"`
	FSMTransitions []FSMTransitionRow `json:"fsm_transitions"`
	Diagnostics    []DiagnosticRow    `json:"diagnostics"`
}

type ControllerRow struct {
	Name       string `json:"name"`
	SourceType string `json:"source_type"`
	Programs   int    `json:"programs"`
	Routines   int    `json:"routines"`
}

type TagRow struct {
	Controller string `json:"controller"`
	Program    string `json:"program,omitempty"`
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Kind       string `json:"kind"`
	Scope      string `json:"scope"`
	Initial    string `json:"initial,omitempty"`
	Address    string `json:"address,omitempty"`
}

// NodeRow is one CFG basic block. ID is globally unique across the
// project: "Controller.Program.Routine.bN".
type NodeRow struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Routine string   `json:"routine"`
	Defs    []string `json:"defs,omitempty"`
	Uses    []string `json:"uses,omitempty"`
}

type EdgeRow struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"flow_type"`
	Value  string `json:"value,omitempty"`
}

// FlowRow is one cross-routine tag flow within or across controllers.
type FlowRow struct {
	Tag     string   `json:"tag"`
	Writer  string   `json:"writer"`
	Readers []string `json:"readers"`
}

// DependencyRow is one cross-controller shared-tag dependency.
type DependencyRow struct {
	Tag     string   `json:"tag"`
	Writer  string   `json:"writer"`
	Readers []string `json:"readers"`
}

type ConflictRow struct {
	Tag         string   `json:"tag"`
	Type        string   `json:"conflict_type"`
	Controllers []string `json:"controllers"`
	Details     []string `json:"details,omitempty"`
}

type FSMStateRow struct {
	Controller     string `json:"controller"`
	StateVariable  string `json:"state_variable"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
}

type FSMTransitionRow struct {
	Controller string   `json:"controller"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Guard      string   `json:"guard"`
	Actions    []string `json:"actions,omitempty"`
}

type DiagnosticRow struct {
	Code       string `json:"code"`
	Controller string `json:"controller"`
	Program    string `json:"program,omitempty"`
	Routine    string `json:"routine,omitempty"`
	Tag        string `json:"tag,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// BuildTables flattens a project and its per-controller machine
// models into the relational report.
func BuildTables(p *project.Project, models map[string]fsm.Model) Tables {
	tables := Tables{
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

	for ci := range p.Controllers {
		c := &p.Controllers[ci]
		routines := 0
		for _, prog := range c.Programs {
			routines += len(prog.Routines)
		}
		tables.Controllers = append(tables.Controllers, ControllerRow{
			Name:       c.Name,
			SourceType: string(c.SourceType),
			Programs:   len(c.Programs),
			Routines:   routines,
		})

		for _, t := range c.Tags {
			tables.Tags = append(tables.Tags, tagRow(c.Name, "", t))
		}
		for _, prog := range c.Programs {
			for _, t := range prog.Tags {
				tables.Tags = append(tables.Tags, tagRow(c.Name, prog.Name, t))
			}
			for _, rt := range prog.Routines {
				qualified := c.Name + "." + prog.Name + "." + rt.Name
				g := dataflow.Annotate(cfg.Build(rt))
				appendGraph(&tables, qualified, g)
			}
		}
	}

	for _, flow := range p.CrossRoutineFlows() {
		tables.Flows = append(tables.Flows, FlowRow(flow))
	}
	for _, dep := range p.FindCrossPLCDependencies() {
		tables.Dependencies = append(tables.Dependencies, DependencyRow(dep))
	}
	for _, conf := range p.DetectConflictingTags() {
		tables.Conflicts = append(tables.Conflicts, ConflictRow{
			Tag:         conf.Tag,
			Type:        string(conf.Type),
			Controllers: conf.Controllers,
			Details:     conflictDetails(conf.Details),
		})
	}

	for _, name := range sortedModelNames(models) {
		m := models[name]
		if m.Empty() {
			continue
		}
		for _, s := range m.States {
			tables.FSMStates = append(tables.FSMStates, FSMStateRow{
				Controller:     name,
				StateVariable:  m.StateVariable,
				Name:           s.Name,
				Classification: string(s.Classification),
			})
		}
		for _, tr := range m.Transitions {
			tables.FSMTransitions = append(tables.FSMTransitions, FSMTransitionRow{
				Controller: name,
				From:       tr.From,
				To:         tr.To,
				Guard:      tr.Guard,
				Actions:    tr.Actions,
			})
		}
	}

	diags := p.Diags.Sorted()
	for _, name := range sortedModelNames(models) {
		diags = append(diags, models[name].Diags...)
	}
	for _, d := range diags {
		tables.Diagnostics = append(tables.Diagnostics, DiagnosticRow{
			Code:       string(d.Code),
			Controller: d.Controller,
			Program:    d.Program,
			Routine:    d.Routine,
			Tag:        d.Tag,
			Detail:     d.Detail,
		})
	}

	sort.Slice(tables.Controllers, func(i, j int) bool {
		return tables.Controllers[i].Name < tables.Controllers[j].Name
	})
	return tables
}

// conflictDetails flattens the per-controller type map into sorted
// "controller=TYPE" entries so conflict rows stay diffable.
func conflictDetails(details map[string]string) []string {
	if len(details) == 0 {
		return nil
	}
	out := make([]string, 0, len(details))
	for controller, dataType := range details {
		out = append(out, controller+"="+dataType)
	}
	sort.Strings(out)
	return out
}

func tagRow(controller, program string, t ir.Tag) TagRow {
	return TagRow{
		Controller: controller,
		Program:    program,
		Name:       t.Name,
		DataType:   t.DataType,
		Kind:       string(t.Kind),
		Scope:      string(t.Scope),
		Initial:    t.Initial,
		Address:    t.Address,
	}
}

func appendGraph(tables *Tables, qualified string, g *cfg.Graph) {
	id := func(block int) string {
		return qualified + ".b" + itoa(block)
	}
	for _, b := range g.Blocks {
		tables.Nodes = append(tables.Nodes, NodeRow{
			ID:      id(b.ID),
			Label:   blockLabel(g, b),
			Type:    string(b.Kind),
			Routine: qualified,
			Defs:    b.Defs,
			Uses:    b.Uses,
		})
	}
	for _, e := range g.Edges {
		tables.Edges = append(tables.Edges, EdgeRow{
			Source: id(e.From),
			Target: id(e.To),
			Type:   string(e.Type),
			Value:  e.Value,
		})
	}
}

func blockLabel(g *cfg.Graph, b *cfg.Block) string {
	if b.Label != "" {
		return b.Label
	}
	if len(b.Instrs) == 0 {
		return "b" + itoa(b.ID)
	}
	kinds := make([]string, len(b.Instrs))
	for i, idx := range b.Instrs {
		kinds[i] = string(g.Instr(idx).Kind())
	}
	return strings.Join(kinds, "; ")
}

func sortedModelNames(models map[string]fsm.Model) []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
