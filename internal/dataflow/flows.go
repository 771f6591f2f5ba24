package dataflow

import (
	"sort"

	"github.com/iotrustlab/CrossPLC/internal/cfg"
	"github.com/iotrustlab/CrossPLC/internal/ir"
)

// CrossDependency records a tag written by one scope and read by
// others. Tag identity is base name plus member suffix, exact match.
type CrossDependency struct {
	Tag     string   `json:"tag"`
	Writer  string   `json:"writer"`
	Readers []string `json:"readers"`
}

// Unit is one def/use summary participating in flow detection: a
// routine for cross-routine analysis, a whole controller for
// cross-controller analysis. Units are enumerated in declaration
// order so reports are reproducible and diffable.
type Unit struct {
	Name string
	Defs []string
	Uses []string
}

// FlowsBetween emits one CrossDependency per (writer, tag) pair where
// the tag appears in the writer's defs and in at least one other
// unit's uses. Writers keep enumeration order, tags sort by name,
// readers keep enumeration order. Self-flows are excluded.
//
// No loop-aware fixpoint iteration is performed; this is a summary
// over lexical def/use sets.
func FlowsBetween(units []Unit) []CrossDependency {
	var deps []CrossDependency
	for wi, writer := range units {
		byTag := make(map[string][]string)
		for ri, reader := range units {
			if ri == wi || reader.Name == writer.Name {
				continue
			}
			uses := make(map[string]bool, len(reader.Uses))
			for _, u := range reader.Uses {
				uses[u] = true
			}
			for _, tag := range writer.Defs {
				if uses[tag] {
					byTag[tag] = append(byTag[tag], reader.Name)
				}
			}
		}
		tags := make([]string, 0, len(byTag))
		for tag := range byTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			deps = append(deps, CrossDependency{Tag: tag, Writer: writer.Name, Readers: byTag[tag]})
		}
	}
	return deps
}

// CrossRoutineFlows computes cross-routine tag dependencies over every
// routine of every controller, across programs and across controllers.
// Units are qualified "Controller.Program.Routine" names in controller
// declaration order, then program order, then routine order.
func CrossRoutineFlows(controllers []ir.Controller) []CrossDependency {
	var units []Unit
	for _, c := range controllers {
		for _, p := range c.Programs {
			for _, r := range p.Routines {
				g := Annotate(cfg.Build(r))
				defs, uses := Summarize(g)
				units = append(units, Unit{
					Name: c.Name + "." + p.Name + "." + r.Name,
					Defs: defs,
					Uses: uses,
				})
			}
		}
	}
	return FlowsBetween(units)
}

// ControllerUnits summarizes def/use sets at controller scope, one
// unit per controller in declaration order.
func ControllerUnits(controllers []ir.Controller) []Unit {
	units := make([]Unit, 0, len(controllers))
	for _, c := range controllers {
		defSet := make(map[string]bool)
		useSet := make(map[string]bool)
		for _, p := range c.Programs {
			for _, r := range p.Routines {
				g := Annotate(cfg.Build(r))
				defs, uses := Summarize(g)
				for _, d := range defs {
					defSet[d] = true
				}
				for _, u := range uses {
					useSet[u] = true
				}
			}
		}
		units = append(units, Unit{Name: c.Name, Defs: sortedKeys(defSet), Uses: sortedKeys(useSet)})
	}
	return units
}
