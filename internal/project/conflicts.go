package project

import (
	"sort"

	"github.com/iotrustlab/CrossPLC/internal/ir"
)

// ConflictType classifies a cross-controller tag conflict.
type ConflictType string

const (
	// ConflictTypeMismatch marks a bare tag name declared with
	// differing types across controllers.
	ConflictTypeMismatch ConflictType = "type_mismatch"

	// ConflictNameCollision marks a bare tag name whose member-access
	// shapes across controllers are unrelated: same name, different
	// thing.
	ConflictNameCollision ConflictType = "name_collision"
)

// Conflict is one detected cross-controller tag conflict.
type Conflict struct {
	Tag         string            `json:"tag"`
	Type        ConflictType      `json:"conflict_type"`
	Controllers []string          `json:"controllers"`
	Details     map[string]string `json:"details,omitempty"`
}

type tagDecl struct {
	controller string
	kind       ir.DataKind
	dataType   string
}

// DetectConflictingTags inspects every bare tag name declared by two
// or more controllers. Identical bare names are allowed; they are
// flagged here, never silently merged. Differing declared types yield
// a type_mismatch. Same type with overlapping (or absent) usage shape
// is an intentional shared tag, no conflict. Same type with disjoint
// member-access shapes yields a name_collision. Results sort by tag
// name.
func (p *Project) DetectConflictingTags() []Conflict {
	decls := make(map[string][]tagDecl)
	for _, c := range p.Controllers {
		for _, t := range c.Tags {
			decls[t.Name] = append(decls[t.Name], tagDecl{
				controller: c.Name,
				kind:       t.Kind,
				dataType:   t.DataType,
			})
		}
	}

	shapes := p.memberShapes()

	var conflicts []Conflict
	for name, ds := range decls {
		if len(ds) < 2 {
			continue
		}

		controllers := make([]string, 0, len(ds))
		kinds := make(map[ir.DataKind]bool)
		details := make(map[string]string, len(ds))
		for _, d := range ds {
			controllers = append(controllers, d.controller)
			kinds[d.kind] = true
			details[d.controller] = d.dataType
		}

		if len(kinds) > 1 {
			conflicts = append(conflicts, Conflict{
				Tag:         name,
				Type:        ConflictTypeMismatch,
				Controllers: controllers,
				Details:     details,
			})
			continue
		}

		if disjointShapes(name, controllers, shapes) {
			conflicts = append(conflicts, Conflict{
				Tag:         name,
				Type:        ConflictNameCollision,
				Controllers: controllers,
			})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Tag < conflicts[j].Tag })
	return conflicts
}

// memberShapes collects, per controller, the member suffixes each base
// tag is accessed through anywhere in that controller's routines.
func (p *Project) memberShapes() map[string]map[string]map[string]bool {
	shapes := make(map[string]map[string]map[string]bool) // controller -> base -> members
	for _, c := range p.Controllers {
		perBase := make(map[string]map[string]bool)
		for _, prog := range c.Programs {
			for _, r := range prog.Routines {
				ir.Walk(r.Body, func(instr ir.Instruction) {
					refs := ir.Reads(instr)
					if target, ok := ir.Writes(instr); ok {
						refs = append(refs, target)
					}
					for _, ref := range refs {
						if ref.Member == "" {
							continue
						}
						if perBase[ref.Base()] == nil {
							perBase[ref.Base()] = make(map[string]bool)
						}
						perBase[ref.Base()][ref.Member] = true
					}
				})
			}
		}
		shapes[c.Name] = perBase
	}
	return shapes
}

// disjointShapes reports whether the controllers access the tag
// through entirely unrelated member sets. Controllers that never touch
// a member of the tag do not count against it.
func disjointShapes(tag string, controllers []string, shapes map[string]map[string]map[string]bool) bool {
	var sets []map[string]bool
	for _, c := range controllers {
		if s := shapes[c][tag]; len(s) > 0 {
			sets = append(sets, s)
		}
	}
	if len(sets) < 2 {
		return false
	}
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			if overlaps(sets[i], sets[j]) {
				return false
			}
		}
	}
	return true
}

func overlaps(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}
