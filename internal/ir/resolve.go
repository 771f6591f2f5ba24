package ir

import "fmt"

// TagIndex resolves tag references within one controller: program-local
// tags shadow controller-global ones, matching IEC scoping.
type TagIndex struct {
	global map[string]Tag
	local  map[string]map[string]Tag // program -> name -> tag
	udts   map[string]UDT
}

// NewTagIndex builds the lookup structure for a controller.
func NewTagIndex(c *Controller) *TagIndex {
	idx := &TagIndex{
		global: make(map[string]Tag, len(c.Tags)),
		local:  make(map[string]map[string]Tag, len(c.Programs)),
		udts:   make(map[string]UDT, len(c.UDTs)),
	}
	for _, t := range c.Tags {
		idx.global[t.Name] = t
	}
	for _, p := range c.Programs {
		m := make(map[string]Tag, len(p.Tags))
		for _, t := range p.Tags {
			m[t.Name] = t
		}
		idx.local[p.Name] = m
	}
	for _, u := range c.UDTs {
		idx.udts[u.Name] = u
	}
	return idx
}

// Lookup resolves a base tag name from within the named program.
func (idx *TagIndex) Lookup(program, name string) (Tag, bool) {
	if m, ok := idx.local[program]; ok {
		if t, ok := m[name]; ok {
			return t, true
		}
	}
	t, ok := idx.global[name]
	return t, ok
}

// UDT returns the user-defined type with the given name.
func (idx *TagIndex) UDT(name string) (UDT, bool) {
	u, ok := idx.udts[name]
	return u, ok
}

// ResolveReferences checks that every tag reference in the controller
// resolves to a declared tag in its enclosing scope. Unresolved
// references are flagged, never silently dropped; raw fallbacks are
// recorded as structural gaps. Analysis continues regardless.
//
// The only hard failure is a structural invariant violation in the IR
// itself, which indicates a front-end bug, not bad input.
func ResolveReferences(c *Controller) (Diagnostics, error) {
	if c.Name == "" {
		return nil, &InvariantError{Invariant: "controller has a name", Detail: "unnamed controller IR"}
	}
	for _, p := range c.Programs {
		if p.Name == "" {
			return nil, &InvariantError{
				Invariant: "every routine has an owning program",
				Detail:    fmt.Sprintf("controller %q contains an unnamed program", c.Name),
			}
		}
	}

	idx := NewTagIndex(c)
	var diags Diagnostics

	for _, p := range c.Programs {
		for _, r := range p.Routines {
			seen := make(map[string]bool)
			Walk(r.Body, func(instr Instruction) {
				if raw, ok := instr.(RawFallback); ok {
					diags = append(diags, Diagnostic{
						Code:       DiagStructuralGap,
						Controller: c.Name,
						Program:    p.Name,
						Routine:    r.Name,
						Detail:     fmt.Sprintf("statement preserved as raw text: %q", raw.Text),
					})
				}
				refs := Reads(instr)
				if target, ok := Writes(instr); ok {
					refs = append(refs, target)
				}
				for _, ref := range refs {
					if _, ok := idx.Lookup(p.Name, ref.Base()); ok {
						continue
					}
					if seen[ref.Key()] {
						continue
					}
					seen[ref.Key()] = true
					diags = append(diags, Diagnostic{
						Code:       DiagUnresolvedReference,
						Controller: c.Name,
						Program:    p.Name,
						Routine:    r.Name,
						Tag:        ref.Key(),
						Detail:     fmt.Sprintf("base tag %q not declared in program or controller scope", ref.Base()),
					})
				}
			})
		}
	}
	return diags, nil
}
