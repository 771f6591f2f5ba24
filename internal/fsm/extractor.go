package fsm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iotrustlab/CrossPLC/internal/ir"
)

// anyState marks a transition whose enclosing state could not be
// determined statically.
const anyState = "any"

// candidate tracks one tag's suitability as the machine's state
// variable while routines are walked.
type candidate struct {
	key          string
	caseSelector bool
	literals     []string          // first-encounter order
	seen         map[string]bool   // literal set
	symbols      map[string]string // literal -> symbolic label
	compareSeen  map[string]bool
	assignSeen   map[string]bool
	declOrder    int
}

func (c *candidate) note(lit, sym string) {
	if !c.seen[lit] {
		c.seen[lit] = true
		c.literals = append(c.literals, lit)
	}
	if sym != "" && c.symbols[lit] == "" {
		c.symbols[lit] = sym
	}
}

// eligible applies the structural threshold: a Case selector, or at
// least two distinct comparison literals, or at least two distinct
// assigned literals.
func (c *candidate) eligible() bool {
	return c.caseSelector || len(c.compareSeen) >= 2 || len(c.assignSeen) >= 2
}

// Extract infers a state machine for one controller. The detection is
// purely structural: no simulation, no symbolic execution. Hints in
// cfg are advisory; only cfg.StateVar changes which variable is
// modeled.
func Extract(c *ir.Controller, cfg *Config) Model {
	cands := collectCandidates(c)

	var diags ir.Diagnostics
	chosen := pickStateVar(cands, cfg, c.Name, &diags)
	if chosen == nil {
		return Model{
			Reason: "no tag is used as a case selector, compared against two or more distinct literals, or assigned two or more distinct literals",
			Diags:  diags,
		}
	}

	ext := &extractor{
		stateKey: chosen.key,
		symbols:  chosen.symbols,
	}
	for _, prog := range c.Programs {
		for _, rt := range prog.Routines {
			ext.walkBody(rt.Body, anyState, "", false)
		}
	}
	if ext.unguardedAssign && chosen.caseSelector {
		diags = append(diags, ir.Diagnostic{
			Code:       ir.DiagAmbiguousStateVariable,
			Controller: c.Name,
			Tag:        chosen.key,
			Detail:     "state variable is reassigned outside any branch context",
		})
	}

	states := classifyStates(c, chosen, ext.transitions)

	m := Model{
		StateVariable: chosen.key,
		States:        states,
		Transitions:   ext.transitions,
		Diags:         diags,
	}
	if cfg != nil {
		m.Coverage = compareHints(m, cfg)
	}
	return m
}

// collectCandidates walks every routine once, recording for each
// referenced tag the structural evidence that it drives a machine.
func collectCandidates(c *ir.Controller) []*candidate {
	byKey := map[string]*candidate{}
	var order []string

	get := func(key string) *candidate {
		cd, ok := byKey[key]
		if !ok {
			cd = &candidate{
				key:         key,
				seen:        map[string]bool{},
				symbols:     map[string]string{},
				compareSeen: map[string]bool{},
				assignSeen:  map[string]bool{},
				declOrder:   declarationOrder(c, key, len(order)),
			}
			byKey[key] = cd
			order = append(order, key)
		}
		return cd
	}

	noteCompares := func(e ir.Expr) {
		// Both "=" and "<>" comparisons mark a tag as state-like;
		// only equality pins a transition source later on.
		for _, cmp := range e.Compares {
			cd := get(cmp.Ref.Key())
			cd.compareSeen[cmp.Literal] = true
			cd.note(cmp.Literal, cmp.Symbol)
		}
	}

	for _, prog := range c.Programs {
		for _, rt := range prog.Routines {
			ir.Walk(rt.Body, func(in ir.Instruction) {
				switch v := in.(type) {
				case ir.Assignment:
					if v.Value.IsLiteral() {
						cd := get(v.Target.Key())
						cd.assignSeen[v.Value.Literal] = true
						cd.note(v.Value.Literal, v.Value.Symbol)
					}
				case ir.Conditional:
					noteCompares(v.Guard)
				case ir.Loop:
					noteCompares(v.Guard)
				case ir.Case:
					if len(v.Selector.Refs) == 1 {
						cd := get(v.Selector.Refs[0].Key())
						cd.caseSelector = true
						for _, arm := range v.Arms {
							for i, val := range arm.Values {
								sym := ""
								if i < len(arm.Symbols) {
									sym = arm.Symbols[i]
								}
								cd.note(val, sym)
							}
						}
					}
				}
			})
		}
	}

	out := make([]*candidate, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

// pickStateVar ranks eligible candidates by distinct-value count,
// breaking ties by tag declaration order. An explicit hint wins
// outright.
func pickStateVar(cands []*candidate, cfg *Config, controller string, diags *ir.Diagnostics) *candidate {
	if cfg != nil && cfg.StateVar != "" {
		for _, cd := range cands {
			if cd.key == cfg.StateVar {
				return cd
			}
		}
		// Hinted variable never observed: synthesize an empty
		// candidate so the model names it with no states.
		return &candidate{key: cfg.StateVar, seen: map[string]bool{}, symbols: map[string]string{}}
	}

	var eligible []*candidate
	for _, cd := range cands {
		if cd.eligible() {
			eligible = append(eligible, cd)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if len(eligible[i].seen) != len(eligible[j].seen) {
			return len(eligible[i].seen) > len(eligible[j].seen)
		}
		return eligible[i].declOrder < eligible[j].declOrder
	})
	best := eligible[0]
	if len(eligible) > 1 && len(eligible[1].seen) == len(best.seen) {
		*diags = append(*diags, ir.Diagnostic{
			Code:       ir.DiagAmbiguousStateVariable,
			Controller: controller,
			Tag:        best.key,
			Detail: fmt.Sprintf("%s and %s both carry %d distinct values; chose %s by declaration order",
				best.key, eligible[1].key, len(best.seen), best.key),
		})
	}
	return best
}

// declarationOrder maps a reference back to its tag's position in the
// controller declaration list. Unresolved references sort after every
// declared tag, in first-encounter order.
func declarationOrder(c *ir.Controller, key string, encounter int) int {
	base := key
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	for i, t := range c.Tags {
		if t.Name == base {
			return i
		}
	}
	n := len(c.Tags)
	for _, prog := range c.Programs {
		for i, t := range prog.Tags {
			if t.Name == base {
				return n + i
			}
		}
		n += len(prog.Tags)
	}
	return n + encounter
}

// extractor walks routine bodies carrying the statically-known
// enclosing state and the guard text controlling the current arm.
type extractor struct {
	stateKey        string
	symbols         map[string]string
	transitions     []Transition
	unguardedAssign bool
}

func (e *extractor) label(lit string) string {
	if sym := e.symbols[lit]; sym != "" {
		return sym
	}
	return lit
}

// stateCompare returns the compared literal when guard pins the state
// variable to exactly one value with an equality test.
func (e *extractor) stateCompare(guard ir.Expr) (string, bool) {
	lit, found := "", false
	for _, cmp := range guard.Compares {
		if cmp.Ref.Key() != e.stateKey || cmp.Op != "=" {
			continue
		}
		if found {
			return "", false // two equality tests on the state var: not a pin
		}
		lit, found = cmp.Literal, true
	}
	return lit, found
}

func (e *extractor) walkBody(body ir.Body, from, guard string, inBranch bool) {
	for i, in := range body {
		switch v := in.(type) {
		case ir.Assignment:
			if v.Target.Key() != e.stateKey || !v.Value.IsLiteral() {
				continue
			}
			if !inBranch {
				e.unguardedAssign = true
				continue
			}
			e.transitions = append(e.transitions, Transition{
				From:    from,
				To:      e.label(v.Value.Literal),
				Guard:   guard,
				Actions: siblingActions(body, i, e.stateKey),
			})
		case ir.Conditional:
			thenFrom := from
			if lit, ok := e.stateCompare(v.Guard); ok {
				thenFrom = e.label(lit)
			}
			e.walkBody(v.Then, thenFrom, v.Guard.Text, true)
			if len(v.Else) > 0 {
				e.walkBody(v.Else, from, "NOT ("+v.Guard.Text+")", true)
			}
		case ir.Case:
			e.walkCase(v, from)
		case ir.Loop:
			e.walkBody(v.Body, from, guard, inBranch)
		}
	}
}

func (e *extractor) walkCase(c ir.Case, outer string) {
	onState := len(c.Selector.Refs) == 1 && c.Selector.Refs[0].Key() == e.stateKey
	for _, arm := range c.Arms {
		from := outer
		if onState && len(arm.Values) == 1 {
			from = e.label(arm.Values[0])
		} else if onState {
			from = anyState // multi-value arm: no single enclosing state
		}
		e.walkBody(arm.Body, from, armGuard(c.Selector.Text, arm), true)
	}
	if c.HasDefault {
		from := outer
		if onState {
			from = anyState
		}
		e.walkBody(c.Default, from, c.Selector.Text+" ELSE", true)
	}
}

func armGuard(selector string, arm ir.CaseArm) string {
	labels := make([]string, len(arm.Values))
	for i, v := range arm.Values {
		if i < len(arm.Symbols) && arm.Symbols[i] != "" {
			labels[i] = arm.Symbols[i]
		} else {
			labels[i] = v
		}
	}
	if len(labels) == 1 {
		return selector + " = " + labels[0]
	}
	return selector + " IN (" + strings.Join(labels, ", ") + ")"
}

// siblingActions renders the other assignments and calls of the same
// immediate body, in source order.
func siblingActions(body ir.Body, self int, stateKey string) []string {
	var acts []string
	for i, in := range body {
		if i == self {
			continue
		}
		switch v := in.(type) {
		case ir.Assignment:
			if v.Target.Key() == stateKey {
				continue
			}
			acts = append(acts, v.Target.Key()+" := "+v.Value.Text)
		case ir.Call:
			args := make([]string, len(v.Args))
			for j, a := range v.Args {
				args[j] = a.Text
			}
			acts = append(acts, v.Name+"("+strings.Join(args, ", ")+")")
		case ir.TimerOp:
			acts = append(acts, v.Op+"("+v.Timer.Key()+")")
		}
	}
	return acts
}

// classifyStates enumerates states in first-encounter order and
// classifies each. The initial state is the declared initial value of
// the state variable when it matches a known literal, otherwise the
// first literal encountered; a state no transition leaves is terminal.
func classifyStates(c *ir.Controller, cd *candidate, trans []Transition) []State {
	initial := ""
	if t := findTag(c, cd.key); t != nil && t.Initial != "" && cd.seen[t.Initial] {
		initial = t.Initial
	} else if len(cd.literals) > 0 {
		initial = cd.literals[0]
	}

	leaves := map[string]bool{}
	for _, tr := range trans {
		if tr.From != tr.To {
			leaves[tr.From] = true
		}
	}

	label := func(lit string) string {
		if sym := cd.symbols[lit]; sym != "" {
			return sym
		}
		return lit
	}

	states := make([]State, 0, len(cd.literals))
	for _, lit := range cd.literals {
		name := label(lit)
		cl := StateIntermediate
		switch {
		case lit == initial:
			cl = StateInitial
		case !leaves[name] && !leaves[anyState]:
			cl = StateTerminal
		}
		states = append(states, State{Name: name, Classification: cl})
	}
	return states
}

func findTag(c *ir.Controller, key string) *ir.Tag {
	base := key
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	for ti := range c.Tags {
		if c.Tags[ti].Name == base {
			return &c.Tags[ti]
		}
	}
	for pi := range c.Programs {
		for ti := range c.Programs[pi].Tags {
			if c.Programs[pi].Tags[ti].Name == base {
				return &c.Programs[pi].Tags[ti]
			}
		}
	}
	return nil
}
