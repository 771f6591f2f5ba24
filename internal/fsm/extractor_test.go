package fsm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotrustlab/CrossPLC/internal/ir"
)

func ref(tag string, member ...string) ir.TagRef {
	return ir.TagRef{Tag: tag, Member: strings.Join(member, ".")}
}

func lit(text string) ir.Expr {
	return ir.Expr{Text: text, Literal: text}
}

func assign(target ir.TagRef, value ir.Expr) ir.Assignment {
	return ir.Assignment{Target: target, Value: value}
}

// stepMachine builds a controller whose single routine drives
// HMI_P1_STATE through a four-arm case: 0 -> 1 -> 2 -> 3, with no
// arm leaving state 3.
func stepMachine() *ir.Controller {
	state := ref("HMI_P1_STATE")
	sel := ir.Expr{Text: "HMI_P1_STATE", Refs: []ir.TagRef{state}}
	body := ir.Body{
		ir.Case{
			Selector: sel,
			Arms: []ir.CaseArm{
				{Values: []string{"0"}, Body: ir.Body{
					assign(ref("P1", "START"), lit("1")),
					assign(state, lit("1")),
				}},
				{Values: []string{"1"}, Body: ir.Body{
					assign(state, lit("2")),
				}},
				{Values: []string{"2"}, Body: ir.Body{
					assign(ref("P1", "STOP"), lit("1")),
					assign(state, lit("3")),
				}},
				{Values: []string{"3"}, Body: ir.Body{
					assign(ref("DONE"), lit("1")),
				}},
			},
		},
	}
	return &ir.Controller{
		Name:       "HMI",
		SourceType: ir.SourceRockwell,
		Tags: []ir.Tag{
			{Name: "HMI_P1_STATE", DataType: "INT", Kind: ir.KindInteger, Scope: ir.ScopeController, Initial: "0"},
			{Name: "P1", DataType: "PUMP", Kind: ir.KindStruct, Scope: ir.ScopeController},
			{Name: "DONE", DataType: "BOOL", Kind: ir.KindBit, Scope: ir.ScopeController},
		},
		Programs: []ir.Program{{
			Name:     "Main",
			Routines: []ir.Routine{{Name: "Sequencer", Body: body}},
		}},
	}
}

func TestExtractStepMachine(t *testing.T) {
	m := Extract(stepMachine(), nil)
	require.False(t, m.Empty())
	assert.Equal(t, "HMI_P1_STATE", m.StateVariable)
	assert.Equal(t, []string{"0", "1", "2", "3"}, m.StateNames())

	byName := map[string]Classification{}
	for _, s := range m.States {
		byName[s.Name] = s.Classification
	}
	assert.Equal(t, StateInitial, byName["0"])
	assert.Equal(t, StateIntermediate, byName["1"])
	assert.Equal(t, StateIntermediate, byName["2"])
	assert.Equal(t, StateTerminal, byName["3"])

	require.Len(t, m.Transitions, 3)
	assert.Equal(t, Transition{
		From:    "0",
		To:      "1",
		Guard:   "HMI_P1_STATE = 0",
		Actions: []string{"P1.START := 1"},
	}, m.Transitions[0])
	assert.Equal(t, "1", m.Transitions[1].From)
	assert.Equal(t, "2", m.Transitions[1].To)
	assert.Equal(t, "2", m.Transitions[2].From)
	assert.Equal(t, "3", m.Transitions[2].To)
	assert.Empty(t, m.Diags)
}

func TestExtractDeterministic(t *testing.T) {
	a := Extract(stepMachine(), nil)
	b := Extract(stepMachine(), nil)
	assert.Equal(t, a, b)
}

func TestExtractNoCandidateYieldsReason(t *testing.T) {
	c := &ir.Controller{
		Name: "PLAIN",
		Tags: []ir.Tag{{Name: "LEVEL", DataType: "REAL", Kind: ir.KindReal, Scope: ir.ScopeController}},
		Programs: []ir.Program{{
			Name: "Main",
			Routines: []ir.Routine{{Name: "R1", Body: ir.Body{
				assign(ref("LEVEL"), ir.Expr{Text: "SENSOR * 2.0", Refs: []ir.TagRef{ref("SENSOR")}}),
			}}},
		}},
	}
	m := Extract(c, nil)
	assert.True(t, m.Empty())
	assert.NotEmpty(t, m.Reason)
	assert.Empty(t, m.States)
	assert.Empty(t, m.Transitions)
}

func TestConditionalCompareCandidate(t *testing.T) {
	// STEP is never a case selector but is equality-compared against
	// two distinct literals, which crosses the threshold.
	step := ref("STEP")
	cmp := func(v string) ir.Expr {
		return ir.Expr{
			Text:     "STEP = " + v,
			Refs:     []ir.TagRef{step},
			Compares: []ir.Comparison{{Ref: step, Op: "=", Literal: v}},
		}
	}
	c := &ir.Controller{
		Name: "SEQ",
		Tags: []ir.Tag{{Name: "STEP", DataType: "INT", Kind: ir.KindInteger, Scope: ir.ScopeController}},
		Programs: []ir.Program{{
			Name: "Main",
			Routines: []ir.Routine{{Name: "R1", Body: ir.Body{
				ir.Conditional{Guard: cmp("0"), Then: ir.Body{assign(step, lit("1"))}},
				ir.Conditional{Guard: cmp("1"), Then: ir.Body{assign(step, lit("0"))}},
			}}},
		}},
	}
	m := Extract(c, nil)
	require.False(t, m.Empty())
	assert.Equal(t, "STEP", m.StateVariable)
	assert.Equal(t, []string{"0", "1"}, m.StateNames())

	require.Len(t, m.Transitions, 2)
	assert.Equal(t, Transition{From: "0", To: "1", Guard: "STEP = 0"}, m.Transitions[0])
	assert.Equal(t, Transition{From: "1", To: "0", Guard: "STEP = 1"}, m.Transitions[1])

	// Every state is left by some transition, and the declared tag has
	// no initial value, so the first encountered literal is initial.
	for _, s := range m.States {
		if s.Name == "0" {
			assert.Equal(t, StateInitial, s.Classification)
		} else {
			assert.Equal(t, StateIntermediate, s.Classification)
		}
	}
}

func TestInequalityCompareCandidate(t *testing.T) {
	// STEP only ever appears in "<>" guards. Those still mark it as
	// state-like; otherwise the side-effect tag OUT, assigned two
	// distinct literals, would be elected instead.
	step := ref("STEP")
	out := ref("OUT")
	ne := func(v string) ir.Expr {
		return ir.Expr{
			Text:     "STEP <> " + v,
			Refs:     []ir.TagRef{step},
			Compares: []ir.Comparison{{Ref: step, Op: "<>", Literal: v}},
		}
	}
	c := &ir.Controller{
		Name: "SEQ",
		Tags: []ir.Tag{
			{Name: "STEP", DataType: "INT", Kind: ir.KindInteger, Scope: ir.ScopeController},
			{Name: "OUT", DataType: "INT", Kind: ir.KindInteger, Scope: ir.ScopeController},
		},
		Programs: []ir.Program{{
			Name: "Main",
			Routines: []ir.Routine{{Name: "R1", Body: ir.Body{
				ir.Conditional{Guard: ne("0"), Then: ir.Body{assign(out, lit("5"))}},
				ir.Conditional{Guard: ne("1"), Then: ir.Body{assign(out, lit("6"))}},
				ir.Conditional{Guard: ne("2"), Then: ir.Body{assign(out, lit("5"))}},
			}}},
		}},
	}
	m := Extract(c, nil)
	require.False(t, m.Empty())
	assert.Equal(t, "STEP", m.StateVariable)
	assert.Equal(t, []string{"0", "1", "2"}, m.StateNames())

	// Inequality guards never pin a transition source, and nothing
	// assigns STEP, so the model carries states only.
	assert.Empty(t, m.Transitions)
}

func TestTieBreaksByDeclarationOrder(t *testing.T) {
	mk := func(name string) ir.TagRef { return ref(name) }
	c := &ir.Controller{
		Name: "TIE",
		Tags: []ir.Tag{
			{Name: "ALPHA", DataType: "INT", Kind: ir.KindInteger, Scope: ir.ScopeController},
			{Name: "BETA", DataType: "INT", Kind: ir.KindInteger, Scope: ir.ScopeController},
		},
		Programs: []ir.Program{{
			Name: "Main",
			Routines: []ir.Routine{{Name: "R1", Body: ir.Body{
				ir.Conditional{Guard: ir.Expr{Text: "GO", Refs: []ir.TagRef{ref("GO")}}, Then: ir.Body{
					assign(mk("BETA"), lit("1")),
					assign(mk("ALPHA"), lit("1")),
				}},
				ir.Conditional{Guard: ir.Expr{Text: "HALT", Refs: []ir.TagRef{ref("HALT")}}, Then: ir.Body{
					assign(mk("BETA"), lit("2")),
					assign(mk("ALPHA"), lit("2")),
				}},
			}}},
		}},
	}
	m := Extract(c, nil)
	require.False(t, m.Empty())
	assert.Equal(t, "ALPHA", m.StateVariable, "declaration order beats encounter order on ties")
	require.Len(t, m.Diags, 1)
	assert.Equal(t, ir.DiagAmbiguousStateVariable, m.Diags[0].Code)
}

func TestStateVarHintOverridesRanking(t *testing.T) {
	m := Extract(stepMachine(), &Config{StateVar: "DONE"})
	assert.Equal(t, "DONE", m.StateVariable)
	// DONE is assigned a single literal: a named variable with no
	// observed machine still produces a model, just a sparse one.
	assert.Equal(t, []string{"1"}, m.StateNames())
}

func TestUnguardedSelectorReassignmentFlagsAmbiguity(t *testing.T) {
	c := stepMachine()
	rt := &c.Programs[0].Routines[0]
	rt.Body = append(rt.Body, assign(ref("HMI_P1_STATE"), lit("0")))
	m := Extract(c, nil)
	require.Len(t, m.Diags, 1)
	assert.Equal(t, ir.DiagAmbiguousStateVariable, m.Diags[0].Code)
	assert.Contains(t, m.Diags[0].Detail, "outside any branch")
	// The unguarded write contributes no transition.
	assert.Len(t, m.Transitions, 3)
}

func TestSymbolicStateLabels(t *testing.T) {
	state := ref("MODE")
	sel := ir.Expr{Text: "MODE", Refs: []ir.TagRef{state}}
	c := &ir.Controller{
		Name: "SYM",
		Tags: []ir.Tag{{Name: "MODE", DataType: "INT", Kind: ir.KindInteger, Scope: ir.ScopeController, Initial: "0"}},
		Programs: []ir.Program{{
			Name: "Main",
			Routines: []ir.Routine{{Name: "R1", Body: ir.Body{
				ir.Case{
					Selector: sel,
					Arms: []ir.CaseArm{
						{Values: []string{"0"}, Symbols: []string{"IDLE"}, Body: ir.Body{
							assign(state, ir.Expr{Text: "RUNNING", Literal: "1", Symbol: "RUNNING"}),
						}},
						{Values: []string{"1"}, Symbols: []string{"RUNNING"}, Body: ir.Body{}},
					},
				},
			}}},
		}},
	}
	m := Extract(c, nil)
	assert.Equal(t, []string{"IDLE", "RUNNING"}, m.StateNames())
	require.Len(t, m.Transitions, 1)
	assert.Equal(t, "IDLE", m.Transitions[0].From)
	assert.Equal(t, "RUNNING", m.Transitions[0].To)
	assert.Equal(t, "MODE = IDLE", m.Transitions[0].Guard)
}

func TestHintCoverage(t *testing.T) {
	cfg := &Config{
		ExplicitStates: []string{"0", "1", "2", "3", "4"},
		TransitionHints: map[string][]string{
			"0": {"1"},
			"3": {"0"},
		},
	}
	m := Extract(stepMachine(), cfg)
	require.NotNil(t, m.Coverage)
	assert.Equal(t, []string{"4"}, m.Coverage.MissingStates)
	assert.Empty(t, m.Coverage.ExtraStates)
	assert.Equal(t, []string{"3->0"}, m.Coverage.MissingTransitions)
	assert.Equal(t, []string{"1->2", "2->3"}, m.Coverage.ExtraTransitions)

	// Advisory only: the model itself is unchanged by the hints.
	plain := Extract(stepMachine(), nil)
	assert.Equal(t, plain.States, m.States)
	assert.Equal(t, plain.Transitions, m.Transitions)
}

func TestLoadHints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hints.yaml")
	content := `controllers:
  HMI:
    state_var: HMI_P1_STATE
    explicit_states: ["0", "1"]
    transition_hints:
      "0": ["1"]
  default:
    state_var: STEP
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	hf, err := LoadHints(path)
	require.NoError(t, err)

	hmi := hf.For("HMI")
	require.NotNil(t, hmi)
	assert.Equal(t, "HMI_P1_STATE", hmi.StateVar)
	assert.Equal(t, []string{"0", "1"}, hmi.ExplicitStates)

	other := hf.For("PLC1")
	require.NotNil(t, other)
	assert.Equal(t, "STEP", other.StateVar)
}

func TestLoadHintsMissingFile(t *testing.T) {
	_, err := LoadHints(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
