package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotrustlab/CrossPLC/internal/cfg"
	"github.com/iotrustlab/CrossPLC/internal/ir"
)

func routine(name string, body ...ir.Instruction) ir.Routine {
	return ir.Routine{Name: name, Body: body}
}

func controller(name string, routines ...ir.Routine) ir.Controller {
	return ir.Controller{
		Name:       name,
		SourceType: ir.SourceOpenPLC,
		Valid:      true,
		Programs:   []ir.Program{{Name: "Main", Routines: routines}},
	}
}

func TestAnnotateDefsAndUses(t *testing.T) {
	r := routine("R1",
		ir.Assignment{
			Target: ir.TagRef{Tag: "OUT"},
			Value:  ir.Expr{Text: "A + B", Refs: []ir.TagRef{{Tag: "A"}, {Tag: "B"}}},
		},
		ir.TimerOp{
			Op:    "TON",
			Timer: ir.TagRef{Tag: "T1"},
			Args:  []ir.Expr{{Text: "PRESET", Refs: []ir.TagRef{{Tag: "PRESET"}}}},
		},
	)

	g := Annotate(cfg.Build(r))

	entry := g.Blocks[0]
	assert.Equal(t, []string{"OUT", "T1"}, entry.Defs)
	assert.Equal(t, []string{"A", "B", "PRESET"}, entry.Uses)
}

func TestAnnotateGuardUsesLandInBranchBlock(t *testing.T) {
	r := routine("R1",
		ir.Conditional{
			Guard: ir.Expr{Text: "LIT101 > 800", Refs: []ir.TagRef{{Tag: "LIT101"}}},
			Then: ir.Body{
				ir.Assignment{Target: ir.TagRef{Tag: "MV101", Member: "CMD"}, Value: ir.Expr{Text: "1", Literal: "1"}},
			},
		},
	)

	g := Annotate(cfg.Build(r))

	var branch, then *cfg.Block
	for _, blk := range g.Blocks {
		switch {
		case blk.Kind == cfg.BlockBranch:
			branch = blk
		case len(blk.Defs) > 0:
			then = blk
		}
	}
	require.NotNil(t, branch)
	require.NotNil(t, then)
	assert.Equal(t, []string{"LIT101"}, branch.Uses)
	assert.Empty(t, branch.Defs)
	assert.Equal(t, []string{"MV101.CMD"}, then.Defs, "member suffix is part of tag identity")
}

func TestAnnotateRawFallbackUsesOnly(t *testing.T) {
	r := routine("R1",
		ir.RawFallback{Text: "MSG(CommBlock);", Refs: []ir.TagRef{{Tag: "CommBlock"}}},
	)

	g := Annotate(cfg.Build(r))

	entry := g.Blocks[0]
	assert.Empty(t, entry.Defs, "raw fallback sacrifices def precision")
	assert.Equal(t, []string{"CommBlock"}, entry.Uses)
}

func TestCrossRoutineFlows(t *testing.T) {
	writer := routine("R1",
		ir.Assignment{Target: ir.TagRef{Tag: "LEVEL"}, Value: ir.Expr{Text: "RAW", Refs: []ir.TagRef{{Tag: "RAW"}}}},
	)
	reader := routine("R2",
		ir.Conditional{
			Guard: ir.Expr{Text: "LEVEL > 500", Refs: []ir.TagRef{{Tag: "LEVEL"}}},
			Then: ir.Body{
				ir.Assignment{Target: ir.TagRef{Tag: "PUMP"}, Value: ir.Expr{Text: "1", Literal: "1"}},
			},
		},
	)

	deps := CrossRoutineFlows([]ir.Controller{controller("A", writer, reader)})

	require.Len(t, deps, 1)
	assert.Equal(t, "LEVEL", deps[0].Tag)
	assert.Equal(t, "A.Main.R1", deps[0].Writer)
	assert.Equal(t, []string{"A.Main.R2"}, deps[0].Readers)
}

func TestCrossRoutineFlowsExcludesSelf(t *testing.T) {
	selfRef := routine("R1",
		ir.Assignment{Target: ir.TagRef{Tag: "COUNT"}, Value: ir.Expr{Text: "COUNT + 1", Refs: []ir.TagRef{{Tag: "COUNT"}}}},
	)

	deps := CrossRoutineFlows([]ir.Controller{controller("A", selfRef)})
	assert.Empty(t, deps, "a routine reading its own writes is not a cross dependency")
}

func TestCrossRoutineFlowsAcrossControllers(t *testing.T) {
	a := controller("A", routine("R1",
		ir.Assignment{Target: ir.TagRef{Tag: "LEVEL"}, Value: ir.Expr{Text: "42", Literal: "42"}},
	))
	b := controller("B", routine("R2",
		ir.Assignment{Target: ir.TagRef{Tag: "ALARM"}, Value: ir.Expr{Text: "LEVEL > 900", Refs: []ir.TagRef{{Tag: "LEVEL"}}}},
	))

	deps := CrossRoutineFlows([]ir.Controller{a, b})

	require.Len(t, deps, 1)
	assert.Equal(t, "A.Main.R1", deps[0].Writer)
	assert.Equal(t, []string{"B.Main.R2"}, deps[0].Readers)
}

func TestFlowsBetweenDeterministicOrder(t *testing.T) {
	units := []Unit{
		{Name: "W", Defs: []string{"Z_TAG", "A_TAG"}},
		{Name: "R1", Uses: []string{"A_TAG", "Z_TAG"}},
		{Name: "R2", Uses: []string{"Z_TAG"}},
	}

	first := FlowsBetween(units)
	second := FlowsBetween(units)
	require.Equal(t, first, second)

	require.Len(t, first, 2)
	assert.Equal(t, "A_TAG", first[0].Tag, "tags sort by name within a writer")
	assert.Equal(t, "Z_TAG", first[1].Tag)
	assert.Equal(t, []string{"R1", "R2"}, first[1].Readers)
}
