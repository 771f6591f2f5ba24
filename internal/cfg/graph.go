package cfg

import (
	"fmt"

	"github.com/iotrustlab/CrossPLC/internal/ir"
)

// FlowType labels an edge in a control flow graph.
type FlowType string

const (
	FlowSuccessor FlowType = "successor"
	FlowTrue      FlowType = "true"
	FlowFalse     FlowType = "false"
	FlowCase      FlowType = "case-value"
)

// BlockKind categorizes a basic block for reporting.
type BlockKind string

const (
	// BlockInstruction is a straight-line run of instructions.
	BlockInstruction BlockKind = "instruction"

	// BlockBranch holds exactly one Conditional or Case head.
	BlockBranch BlockKind = "branch"

	// BlockControl holds exactly one loop guard.
	BlockControl BlockKind = "control"
)

// Block is a maximal straight-line run with a single entry and explicit
// exit edges. IDs are unique within the routine; block 0 is the entry.
type Block struct {
	ID    int
	Kind  BlockKind
	Label string // guard or selector text for branch/control blocks

	// Instrs indexes into the graph's flattened instruction sequence.
	// The routine owns its instructions; blocks only reference them.
	Instrs []int

	// Defs and Uses are filled by the data-flow pass, sorted.
	Defs []string
	Uses []string
}

// Edge is a labeled directed edge between blocks. Value carries the
// selector literal for case-value edges ("default" for the implicit or
// explicit fallthrough arm).
type Edge struct {
	From  int
	To    int
	Type  FlowType
	Value string
}

// Graph is the per-routine control flow graph: blocks plus labeled
// edges. Exit is implicit; a block with no outgoing edges falls off the
// routine.
type Graph struct {
	Routine string
	Blocks  []*Block
	Edges   []Edge

	instrs []ir.Instruction // flattened in visit order
}

// Instr returns the instruction at the given flattened index.
func (g *Graph) Instr(i int) ir.Instruction { return g.instrs[i] }

// NumInstrs returns the number of flattened instructions.
func (g *Graph) NumInstrs() int { return len(g.instrs) }

// Out returns the outgoing edges of a block in insertion order.
func (g *Graph) Out(id int) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// In returns the incoming edges of a block in insertion order.
func (g *Graph) In(id int) []Edge {
	var in []Edge
	for _, e := range g.Edges {
		if e.To == id {
			in = append(in, e)
		}
	}
	return in
}

// NodeID is the report identifier for a block, unique across routines.
func (g *Graph) NodeID(id int) string {
	return fmt.Sprintf("%s.b%d", g.Routine, id)
}
