package cfg

import (
	"strings"

	"github.com/iotrustlab/CrossPLC/internal/ir"
)

// Build constructs the control flow graph for one routine. It is a
// pure function over the IR: identical input yields identical blocks,
// edges and ids. An empty routine body yields a single empty entry
// block.
//
// A Conditional, Case or Loop always starts a new block boundary, so
// every branch has exactly one source node. Conditionals emit true and
// false edges and reconverge through a successor edge into the block
// following them. A Case without an explicit default still gets a
// fallthrough edge to the next instruction. A Loop closes with a
// back-edge from the body's last block to the guard block; the
// back-edge is a structural marker only, never executed by analysis.
func Build(routine ir.Routine) *Graph {
	b := &builder{graph: &Graph{Routine: routine.Name}}
	entry := b.newBlock(BlockInstruction, "")
	b.buildBody(routine.Body, entry)
	return b.graph
}

type builder struct {
	graph *Graph
}

func (b *builder) newBlock(kind BlockKind, label string) *Block {
	blk := &Block{ID: len(b.graph.Blocks), Kind: kind, Label: label}
	b.graph.Blocks = append(b.graph.Blocks, blk)
	return blk
}

func (b *builder) addInstr(instr ir.Instruction) int {
	b.graph.instrs = append(b.graph.instrs, instr)
	return len(b.graph.instrs) - 1
}

func (b *builder) edge(from, to *Block, typ FlowType) {
	b.graph.Edges = append(b.graph.Edges, Edge{From: from.ID, To: to.ID, Type: typ})
}

func (b *builder) caseEdge(from, to *Block, value string) {
	b.graph.Edges = append(b.graph.Edges, Edge{From: from.ID, To: to.ID, Type: FlowCase, Value: value})
}

// buildBody lowers an instruction sequence starting in cur and returns
// the block control falls out of.
func (b *builder) buildBody(body ir.Body, cur *Block) *Block {
	for _, instr := range body {
		switch in := instr.(type) {
		case ir.Conditional:
			cur = b.buildConditional(in, cur)
		case ir.Case:
			cur = b.buildCase(in, cur)
		case ir.Loop:
			cur = b.buildLoop(in, cur)
		default:
			cur.Instrs = append(cur.Instrs, b.addInstr(instr))
		}
	}
	return cur
}

func (b *builder) buildConditional(in ir.Conditional, cur *Block) *Block {
	branch := b.newBlock(BlockBranch, in.Guard.Text)
	branch.Instrs = append(branch.Instrs, b.addInstr(in))
	b.edge(cur, branch, FlowSuccessor)

	var thenExit, elseExit *Block
	if len(in.Then) > 0 {
		entry := b.newBlock(BlockInstruction, "")
		b.edge(branch, entry, FlowTrue)
		thenExit = b.buildBody(in.Then, entry)
	}
	if len(in.Else) > 0 {
		entry := b.newBlock(BlockInstruction, "")
		b.edge(branch, entry, FlowFalse)
		elseExit = b.buildBody(in.Else, entry)
	}

	join := b.newBlock(BlockInstruction, "")
	if thenExit != nil {
		b.edge(thenExit, join, FlowSuccessor)
	} else {
		b.edge(branch, join, FlowTrue)
	}
	if elseExit != nil {
		b.edge(elseExit, join, FlowSuccessor)
	} else {
		b.edge(branch, join, FlowFalse)
	}
	return join
}

func (b *builder) buildCase(in ir.Case, cur *Block) *Block {
	branch := b.newBlock(BlockBranch, "CASE "+in.Selector.Text)
	branch.Instrs = append(branch.Instrs, b.addInstr(in))
	b.edge(cur, branch, FlowSuccessor)

	var exits []*Block
	for _, arm := range in.Arms {
		entry := b.newBlock(BlockInstruction, "")
		for _, value := range arm.Values {
			b.caseEdge(branch, entry, value)
		}
		exits = append(exits, b.buildBody(arm.Body, entry))
	}

	var defaultExit *Block
	if in.HasDefault {
		entry := b.newBlock(BlockInstruction, "")
		b.caseEdge(branch, entry, "default")
		defaultExit = b.buildBody(in.Default, entry)
	}

	join := b.newBlock(BlockInstruction, "")
	for _, exit := range exits {
		b.edge(exit, join, FlowSuccessor)
	}
	if defaultExit != nil {
		b.edge(defaultExit, join, FlowSuccessor)
	} else {
		// Unmatched selector values fall through, not an error.
		b.caseEdge(branch, join, "default")
	}
	return join
}

func (b *builder) buildLoop(in ir.Loop, cur *Block) *Block {
	label := strings.ToUpper(string(in.LoopKind)) + " " + in.Guard.Text
	guard := b.newBlock(BlockControl, label)
	guard.Instrs = append(guard.Instrs, b.addInstr(in))
	b.edge(cur, guard, FlowSuccessor)

	var bodyExit *Block
	if len(in.Body) > 0 {
		entry := b.newBlock(BlockInstruction, "")
		b.edge(guard, entry, FlowTrue)
		bodyExit = b.buildBody(in.Body, entry)
	}

	// Back-edge to the guard; a structural marker, never followed.
	if bodyExit != nil {
		b.edge(bodyExit, guard, FlowSuccessor)
	} else {
		b.edge(guard, guard, FlowTrue)
	}

	join := b.newBlock(BlockInstruction, "")
	b.edge(guard, join, FlowFalse)
	return join
}
