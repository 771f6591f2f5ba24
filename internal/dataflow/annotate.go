package dataflow

import (
	"sort"

	"github.com/iotrustlab/CrossPLC/internal/cfg"
	"github.com/iotrustlab/CrossPLC/internal/ir"
)

// Annotate computes per-block def and use sets for a control flow
// graph and returns the same graph with blocks filled in.
//
// defs are the targets of any Assignment or TimerOp in the block; uses
// are every tag read in any guard, expression or argument in the
// block. This is a lexical, flow-insensitive, single-pass summary: a
// conservative approximation, not reaching-definitions. Raw fallback
// statements contribute their best-effort references as uses only.
func Annotate(g *cfg.Graph) *cfg.Graph {
	for _, blk := range g.Blocks {
		defs := make(map[string]bool)
		uses := make(map[string]bool)
		for _, idx := range blk.Instrs {
			instr := g.Instr(idx)
			if target, ok := ir.Writes(instr); ok {
				defs[target.Key()] = true
			}
			for _, ref := range ir.Reads(instr) {
				uses[ref.Key()] = true
			}
		}
		blk.Defs = sortedKeys(defs)
		blk.Uses = sortedKeys(uses)
	}
	return g
}

// Summarize returns the union of def and use sets across all blocks of
// an annotated graph, sorted by tag name.
func Summarize(g *cfg.Graph) (defs, uses []string) {
	defSet := make(map[string]bool)
	useSet := make(map[string]bool)
	for _, blk := range g.Blocks {
		for _, d := range blk.Defs {
			defSet[d] = true
		}
		for _, u := range blk.Uses {
			useSet[u] = true
		}
	}
	return sortedKeys(defSet), sortedKeys(useSet)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
