package ir

// Instruction is the tagged-variant node of the control-logic IR.
// Bodies own their nested instructions outright; nothing in the tree
// points back up, so a Routine owns every instruction it contains.
//
// Instructions are immutable after construction. Analysis passes only
// read them and produce separate derived structures.
type Instruction interface {
	// Kind returns the variant discriminator used on the wire.
	Kind() InstrKind
}

// InstrKind discriminates instruction variants in the JSON contract.
type InstrKind string

const (
	KindAssignment  InstrKind = "assignment"
	KindConditional InstrKind = "conditional"
	KindCase        InstrKind = "case"
	KindLoop        InstrKind = "loop"
	KindCall        InstrKind = "call"
	KindTimerOp     InstrKind = "timer_op"
	KindRawFallback InstrKind = "raw"
)

// Assignment writes the value of an expression to a target tag.
type Assignment struct {
	Target TagRef `json:"target"`
	Value  Expr   `json:"value"`
}

func (Assignment) Kind() InstrKind { return KindAssignment }

// Conditional is an IF with an optional ELSE. Both branch bodies are
// owned; an absent ELSE is an empty body, which still yields a false
// edge in the CFG.
type Conditional struct {
	Guard Expr `json:"guard"`
	Then  Body `json:"then"`
	Else  Body `json:"else,omitempty"`
}

func (Conditional) Kind() InstrKind { return KindConditional }

// CaseArm is one arm of a Case: the literal values that select it and
// the owned body.
type CaseArm struct {
	Values  []string `json:"values"`
	Symbols []string `json:"symbols,omitempty"` // symbolic labels for Values, parallel slice
	Body    Body     `json:"body"`
}

// Case selects one arm by literal value of the selector. Unmatched
// selector values fall through; an explicit default arm is optional.
type Case struct {
	Selector   Expr      `json:"selector"`
	Arms       []CaseArm `json:"arms"`
	Default    Body      `json:"default,omitempty"`
	HasDefault bool      `json:"has_default"`
}

func (Case) Kind() InstrKind { return KindCase }

// LoopKind distinguishes the loop flavors the dialects share.
type LoopKind string

const (
	LoopWhile  LoopKind = "while"
	LoopRepeat LoopKind = "repeat"
	LoopFor    LoopKind = "for"
)

// Loop is a guarded loop with an owned body. The guard is re-evaluated
// per iteration; in the CFG this is a structural back-edge only.
type Loop struct {
	LoopKind LoopKind `json:"loop_kind"`
	Guard    Expr     `json:"guard"`
	Body     Body     `json:"body"`
}

func (Loop) Kind() InstrKind { return KindLoop }

// Call invokes a named routine, function block or vendor instruction.
type Call struct {
	Name string `json:"name"`
	Args []Expr `json:"args,omitempty"`
}

func (Call) Kind() InstrKind { return KindCall }

// TimerOp is a timer instruction (TON, TOF, RTO, ...). The timer tag is
// written by the operation; arguments are read.
type TimerOp struct {
	Op    string `json:"op"`
	Timer TagRef `json:"timer"`
	Args  []Expr `json:"args,omitempty"`
}

func (TimerOp) Kind() InstrKind { return KindTimerOp }

// RawFallback preserves a statement the IR cannot model precisely:
// opaque text plus best-effort extracted tag references. Keeping it as
// a variant keeps the CFG valid; only this statement's def/use
// precision is lost.
type RawFallback struct {
	Text string   `json:"text"`
	Refs []TagRef `json:"refs,omitempty"`
}

func (RawFallback) Kind() InstrKind { return KindRawFallback }

// Walk visits every instruction in body in source order, descending
// into nested bodies. The visitor must not mutate the tree.
func Walk(body Body, visit func(Instruction)) {
	for _, instr := range body {
		visit(instr)
		switch in := instr.(type) {
		case Conditional:
			Walk(in.Then, visit)
			Walk(in.Else, visit)
		case Case:
			for _, arm := range in.Arms {
				Walk(arm.Body, visit)
			}
			Walk(in.Default, visit)
		case Loop:
			Walk(in.Body, visit)
		}
	}
}

// Reads returns every tag reference read by the instruction itself,
// excluding nested bodies (those surface when Walk visits them).
func Reads(instr Instruction) []TagRef {
	switch in := instr.(type) {
	case Assignment:
		return exprRefs(in.Value)
	case Conditional:
		return exprRefs(in.Guard)
	case Case:
		return exprRefs(in.Selector)
	case Loop:
		return exprRefs(in.Guard)
	case Call:
		var refs []TagRef
		for _, a := range in.Args {
			refs = append(refs, exprRefs(a)...)
		}
		return refs
	case TimerOp:
		var refs []TagRef
		for _, a := range in.Args {
			refs = append(refs, exprRefs(a)...)
		}
		return refs
	case RawFallback:
		return in.Refs
	}
	return nil
}

// Writes returns the tag reference defined by the instruction, if any.
func Writes(instr Instruction) (TagRef, bool) {
	switch in := instr.(type) {
	case Assignment:
		return in.Target, true
	case TimerOp:
		return in.Timer, true
	}
	return TagRef{}, false
}

func exprRefs(e Expr) []TagRef {
	refs := append([]TagRef(nil), e.Refs...)
	for _, cmp := range e.Compares {
		refs = append(refs, cmp.Ref)
	}
	return refs
}
