package ir

import (
	"encoding/json"
	"fmt"
)

// Body is an ordered owned instruction sequence. It carries the JSON
// codec for the tagged-variant encoding front ends emit: every
// instruction object has a "kind" discriminator alongside the fields of
// its variant.
type Body []Instruction

// envelope is the wire form of one instruction, the union of all
// variant fields. Only the fields of the stamped kind are populated.
type envelope struct {
	Kind InstrKind `json:"kind"`

	// assignment
	Target *TagRef `json:"target,omitempty"`
	Value  *Expr   `json:"value,omitempty"`

	// conditional / loop guards
	Guard *Expr `json:"guard,omitempty"`
	Then  Body  `json:"then,omitempty"`
	Else  Body  `json:"else,omitempty"`

	// case
	Selector   *Expr         `json:"selector,omitempty"`
	Arms       []armEnvelope `json:"arms,omitempty"`
	Default    Body          `json:"default,omitempty"`
	HasDefault bool          `json:"has_default,omitempty"`

	// loop
	LoopKind LoopKind `json:"loop_kind,omitempty"`
	Body     Body     `json:"body,omitempty"`

	// call / timer
	Name  string  `json:"name,omitempty"`
	Op    string  `json:"op,omitempty"`
	Timer *TagRef `json:"timer,omitempty"`
	Args  []Expr  `json:"args,omitempty"`

	// raw fallback
	Text string   `json:"text,omitempty"`
	Refs []TagRef `json:"refs,omitempty"`
}

type armEnvelope struct {
	Values  []string `json:"values"`
	Symbols []string `json:"symbols,omitempty"`
	Body    Body     `json:"body"`
}

// MarshalJSON encodes the body as an array of kind-stamped objects.
func (b Body) MarshalJSON() ([]byte, error) {
	envs := make([]envelope, 0, len(b))
	for _, instr := range b {
		env, err := encodeInstr(instr)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

// UnmarshalJSON decodes an array of kind-stamped objects. An unknown
// kind is an error: the front-end contract is versioned, not guessed.
func (b *Body) UnmarshalJSON(data []byte) error {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return err
	}
	body := make(Body, 0, len(envs))
	for i, env := range envs {
		instr, err := decodeInstr(env)
		if err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		body = append(body, instr)
	}
	*b = body
	return nil
}

func encodeInstr(instr Instruction) (envelope, error) {
	switch in := instr.(type) {
	case Assignment:
		target, value := in.Target, in.Value
		return envelope{Kind: KindAssignment, Target: &target, Value: &value}, nil
	case Conditional:
		guard := in.Guard
		return envelope{Kind: KindConditional, Guard: &guard, Then: in.Then, Else: in.Else}, nil
	case Case:
		sel := in.Selector
		arms := make([]armEnvelope, 0, len(in.Arms))
		for _, arm := range in.Arms {
			arms = append(arms, armEnvelope{Values: arm.Values, Symbols: arm.Symbols, Body: arm.Body})
		}
		return envelope{Kind: KindCase, Selector: &sel, Arms: arms, Default: in.Default, HasDefault: in.HasDefault}, nil
	case Loop:
		guard := in.Guard
		return envelope{Kind: KindLoop, LoopKind: in.LoopKind, Guard: &guard, Body: in.Body}, nil
	case Call:
		return envelope{Kind: KindCall, Name: in.Name, Args: in.Args}, nil
	case TimerOp:
		timer := in.Timer
		return envelope{Kind: KindTimerOp, Op: in.Op, Timer: &timer, Args: in.Args}, nil
	case RawFallback:
		return envelope{Kind: KindRawFallback, Text: in.Text, Refs: in.Refs}, nil
	}
	return envelope{}, fmt.Errorf("unknown instruction type %T", instr)
}

func decodeInstr(env envelope) (Instruction, error) {
	switch env.Kind {
	case KindAssignment:
		if env.Target == nil {
			return nil, fmt.Errorf("assignment missing target")
		}
		var value Expr
		if env.Value != nil {
			value = *env.Value
		}
		return Assignment{Target: *env.Target, Value: value}, nil
	case KindConditional:
		if env.Guard == nil {
			return nil, fmt.Errorf("conditional missing guard")
		}
		return Conditional{Guard: *env.Guard, Then: env.Then, Else: env.Else}, nil
	case KindCase:
		if env.Selector == nil {
			return nil, fmt.Errorf("case missing selector")
		}
		arms := make([]CaseArm, 0, len(env.Arms))
		for _, arm := range env.Arms {
			arms = append(arms, CaseArm{Values: arm.Values, Symbols: arm.Symbols, Body: arm.Body})
		}
		return Case{Selector: *env.Selector, Arms: arms, Default: env.Default, HasDefault: env.HasDefault}, nil
	case KindLoop:
		if env.Guard == nil {
			return nil, fmt.Errorf("loop missing guard")
		}
		kind := env.LoopKind
		if kind == "" {
			kind = LoopWhile
		}
		return Loop{LoopKind: kind, Guard: *env.Guard, Body: env.Body}, nil
	case KindCall:
		if env.Name == "" {
			return nil, fmt.Errorf("call missing name")
		}
		return Call{Name: env.Name, Args: env.Args}, nil
	case KindTimerOp:
		if env.Timer == nil {
			return nil, fmt.Errorf("timer_op missing timer")
		}
		return TimerOp{Op: env.Op, Timer: *env.Timer, Args: env.Args}, nil
	case KindRawFallback:
		return RawFallback{Text: env.Text, Refs: env.Refs}, nil
	}
	return nil, fmt.Errorf("unknown instruction kind %q", env.Kind)
}
