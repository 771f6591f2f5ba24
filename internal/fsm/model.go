package fsm

import "github.com/iotrustlab/CrossPLC/internal/ir"

// Classification buckets a state by its role in the machine.
type Classification string

const (
	StateInitial      Classification = "initial"
	StateTerminal     Classification = "terminal"
	StateIntermediate Classification = "intermediate"
)

// State is one inferred machine state, named by the literal value of
// the state variable or its preserved symbolic label.
type State struct {
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
}

// Transition is one inferred guarded transition. From is the
// statically-known enclosing state or "any"; Actions are the other
// assignments and calls of the same arm in source order.
type Transition struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Guard   string   `json:"guard"`
	Actions []string `json:"actions,omitempty"`
}

// Model is the finite-state machine inferred from control-flow shape
// over a detected state variable. An empty model carries Reason
// instead of failing: inference not finding a machine is a result,
// not an error.
type Model struct {
	StateVariable string         `json:"state_variable"`
	States        []State        `json:"states"`
	Transitions   []Transition   `json:"transitions"`
	Reason        string         `json:"reason,omitempty"`
	Coverage      *Coverage      `json:"coverage,omitempty"`
	Diags         ir.Diagnostics `json:"diagnostics,omitempty"`
}

// Empty reports whether inference produced no machine.
func (m Model) Empty() bool { return m.StateVariable == "" }

// StateNames returns the inferred state names in model order.
func (m Model) StateNames() []string {
	names := make([]string, 0, len(m.States))
	for _, s := range m.States {
		names = append(names, s.Name)
	}
	return names
}
