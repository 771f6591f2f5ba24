package ir

import "strings"

// SourceType identifies the front end that produced a controller IR.
// The core never branches on it for analysis, only for reporting.
type SourceType string

const (
	SourceRockwell          SourceType = "rockwell"
	SourceOpenPLC           SourceType = "openplc"
	SourceSiemens           SourceType = "siemens"
	SourceSiemensLAD        SourceType = "siemens_lad"
	SourceFischertechnikTXT SourceType = "fischertechnik_txt"
)

// ValidSourceTypes defines the source type strings a front end may stamp.
var ValidSourceTypes = map[SourceType]bool{
	SourceRockwell:          true,
	SourceOpenPLC:           true,
	SourceSiemens:           true,
	SourceSiemensLAD:        true,
	SourceFischertechnikTXT: true,
}

// Scope distinguishes controller-global tags from program-local ones.
type Scope string

const (
	ScopeController Scope = "controller"
	ScopeProgram    Scope = "program"
)

// DataKind is the normalized type category of a tag. Front ends map
// vendor type names (BOOL, DINT, REAL, ...) onto these categories so
// conflict analysis compares like with like across dialects.
type DataKind string

const (
	KindBit     DataKind = "bit"
	KindInteger DataKind = "integer"
	KindReal    DataKind = "real"
	KindStruct  DataKind = "struct"
	KindArray   DataKind = "array"
	KindUDT     DataKind = "udt"
)

// Tag is a named addressable memory location in a controller.
// Identity is (scope, name), case-sensitive, namespaced per controller.
type Tag struct {
	Name        string   `json:"name"`
	DataType    string   `json:"data_type"`         // vendor type name as declared
	Kind        DataKind `json:"kind"`              // normalized category
	Scope       Scope    `json:"scope"`
	Initial     string   `json:"initial,omitempty"` // declared initial value
	Address     string   `json:"address,omitempty"` // hardware address, if any
	Description string   `json:"description,omitempty"`
}

// TagRef is a reference to a tag, optionally through a dotted member
// suffix. Bit-in-word and struct-field access look identical here so
// every dialect resolves the same way.
type TagRef struct {
	Tag    string `json:"tag"`
	Member string `json:"member,omitempty"` // dotted suffix without leading dot, e.g. "START"
}

// Key returns the identity used for def/use matching: base name plus
// member suffix, exact match.
func (r TagRef) Key() string {
	if r.Member == "" {
		return r.Tag
	}
	return r.Tag + "." + r.Member
}

func (r TagRef) String() string { return r.Key() }

// Base returns the base tag name with any member suffix stripped.
func (r TagRef) Base() string { return r.Tag }

// Comparison is an (in)equality test of a tag against a literal,
// pre-digested by the front end so guard structure survives without the
// core parsing expression text.
type Comparison struct {
	Ref     TagRef `json:"ref"`
	Op      string `json:"op"` // "=" or "<>"
	Literal string `json:"literal"`
	Symbol  string `json:"symbol,omitempty"` // symbolic label for the literal, if the source had one
}

// Expr is an expression as the front end saw it: the raw text, the tags
// it reads, and any literal/comparison structure the front end could
// preserve. The core never re-parses Text.
type Expr struct {
	Text     string       `json:"text"`
	Refs     []TagRef     `json:"refs,omitempty"`
	Compares []Comparison `json:"compares,omitempty"`
	Literal  string       `json:"literal,omitempty"` // set when the expression is a single literal
	Symbol   string       `json:"symbol,omitempty"`  // symbolic label for Literal, if any
}

// IsLiteral reports whether the expression is a single literal value.
func (e Expr) IsLiteral() bool { return e.Literal != "" }

// Label returns the symbolic name for a literal expression when the
// source retained one, else the literal itself.
func (e Expr) Label() string {
	if e.Symbol != "" {
		return e.Symbol
	}
	return e.Literal
}

// Routine is a named ordered instruction sequence owned by one program.
type Routine struct {
	Name string `json:"name"`
	Body Body   `json:"body"`
}

// Program is a named set of routines plus program-local tags, owned by
// one controller.
type Program struct {
	Name     string    `json:"name"`
	Routines []Routine `json:"routines"`
	Tags     []Tag     `json:"tags,omitempty"`
}

// UDTMember is one field of a user-defined data type.
type UDTMember struct {
	Name     string   `json:"name"`
	DataType string   `json:"data_type"`
	Kind     DataKind `json:"kind"`
}

// UDT is a user-defined structured data type.
type UDT struct {
	Name    string      `json:"name"`
	Members []UDTMember `json:"members"`
}

// Controller is one PLC project/source unit: programs, global tags and
// UDTs, stamped with the front end that produced it.
type Controller struct {
	Name        string     `json:"name"`
	SourceType  SourceType `json:"source_type"`
	Programs    []Program  `json:"programs"`
	Tags        []Tag      `json:"tags,omitempty"` // controller-global
	UDTs        []UDT      `json:"udts,omitempty"`
	Valid       bool       `json:"valid"`
	HasOverlay  bool       `json:"has_overlay"`
	Description string     `json:"description,omitempty"`
}

// Routine lookup by qualified name "Program.Routine".
func (c *Controller) Routine(qualified string) (*Routine, bool) {
	prog, rest, ok := strings.Cut(qualified, ".")
	if !ok {
		return nil, false
	}
	for pi := range c.Programs {
		if c.Programs[pi].Name != prog {
			continue
		}
		for ri := range c.Programs[pi].Routines {
			if c.Programs[pi].Routines[ri].Name == rest {
				return &c.Programs[pi].Routines[ri], true
			}
		}
	}
	return nil, false
}

// GlobalTag returns the controller-global tag with the given name.
func (c *Controller) GlobalTag(name string) (Tag, bool) {
	for _, t := range c.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}
