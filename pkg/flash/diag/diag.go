// Package diag defines FLASH's diagnostic record and the codes it is
// raised under.
package diag

import "fmt"

// Severity is a half-open band; lower numbers are more severe.
type Severity int

const (
	Fatal   Severity = 0
	Invalid Severity = 10
	Err     Severity = 20
	Warning Severity = 30
	Notice  Severity = 40
	Info    Severity = 50
	Debug   Severity = 60
	Ceiling Severity = 70
)

// Code identifies a specific fault raised somewhere in the pipeline.
type Code string

const (
	// S-codes: syntax/AST-shape faults raised by the post-processor.
	// These bypass Policy entirely.
	S0201 Code = "S0201" // unknown operator
	S0206 Code = "S0206" // unknown node
	S0207 Code = "S0207" // unexpected end of input
	S0209 Code = "S0209" // predicate after group
	S0210 Code = "S0210" // duplicate group
	S0213 Code = "S0213" // numeric/value step
	S0215 Code = "S0215" // context after predicate/stages
	S0216 Code = "S0216" // context after sort

	// F1xxx: compile-time flash faults.
	F1026 Code = "F1026" // invalid InstanceOf identifier

	// F3xxx: evaluation-time structural faults.
	F3007 Code = "F3007" // missing FHIR type code
	F3015 Code = "F3015" // missing seed for deterministic UUID

	// F5xxx: policy-governed runtime validations.
	F5101 Code = "F5101" // non-primitive input
	F5110 Code = "F5110" // regex mismatch
	F5111 Code = "F5111" // date parse/roundtrip/shape failure
	F5112 Code = "F5112" // invalid string/markdown content
	F5113 Code = "F5113" // invalid code content
	F5114 Code = "F5114" // maxLength exceeded
	F5120 Code = "F5120" // value not in bound value set (no expansion contract; raised by external terminology plugins only)
	F5130 Code = "F5130" // mandatory child missing
)

// severityTable maps each code to its severity band. S-codes are not
// policy-governed but still carry a nominal severity for logging/display.
var severityTable = map[Code]Severity{
	S0201: Fatal,
	S0206: Fatal,
	S0207: Fatal,
	S0209: Fatal,
	S0210: Fatal,
	S0213: Fatal,
	S0215: Fatal,
	S0216: Fatal,

	F1026: Invalid,
	F3007: Invalid,
	F3015: Invalid,

	F5101: Err,
	F5110: Err,
	F5111: Err,
	F5112: Err,
	F5113: Err,
	F5114: Err,
	F5120: Warning,
	F5130: Err,
}

// SeverityFor returns the severity band for a code, defaulting to Err for
// an unregistered code (defensive default; every code used by this
// module is registered above).
func SeverityFor(code Code) Severity {
	if s, ok := severityTable[code]; ok {
		return s
	}
	return Err
}

// IsSCode reports whether a code bypasses Policy entirely.
func IsSCode(code Code) bool {
	switch code {
	case S0201, S0206, S0207, S0209, S0210, S0213, S0215, S0216:
		return true
	default:
		return false
	}
}

// Position mirrors ast.Position without importing the ast package, to
// keep diag dependency-free (it is consumed from both ast/postprocess
// and primitive/assemble).
type Position struct {
	Position int
	Start    int
	Line     int
}

// Diagnostic is the wire-level record emitted for every fault.
type Diagnostic struct {
	Code     Code
	Position
	Stack string

	InstanceOf   string
	FHIRElement  string
	FHIRParent   string
	Value        interface{}
	ValueType    string
	Regex        string
	MaxLength    int
	ActualLength int
	FHIRType     string
	Token        string
	Remaining    string

	Underlying error
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if d.Position.Line > 0 {
		return fmt.Sprintf("%s at %d:%d", d.Code, d.Position.Line, d.Position.Position)
	}
	if d.FHIRElement != "" {
		return fmt.Sprintf("%s on %s", d.Code, d.FHIRElement)
	}
	return string(d.Code)
}

// Unwrap supports errors.Is/As against the wrapped cause.
func (d *Diagnostic) Unwrap() error { return d.Underlying }

// Severity returns this diagnostic's configured severity band.
func (d *Diagnostic) Severity() Severity { return SeverityFor(d.Code) }
