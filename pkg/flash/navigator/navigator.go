// Package navigator declares the FHIR structure navigator FLASH consumes:
// resolving StructureDefinitions and element metadata is the surrounding
// engine's job, not implemented here.
package navigator

import (
	"context"
	"regexp"
)

// Kind is an element's FHIR structural kind.
type Kind string

const (
	KindSystem       Kind = "system"
	KindPrimitive    Kind = "primitive-type"
	KindComplex      Kind = "complex-type"
	KindResource     Kind = "resource"
)

// TypeChoice is one entry of an element's `type` array.
type TypeChoice struct {
	Code string
	Kind Kind
}

// ElementDefinition is the metadata FLASH resolves per flash-rule
// target, narrowed to the fields child-value assembly and primitive
// validation actually consume.
type ElementDefinition struct {
	FHIRTypeCode string // __fhirTypeCode: set only for system-primitive leaves
	RegexStr     string // __regexStr
	HasRegex     bool
	MaxLength    int
	HasMaxLength bool
	Kind         Kind // __kind
	Names        []string // __name: one or more JSON keys (polymorphic elements have several)
	Types        []TypeChoice
	BasePath     string
	SliceName    string
	Min          int
	Max          string // "*" unbounded, "0" prohibited, "1" single, or a digit string
}

// MaxOne reports whether this element's cardinality caps it at one value.
func (e ElementDefinition) MaxOne() bool {
	return e.Max == "1" || e.Max == "0"
}

// Mandatory reports whether this element must be present (min > 0).
func (e ElementDefinition) Mandatory() bool {
	return e.Min > 0
}

// Polymorphic reports whether this element has more than one declared
// name (a "value[x]"-style choice element).
func (e ElementDefinition) Polymorphic() bool {
	return len(e.Names) > 1
}

// Navigator resolves StructureDefinitions and element metadata. It is
// the sole collaborator the post-processor and child-value assembler
// need from the FHIR structure navigator.
type Navigator interface {
	// ValidInstanceOf reports whether typeID names a concrete
	// StructureDefinition that can head a flash block.
	ValidInstanceOf(ctx context.Context, typeID string) bool

	// ResolveElement returns the element definition for "typeID::fullPath",
	// or ok=false if the navigator has no such element.
	ResolveElement(ctx context.Context, typeID, fullPath string) (ElementDefinition, bool)

	// CompileRegex returns a compiled tester for src, computing and
	// caching it on first use behind a monotone get-or-compute map.
	CompileRegex(src string) (*regexp.Regexp, error)
}
