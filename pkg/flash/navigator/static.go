package navigator

import (
	"context"
	"regexp"

	"github.com/flashlang/flash-core/pkg/common"
)

// StaticNavigator is a fixed, in-memory Navigator backed by a caller-
// supplied element table. It is used by this module's own tests and is
// small enough to double as a reference implementation for callers
// wiring up FLASH against a pre-loaded StructureDefinition set; it does
// not parse or fetch StructureDefinitions itself.
type StaticNavigator struct {
	Elements map[string]ElementDefinition // key: "typeID::fullPath"
	Types    map[string]bool              // valid InstanceOf type ids

	regex *RegexCache
}

// NewStaticNavigator builds a StaticNavigator over elements and types.
// Both maps are deep-copied so a caller mutating its own map afterward
// cannot reach back into state a long-lived Navigator hands out to
// concurrent callers.
func NewStaticNavigator(elements map[string]ElementDefinition, types map[string]bool) *StaticNavigator {
	return &StaticNavigator{
		Elements: common.CloneMap(elements),
		Types:    common.CloneMap(types),
		regex:    NewRegexCache(),
	}
}

// ValidInstanceOf implements Navigator.
func (n *StaticNavigator) ValidInstanceOf(_ context.Context, typeID string) bool {
	return n.Types[typeID]
}

// ResolveElement implements Navigator.
func (n *StaticNavigator) ResolveElement(_ context.Context, typeID, fullPath string) (ElementDefinition, bool) {
	e, ok := n.Elements[typeID+"::"+fullPath]
	return e, ok
}

// CompileRegex implements Navigator.
func (n *StaticNavigator) CompileRegex(src string) (*regexp.Regexp, error) {
	return n.regex.GetOrCompile(src)
}
