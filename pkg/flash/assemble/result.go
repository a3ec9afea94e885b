// Package assemble implements the child-value assembly stage: turning
// one FHIR element definition plus its inline expression result and
// accumulated sub-rule results into the entries placed on the parent
// object, and the post-assembly mandatory-presence check.
package assemble

import "github.com/flashlang/flash-core/pkg/flash/navigator"

// FlashRuleResult is the tagged container a flash rule produces:
// {key, kind, value}. Recognition goes through IsFlashRuleResult rather
// than a struct-shape sniff, standing in for the unenumerable prototype
// marker the source uses to keep JSON-visible iteration clean — a
// distinct Go type already achieves that without any hidden-field trick.
type FlashRuleResult struct {
	Key   string
	Kind  navigator.Kind
	Value interface{}
}

// NewFlashRuleResult constructs one result.
func NewFlashRuleResult(key string, kind navigator.Kind, value interface{}) *FlashRuleResult {
	return &FlashRuleResult{Key: key, Kind: kind, Value: value}
}

// IsFlashRuleResult recognizes v as a FlashRuleResult.
func IsFlashRuleResult(v interface{}) (*FlashRuleResult, bool) {
	r, ok := v.(*FlashRuleResult)
	return r, ok
}

// NewFlashRuleResults is the array factory: it maps value to one result
// per element when value is a []interface{}, and to a single result
// otherwise.
func NewFlashRuleResults(key string, kind navigator.Kind, value interface{}) []*FlashRuleResult {
	if arr, ok := value.([]interface{}); ok {
		out := make([]*FlashRuleResult, len(arr))
		for i, v := range arr {
			out[i] = NewFlashRuleResult(key, kind, v)
		}
		return out
	}
	return []*FlashRuleResult{NewFlashRuleResult(key, kind, value)}
}
