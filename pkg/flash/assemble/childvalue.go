package assemble

import (
	"context"

	"github.com/flashlang/flash-core/pkg/flash/ast"
	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/evalhook"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
	"github.com/flashlang/flash-core/pkg/flash/primitive"
)

// ChildValueProcessor assembles one FHIR element's value(s) from its
// parent pattern, inline expression result, and accumulated sub-rule
// results.
type ChildValueProcessor struct {
	pol  *policy.Policy
	fac  diag.Factory
	prim *primitive.Dispatcher
	eval evalhook.Evaluator
}

// NewChildValueProcessor builds a processor. eval may be nil, in which
// case the virtual-rule fallback is never attempted.
func NewChildValueProcessor(pol *policy.Policy, prim *primitive.Dispatcher, eval evalhook.Evaluator) *ChildValueProcessor {
	return &ChildValueProcessor{pol: pol, fac: diag.NewFactory(), prim: prim, eval: eval}
}

// ChildInput bundles one child element's definition and its three
// value sources.
type ChildInput struct {
	Element       navigator.ElementDefinition
	InstanceOf    string
	RefKey        string // elementDefinitionRefs key: "typeId::dotted.path"
	ParentPattern map[string]interface{}
	InlineResult  map[string]interface{}
	SubRules      []*FlashRuleResult
	Position      ast.Position
}

// childNames implements the name-generation rule: single-name,
// non-polymorphic with a slice decoration renders as "name:sliceName";
// single-name polymorphic narrowed to one type is just the name;
// multi-name polymorphic yields every declared name.
func childNames(ed navigator.ElementDefinition) []string {
	switch len(ed.Names) {
	case 0:
		return nil
	case 1:
		if !ed.Polymorphic() && ed.SliceName != "" {
			return []string{ed.Names[0] + ":" + ed.SliceName}
		}
		return []string{ed.Names[0]}
	default:
		out := make([]string, len(ed.Names))
		copy(out, ed.Names)
		return out
	}
}

// collectRawValues gathers, in source-precedence order, the parent
// pattern's pre-existing value, the inline result's value (spread when
// it is an array and the element is multi-valued), and every matching
// sub-rule value (flattened).
func collectRawValues(ed navigator.ElementDefinition, name string, parentPattern, inlineResult map[string]interface{}, subRules []*FlashRuleResult) []interface{} {
	var values []interface{}

	if parentPattern != nil {
		if base, ok := parentPattern[name]; ok {
			values = append(values, base)
		}
	}

	if inlineResult != nil {
		if v, ok := inlineResult[name]; ok {
			values = appendSpread(values, v, ed.MaxOne())
		}
	}

	for _, sr := range subRules {
		if sr == nil || sr.Key != name {
			continue
		}
		values = appendSpread(values, sr.Value, false)
	}

	return values
}

func appendSpread(values []interface{}, v interface{}, maxOne bool) []interface{} {
	if arr, ok := v.([]interface{}); ok && !maxOne {
		return append(values, arr...)
	}
	return append(values, v)
}

// collapseValues applies the cardinality/kind collapse rule: max==1 and
// kind system keeps only the last value; max==1 and kind complex or
// primitive merges every object-shaped value into one (later wins on
// key conflict), falling back to the last scalar when none were
// objects, and drops the result entirely if the merge produced nothing;
// an array-valued child keeps every collected value.
func collapseValues(ed navigator.ElementDefinition, values []interface{}) []interface{} {
	if len(values) == 0 {
		return nil
	}
	if !ed.MaxOne() {
		return values
	}
	if ed.Kind == navigator.KindSystem {
		return values[len(values)-1:]
	}

	merged := map[string]interface{}{}
	sawObject := false
	for _, v := range values {
		if m, ok := v.(map[string]interface{}); ok {
			sawObject = true
			for k, vv := range m {
				merged[k] = vv
			}
		}
	}
	if sawObject {
		if len(merged) == 0 {
			return nil
		}
		return []interface{}{merged}
	}
	return values[len(values)-1:]
}

// Process returns every {name, kind, value} entry this child element
// contributes to the parent object.
func (p *ChildValueProcessor) Process(ctx context.Context, in ChildInput, env evalhook.Environment) ([]*FlashRuleResult, error) {
	var out []*FlashRuleResult
	produced := false

	for _, name := range childNames(in.Element) {
		raw := collectRawValues(in.Element, name, in.ParentPattern, in.InlineResult, in.SubRules)
		values := collapseValues(in.Element, raw)
		for _, v := range values {
			produced = true
			wrapped, ext, err := p.wrapPrimitive(in, name, v)
			if err != nil {
				return nil, err
			}
			out = append(out, NewFlashRuleResult(name, in.Element.Kind, wrapped))
			if ext != nil {
				out = append(out, NewFlashRuleResult("_"+name, in.Element.Kind, ext))
			}
		}
	}

	if !produced && in.Element.Mandatory() && !in.Element.Polymorphic() {
		if vr := p.runVirtualRule(ctx, in, env); vr != nil {
			out = append(out, vr)
		}
	}

	return out, nil
}

// wrapPrimitive validates a leaf primitive value and, if the inline
// result carried a sibling extension object at "_"+name, returns it
// alongside so the caller can emit it as its own result.
func (p *ChildValueProcessor) wrapPrimitive(in ChildInput, name string, v interface{}) (interface{}, interface{}, error) {
	if in.Element.Kind != navigator.KindSystem && in.Element.Kind != navigator.KindPrimitive {
		return v, nil, nil
	}
	validated, err := p.prim.Validate(toDiagPosition(in.Position), v, in.Element)
	if err != nil {
		return nil, nil, err
	}
	var ext map[string]interface{}
	// Parent pattern first, inline result second: later wins on key
	// conflict, matching the source-precedence order of the values
	// themselves.
	for _, src := range []map[string]interface{}{in.ParentPattern, in.InlineResult} {
		if src == nil {
			continue
		}
		m, ok := src["_"+name].(map[string]interface{})
		if !ok || len(m) == 0 {
			continue
		}
		if ext == nil {
			ext = map[string]interface{}{}
		}
		for k, vv := range m {
			ext[k] = vv
		}
	}
	if ext == nil {
		return validated, nil, nil
	}
	return validated, ext, nil
}

// runVirtualRule synthesizes and evaluates the virtual flash rule used
// to fill a mandatory child with no authored value. Any error from the
// virtual path is swallowed, producing "no value" rather than failing
// the whole block.
func (p *ChildValueProcessor) runVirtualRule(ctx context.Context, in ChildInput, env evalhook.Environment) *FlashRuleResult {
	if p.eval == nil {
		return nil
	}
	node := evalhook.VirtualRule(in.InstanceOf, in.RefKey, in.Position)
	result, err := p.eval.Evaluate(ctx, node, env)
	if err != nil {
		return nil
	}
	r, ok := IsFlashRuleResult(result)
	if !ok {
		return nil
	}
	return r
}

func toDiagPosition(p ast.Position) diag.Position {
	return diag.Position{Position: p.Position, Start: p.Start, Line: p.Line}
}
