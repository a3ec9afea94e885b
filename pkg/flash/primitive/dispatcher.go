// Package primitive validates and canonicalizes the value assigned to a
// FHIR primitive element, dispatching by its resolved FHIR type code to
// a date/dateTime/instant canonicalizer, a string/markdown/code content
// validator, or generic system-type coercion (boolean, decimal, integer
// family).
package primitive

import (
	"strconv"

	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
)

// Dispatcher is the single entry point assemble calls to validate and
// canonicalize one primitive value (or an array of them) against its
// resolved ElementDefinition.
type Dispatcher struct {
	pol        *policy.Policy
	fac        diag.Factory
	nav        navigator.Navigator
	dateLike   *DateCanonicalizer
	stringLike *StringValidator
}

// NewDispatcher builds a Dispatcher bound to pol and nav. nav may be
// nil, in which case regex checks outside the date-like/string-like
// families are skipped (maxLength and coercion still run).
func NewDispatcher(pol *policy.Policy, nav navigator.Navigator) *Dispatcher {
	return &Dispatcher{
		pol:        pol,
		fac:        diag.NewFactory(),
		nav:        nav,
		dateLike:   NewDateCanonicalizer(pol),
		stringLike: NewStringValidator(pol),
	}
}

// isAbsent reports whether v should be treated as "no value supplied":
// nil, or any falsey value other than the literal boolean false, which
// is always a legitimate primitive value in its own right.
func isAbsent(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return false
	case string:
		return x == ""
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case []interface{}:
		return len(x) == 0
	}
	return false
}

// Validate validates/canonicalizes rawInput against ed. rawInput may be
// a scalar or a []interface{}, mapped elementwise; absent elements
// (isAbsent) pass through untouched.
func (d *Dispatcher) Validate(pos diag.Position, rawInput interface{}, ed navigator.ElementDefinition) (interface{}, error) {
	if arr, ok := rawInput.([]interface{}); ok {
		out := make([]interface{}, len(arr))
		for i, v := range arr {
			res, err := d.validateScalar(pos, v, ed)
			if err != nil {
				return nil, err
			}
			out[i] = res
		}
		return out, nil
	}
	return d.validateScalar(pos, rawInput, ed)
}

func (d *Dispatcher) validateScalar(pos diag.Position, v interface{}, ed navigator.ElementDefinition) (interface{}, error) {
	if isAbsent(v) {
		return v, nil
	}

	if ed.FHIRTypeCode == "" {
		diagnostic := d.fac.New(diag.F3007, pos)
		if d.pol.Enforce(diagnostic) {
			return v, diagnostic
		}
		return v, nil
	}

	if d.pol.ShouldValidate(diag.F5101) {
		switch v.(type) {
		case string, bool, float64, int, int64:
			// runtime type is one of the three JSON scalar kinds, ok
		default:
			diagnostic := d.fac.New(diag.F5101, pos, diag.WithValue(v), diag.WithFHIRType(ed.FHIRTypeCode))
			if d.pol.Enforce(diagnostic) {
				return v, diagnostic
			}
			return v, nil
		}
	}

	switch ed.FHIRTypeCode {
	case "date", "dateTime", "instant":
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		out, err := d.dateLike.Canonicalize(pos, s, ed.FHIRTypeCode)
		return out, err
	case "string", "markdown", "code":
		s := toDisplayString(v)
		out, err := d.stringLike.Validate(pos, s, ed)
		return out, err
	default:
		return d.validateSystemOther(pos, v, ed)
	}
}

func (d *Dispatcher) validateSystemOther(pos diag.Position, v interface{}, ed navigator.ElementDefinition) (interface{}, error) {
	if d.pol.ShouldValidate(diag.F5110) && ed.HasRegex && d.nav != nil {
		re, err := d.nav.CompileRegex(ed.RegexStr)
		if err == nil && re != nil {
			s := toDisplayString(v)
			if !re.MatchString(s) {
				diagnostic := d.fac.New(diag.F5110, pos, diag.WithRegex(ed.RegexStr), diag.WithValue(v), diag.WithFHIRType(ed.FHIRTypeCode))
				if d.pol.Enforce(diagnostic) {
					return v, diagnostic
				}
			}
		}
	}

	// maxLength is enforced independently of the F5110 content-check gate.
	if ed.HasMaxLength {
		s := toDisplayString(v)
		n := len([]rune(s))
		if n > ed.MaxLength {
			diagnostic := d.fac.New(diag.F5114, pos, diag.WithMaxLength(ed.MaxLength), diag.WithActualLength(n))
			if d.pol.Enforce(diagnostic) {
				return v, diagnostic
			}
		}
	}

	return coerceSystem(v, ed.FHIRTypeCode), nil
}

func toDisplayString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}
