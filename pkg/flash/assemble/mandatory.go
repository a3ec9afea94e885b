package assemble

import (
	"strings"

	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
)

// MandatoryEntry names one child a completed flash block must check for
// presence after assembly.
type MandatoryEntry struct {
	Names  []string
	Kind   navigator.Kind
	RefKey string // elementDefinitionRefs key: "typeId::dotted.path"
}

// MandatoryValidator is the post-assembly required-child-presence
// check: after a flash block finishes assembling, every mandatory
// entry must have landed on the result object.
type MandatoryValidator struct {
	pol *policy.Policy
	fac diag.Factory
}

// NewMandatoryValidator builds a MandatoryValidator bound to pol.
func NewMandatoryValidator(pol *policy.Policy) *MandatoryValidator {
	return &MandatoryValidator{pol: pol, fac: diag.NewFactory()}
}

// satisfied reports whether result carries one of e's declared names as
// an own key, or (for primitive-type/polymorphic entries) its
// "_"+name sibling. System and complex kinds never carry a sibling
// extension, so only the name itself counts for them.
func satisfied(e MandatoryEntry, result map[string]interface{}) bool {
	allowUnderscore := e.Kind == navigator.KindPrimitive || len(e.Names) > 1
	for _, name := range e.Names {
		if _, ok := result[name]; ok {
			return true
		}
		if allowUnderscore {
			if _, ok := result["_"+name]; ok {
				return true
			}
		}
	}
	return false
}

// splitRefKey normalizes "typeId::dotted.path" into a parent reference
// and the element's own final path segment, e.g. "Patient::id" ->
// ("Patient", "id") and "Patient::name.given" -> ("Patient/name", "given").
func splitRefKey(refKey string) (fhirParent, fhirElement string) {
	typeID, path, _ := strings.Cut(refKey, "::")
	if path == "" {
		return typeID, ""
	}
	segments := strings.Split(path, ".")
	fhirElement = segments[len(segments)-1]
	if len(segments) > 1 {
		fhirParent = typeID + "/" + strings.Join(segments[:len(segments)-1], "/")
	} else {
		fhirParent = typeID
	}
	return fhirParent, fhirElement
}

// Validate checks every entry against result, enforcing F5130 for each
// one missing. It returns the first enforced diagnostic (the one the
// caller should throw), having still run Enforce - and so collected or
// logged - every other violation found along the way.
func (v *MandatoryValidator) Validate(pos diag.Position, entries []MandatoryEntry, result map[string]interface{}) error {
	var first error
	for _, e := range entries {
		if satisfied(e, result) {
			continue
		}
		fhirParent, fhirElement := splitRefKey(e.RefKey)
		d := v.fac.New(diag.F5130, pos, diag.WithFHIRParent(fhirParent), diag.WithFHIRElement(fhirElement))
		if v.pol.Enforce(d) && first == nil {
			first = d
		}
	}
	return first
}
