package ast

import "strings"

// StepName returns the textual name carried by a single-step flash path
// segment, decorated with its slice bracket when present, e.g.
// "name[official]". Non-name steps (the step's Value isn't a string)
// return "".
func StepName(step *Node) string {
	if step == nil {
		return ""
	}
	name, _ := step.Value.(string)
	if name == "" {
		return ""
	}
	if step.Group != nil || step.SliceName == "" {
		return name
	}
	return name + "[" + step.SliceName + "]"
}

// DottedPath renders an absolute flash path (a slice of single-name
// steps) as the "dotted.path" half of an elementDefinitionRefs key,
// including slice decorations.
func DottedPath(steps []*Node) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, StepName(s))
	}
	return strings.Join(parts, ".")
}

// ElementDefinitionKey renders the "typeId::dotted.path" key used by
// RefTables.ElementDefinitionRefs.
func ElementDefinitionKey(instanceOf string, steps []*Node) string {
	return instanceOf + "::" + DottedPath(steps)
}
