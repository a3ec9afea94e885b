package ast

import "fmt"

// AncestrySlot is an unbound parent reference token. Level counts how
// many path boundaries remain before the slot binds to an enclosing
// step; it starts at 1 and is decremented each time it crosses a
// boundary without binding.
type AncestrySlot struct {
	Label string // "!" + Index, stable regardless of Level
	Level int
	Index int
}

// AncestryTracker owns the monotonically increasing label/index counters
// and the ordered list of `parent` nodes registered while lowering a
// single expression. It is created fresh per post-processing invocation
// and is not shared across compiled expressions.
type AncestryTracker struct {
	nextIndex int
	ancestors []*Node
}

// NewAncestryTracker returns an empty tracker.
func NewAncestryTracker() *AncestryTracker {
	return &AncestryTracker{}
}

// NewSlot allocates a fresh slot at level 1 and registers the owning
// parent node so later lookups can recover it.
func (t *AncestryTracker) NewSlot(owner *Node) AncestrySlot {
	idx := t.nextIndex
	t.nextIndex++
	slot := AncestrySlot{Label: fmt.Sprintf("!%d", idx), Level: 1, Index: idx}
	owner.Slot = &slot
	t.ancestors = append(t.ancestors, owner)
	return slot
}

// Ancestors returns the ordered list of registered parent nodes.
func (t *AncestryTracker) Ancestors() []*Node {
	return t.ancestors
}

// Resolve partitions pending slots bubbling out of a just-lowered
// subtree against a path/step boundary: slots at level 1 bind to the
// boundary's SeekingParent list (in the order encountered); every other
// slot has its level decremented and is returned so the caller can keep
// propagating it outward. Binding is idempotent per call: a slot is
// never both bound and returned.
func Resolve(boundary *Node, pending []AncestrySlot) []AncestrySlot {
	if len(pending) == 0 {
		return nil
	}
	var bubbled []AncestrySlot
	for _, s := range pending {
		if s.Level <= 1 {
			boundary.SeekingParent = append(boundary.SeekingParent, s)
			continue
		}
		s.Level--
		bubbled = append(bubbled, s)
	}
	return bubbled
}

// Merge concatenates pending-ancestry lists preserving order, innermost
// (first encountered) first, as required for deterministic,
// innermost-first slot resolution.
func Merge(lists ...[]AncestrySlot) []AncestrySlot {
	var out []AncestrySlot
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
