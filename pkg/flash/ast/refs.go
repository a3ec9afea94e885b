package ast

// RefTables holds the two global reference tables gathered during
// post-processing. They are attached to the returned root node
// (Node.StructureDefinitionRefs / Node.ElementDefinitionRefs) and are
// read-only for the remainder of the compiled-expression lifetime.
type RefTables struct {
	// StructureDefinitionRefs maps a FHIR type id to every position an
	// `InstanceOf:` naming it was encountered.
	StructureDefinitionRefs map[string][]Position

	// ElementDefinitionRefs maps "typeId::dotted.path" (slice decorations
	// rendered as name[sliceName]) to every flash-rule target recorded
	// against it.
	ElementDefinitionRefs map[string][]ElementDefinitionRef
}

// NewRefTables returns an empty, ready-to-use table pair.
func NewRefTables() *RefTables {
	return &RefTables{
		StructureDefinitionRefs: make(map[string][]Position),
		ElementDefinitionRefs:   make(map[string][]ElementDefinitionRef),
	}
}

// AddStructureDefinitionRef records one `InstanceOf:` occurrence. Collision
// policy is append: every occurrence is kept, never overwritten.
func (t *RefTables) AddStructureDefinitionRef(typeID string, pos Position) {
	t.StructureDefinitionRefs[typeID] = append(t.StructureDefinitionRefs[typeID], pos)
}

// AddElementDefinitionRef records one flash-rule target and returns the
// key it was stored under, so the caller can stash it as
// Node.FlashPathRefKey.
func (t *RefTables) AddElementDefinitionRef(key string, ref ElementDefinitionRef) string {
	t.ElementDefinitionRefs[key] = append(t.ElementDefinitionRefs[key], ref)
	return key
}

// Empty reports whether no flash construct was ever recorded.
func (t *RefTables) Empty() bool {
	return len(t.StructureDefinitionRefs) == 0 && len(t.ElementDefinitionRefs) == 0
}

// AttachTo copies the tables onto the root node and marks it as
// containing flash constructs. A no-op when the tables are Empty, so a
// plain non-flash tree is never mismarked as containsFlash.
func (t *RefTables) AttachTo(root *Node) {
	if root == nil || t.Empty() {
		return
	}
	root.ContainsFlash = true
	root.StructureDefinitionRefs = t.StructureDefinitionRefs
	root.ElementDefinitionRefs = t.ElementDefinitionRefs
}
