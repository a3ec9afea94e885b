package ast

import "testing"

func TestAncestryResolveBindsLevelOne(t *testing.T) {
	tracker := NewAncestryTracker()
	owner := &Node{Type: Parent}
	slot := tracker.NewSlot(owner)

	step := &Node{Type: Name, Value: "given"}
	bubbled := Resolve(step, []AncestrySlot{slot})

	if len(bubbled) != 0 {
		t.Fatalf("expected no bubbled slots, got %d", len(bubbled))
	}
	if len(step.SeekingParent) != 1 || step.SeekingParent[0].Label != slot.Label {
		t.Fatalf("expected slot %s bound to step, got %+v", slot.Label, step.SeekingParent)
	}
}

func TestAncestryResolveDecrementsHigherLevels(t *testing.T) {
	slot := AncestrySlot{Label: "!0", Level: 2, Index: 0}
	step := &Node{Type: Name, Value: "given"}

	bubbled := Resolve(step, []AncestrySlot{slot})

	if len(step.SeekingParent) != 0 {
		t.Fatalf("level-2 slot must not bind yet, got %+v", step.SeekingParent)
	}
	if len(bubbled) != 1 || bubbled[0].Level != 1 {
		t.Fatalf("expected one bubbled slot at level 1, got %+v", bubbled)
	}
}

func TestElementDefinitionKeyWithSlice(t *testing.T) {
	steps := []*Node{
		{Type: Name, Value: "name"},
		{Type: Name, Value: "given", SliceName: "official"},
	}
	got := ElementDefinitionKey("Patient", steps)
	want := "Patient::name.given[official]"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRefTablesAppendCollision(t *testing.T) {
	tables := NewRefTables()
	tables.AddStructureDefinitionRef("Patient", Position{Position: 1})
	tables.AddStructureDefinitionRef("Patient", Position{Position: 10})

	if len(tables.StructureDefinitionRefs["Patient"]) != 2 {
		t.Fatalf("expected append collision policy, got %v", tables.StructureDefinitionRefs["Patient"])
	}
}
