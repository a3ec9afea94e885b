package diag

import "testing"

func TestSCodesBypassPolicy(t *testing.T) {
	for _, c := range []Code{S0201, S0206, S0207, S0209, S0210, S0213, S0215, S0216} {
		if !IsSCode(c) {
			t.Errorf("expected %s to be an S-code", c)
		}
	}
	if IsSCode(F5110) {
		t.Errorf("F5110 must not be treated as an S-code")
	}
}

func TestFactoryNewAppliesOptions(t *testing.T) {
	f := NewFactory()
	d := f.New(F5130, Position{Line: 3}, WithFHIRParent("Patient"), WithFHIRElement("id"))

	if d.FHIRParent != "Patient" || d.FHIRElement != "id" {
		t.Fatalf("options not applied: %+v", d)
	}
	if d.Severity() != Err {
		t.Fatalf("expected Err severity for F5130, got %d", d.Severity())
	}
}
