package primitive

import (
	"testing"

	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
	"github.com/shopspring/decimal"
)

func newTestDispatcher() *Dispatcher {
	nav := navigator.NewStaticNavigator(nil, nil)
	return NewDispatcher(policy.New(policy.DefaultConfig(), nil), nav)
}

func TestDateCanonicalizeRoundTrip(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "dateTime"}
	out, err := d.Validate(diag.Position{}, "2015-02-07T13:28:17.239+02:00", ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2015-02-07T13:28:17.239+02:00" {
		t.Fatalf("expected round trip to preserve value, got %v", out)
	}
}

func TestDateTimeWithoutTimezoneRejected(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "dateTime"}
	_, err := d.Validate(diag.Position{}, "2015-02-07T13:28:17", ed)
	if err == nil {
		t.Fatal("expected an F5111 diagnostic for a dateTime with a time part but no timezone")
	}
}

func TestDateOnlyTruncatesFromDateTime(t *testing.T) {
	c := NewDateCanonicalizer(policy.New(policy.DefaultConfig(), nil))
	out, err := c.Canonicalize(diag.Position{}, "2015-02-07T13:28:17+02:00", "date")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2015-02-07" {
		t.Fatalf("expected truncation to date precision, got %q", out)
	}
}

func TestYearOnlyShape(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "date"}
	out, err := d.Validate(diag.Position{}, "2015", ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2015" {
		t.Fatalf("expected year-only value unchanged, got %v", out)
	}
}

func TestHourTwentyFourRejected(t *testing.T) {
	c := NewDateCanonicalizer(policy.New(policy.DefaultConfig(), nil))
	_, err := c.Canonicalize(diag.Position{}, "2015-02-07T24:00:00+02:00", "dateTime")
	if err == nil {
		t.Fatal("expected hour 24 to be rejected")
	}
}

func TestImpossibleCalendarDateRejected(t *testing.T) {
	c := NewDateCanonicalizer(policy.New(policy.DefaultConfig(), nil))
	for _, in := range []string{"2024-13-02", "2024-02-30", "2024-00-10"} {
		if _, err := c.Canonicalize(diag.Position{}, in, "date"); err == nil {
			t.Errorf("expected %q to be rejected", in)
		}
	}
}

func TestInstantWithoutTimezoneRejected(t *testing.T) {
	c := NewDateCanonicalizer(policy.New(policy.DefaultConfig(), nil))
	_, err := c.Canonicalize(diag.Position{}, "2015-02-07T13:28:17", "instant")
	if err == nil {
		t.Fatal("expected an instant without a timezone to be rejected")
	}
}

func TestLenientPolicyReturnsOriginalAndCollects(t *testing.T) {
	cfg := policy.NewConfig(policy.WithThrowLevel(diag.Fatal))
	pol := policy.New(cfg, nil)
	c := NewDateCanonicalizer(pol)
	out, err := c.Canonicalize(diag.Position{}, "2015-02-07T13:28:17", "dateTime")
	if err != nil {
		t.Fatalf("lenient policy must not throw, got %v", err)
	}
	if out != "2015-02-07T13:28:17" {
		t.Fatalf("expected original string back, got %q", out)
	}
	if len(pol.Diagnostics()) != 1 {
		t.Fatalf("expected the F5111 diagnostic to be collected, got %d", len(pol.Diagnostics()))
	}
}

func TestCanonicalizeIdempotentOnAcceptedOutput(t *testing.T) {
	c := NewDateCanonicalizer(policy.New(policy.DefaultConfig(), nil))
	for _, tc := range []struct{ in, typ string }{
		{"2015", "date"},
		{"2015-02", "date"},
		{"2015-02-07", "date"},
		{"2015-02-07T13:28+02:00", "dateTime"},
		{"2015-02-07T13:28:17Z", "dateTime"},
		{"2015-02-07T13:28:17.239+02:00", "instant"},
	} {
		first, err := c.Canonicalize(diag.Position{}, tc.in, tc.typ)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		second, err := c.Canonicalize(diag.Position{}, first, tc.typ)
		if err != nil {
			t.Fatalf("%q: re-canonicalize failed: %v", first, err)
		}
		if first != second {
			t.Fatalf("%q: not idempotent: %q then %q", tc.in, first, second)
		}
	}
}

func TestRegexOnNumericValueRendersDigits(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "positiveInt", HasRegex: true, RegexStr: `^[1-9][0-9]*$`}
	out, err := d.Validate(diag.Position{}, float64(42), ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != int64(42) {
		t.Fatalf("expected coerced int64(42), got %v (%T)", out, out)
	}
}

func TestStringLikeRejectsControlCharacters(t *testing.T) {
	v := NewStringValidator(policy.New(policy.DefaultConfig(), nil))
	ed := navigator.ElementDefinition{FHIRTypeCode: "string"}
	_, err := v.Validate(diag.Position{}, "bad\x01value", ed)
	if err == nil {
		t.Fatal("expected an F5112 diagnostic for an embedded control character")
	}
}

func TestStringLikeAllWhitespaceRejected(t *testing.T) {
	v := NewStringValidator(policy.New(policy.DefaultConfig(), nil))
	ed := navigator.ElementDefinition{FHIRTypeCode: "string"}
	_, err := v.Validate(diag.Position{}, "   ", ed)
	if err == nil {
		t.Fatal("expected an F5112 diagnostic for all-whitespace content")
	}
}

func TestCodeRejectsInternalTab(t *testing.T) {
	v := NewStringValidator(policy.New(policy.DefaultConfig(), nil))
	ed := navigator.ElementDefinition{FHIRTypeCode: "code"}
	_, err := v.Validate(diag.Position{}, "foo\tbar", ed)
	if err == nil {
		t.Fatal("expected an F5113 diagnostic for a tab separator inside a code")
	}
}

func TestCodeAcceptsNBSPSeparator(t *testing.T) {
	v := NewStringValidator(policy.New(policy.DefaultConfig(), nil))
	ed := navigator.ElementDefinition{FHIRTypeCode: "code"}
	out, err := v.Validate(diag.Position{}, "foo bar", ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "foo bar" {
		t.Fatalf("expected value unchanged, got %q", out)
	}
}

func TestMaxLengthIndependentOfContentGate(t *testing.T) {
	cfg := policy.NewConfig(policy.WithValidationLevel(diag.Invalid))
	v := NewStringValidator(policy.New(cfg, nil))
	ed := navigator.ElementDefinition{FHIRTypeCode: "string", HasMaxLength: true, MaxLength: 3}
	_, err := v.Validate(diag.Position{}, "abcdef", ed)
	if err == nil {
		t.Fatal("expected maxLength to be enforced even though content validation is inhibited")
	}
}

func TestMaxLengthIndependentOfContentGateViaDispatcher(t *testing.T) {
	cfg := policy.NewConfig(policy.WithValidationLevel(diag.Invalid))
	d := NewDispatcher(policy.New(cfg, nil), navigator.NewStaticNavigator(nil, nil))
	ed := navigator.ElementDefinition{FHIRTypeCode: "uri", HasMaxLength: true, MaxLength: 3, HasRegex: true, RegexStr: `^\S+$`}
	_, err := d.Validate(diag.Position{}, "abcdef", ed)
	if err == nil {
		t.Fatal("expected maxLength to be enforced by validateSystemOther even though F5110 regex checking is inhibited")
	}
	diagnostic, ok := err.(*diag.Diagnostic)
	if !ok {
		t.Fatalf("expected a *diag.Diagnostic, got %T", err)
	}
	if diagnostic.Code != diag.F5114 {
		t.Fatalf("expected F5114, got %s", diagnostic.Code)
	}
}

func TestBooleanCoercionFalseString(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "boolean"}
	out, err := d.Validate(diag.Position{}, "false", ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != false {
		t.Fatalf("expected string \"false\" to coerce to boolean false, got %v", out)
	}
}

func TestBooleanLiteralFalseIsNotAbsent(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "boolean"}
	out, err := d.Validate(diag.Position{}, false, ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != false {
		t.Fatalf("expected literal false to be validated as a real value, got %v", out)
	}
}

func TestDecimalCoercionPreservesPrecision(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "decimal"}
	out, err := d.Validate(diag.Position{}, "1.10", ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dec, ok := out.(decimal.Decimal)
	if !ok {
		t.Fatalf("expected a decimal.Decimal, got %T", out)
	}
	if dec.Exponent() != -2 || dec.Coefficient().Int64() != 110 {
		t.Fatalf("expected trailing precision preserved (110e-2), got %se%d", dec.Coefficient(), dec.Exponent())
	}
}

func TestAbsentValuePassesThroughUnvalidated(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "string"}
	out, err := d.Validate(diag.Position{}, "", ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty string to pass through unchanged, got %v", out)
	}
}

func TestArrayMappedElementwise(t *testing.T) {
	d := newTestDispatcher()
	ed := navigator.ElementDefinition{FHIRTypeCode: "code"}
	out, err := d.Validate(diag.Position{}, []interface{}{"active", "inactive"}, ed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := out.([]interface{})
	if !ok || len(arr) != 2 {
		t.Fatalf("expected a 2-element array, got %v", out)
	}
}
