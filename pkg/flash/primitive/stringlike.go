package primitive

import (
	"unicode"
	"unicode/utf8"

	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/navigator"
	"github.com/flashlang/flash-core/pkg/flash/policy"
)

// StringValidator checks the content rules for string/markdown/code
// primitives and enforces maxLength independently of whether content
// checking itself is switched off.
type StringValidator struct {
	pol *policy.Policy
	fac diag.Factory
}

// NewStringValidator builds a StringValidator bound to pol.
func NewStringValidator(pol *policy.Policy) *StringValidator {
	return &StringValidator{pol: pol, fac: diag.NewFactory()}
}

const truncatedPreviewLen = 100

// nbsp is the one non-ASCII-space separator a code is allowed to carry
// between words, U+00A0 NO-BREAK SPACE.
const nbsp rune = 0x00A0

func previewValue(s string) string {
	if utf8.RuneCountInString(s) <= truncatedPreviewLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:truncatedPreviewLen]) + "... (" + itoa(len(runes)) + " chars total)"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// isWhitespaceRune reports whether r is any Unicode whitespace
// character, including the NBSP separator codes are allowed to use
// internally but never at either end.
func isWhitespaceRune(r rune) bool {
	return unicode.IsSpace(r)
}

// isCodeValid enforces the code content rule: non-empty, no leading or
// trailing whitespace, only the ASCII space or NBSP as internal word
// separators, and never two separators in a row.
func isCodeValid(s string) bool {
	if s == "" {
		return false
	}
	runes := []rune(s)
	if isWhitespaceRune(runes[0]) || isWhitespaceRune(runes[len(runes)-1]) {
		return false
	}
	prevSeparator := false
	for _, r := range runes {
		if r == ' ' || r == nbsp {
			if prevSeparator {
				return false
			}
			prevSeparator = true
			continue
		}
		if isWhitespaceRune(r) {
			return false
		}
		prevSeparator = false
	}
	return true
}

// isStringLikeValid enforces the string/markdown content rule: every
// code point must be TAB/LF/CR or >= 0x20 and outside the C1 control
// range, and at least one code point must be non-whitespace.
func isStringLikeValid(s string) bool {
	hasNonWhitespace := false
	for _, r := range s {
		if r != '\t' && r != '\n' && r != '\r' && r < 0x20 {
			return false
		}
		if r >= 0x80 && r <= 0x9f {
			return false
		}
		if !isWhitespaceRune(r) {
			hasNonWhitespace = true
		}
	}
	return hasNonWhitespace
}

// Validate checks s against ed's FHIR type ("code", "string" or
// "markdown") and maxLength, returning s unchanged: primitives in this
// family only validate, they never canonicalize.
func (v *StringValidator) Validate(pos diag.Position, s string, ed navigator.ElementDefinition) (string, error) {
	if v.pol.ShouldValidate(diag.F5110) {
		var code diag.Code
		var valid bool
		if ed.FHIRTypeCode == "code" {
			code, valid = diag.F5113, isCodeValid(s)
		} else {
			code, valid = diag.F5112, isStringLikeValid(s)
		}
		if !valid {
			d := v.fac.New(code, pos, diag.WithValue(previewValue(s)), diag.WithFHIRType(ed.FHIRTypeCode))
			if v.pol.Enforce(d) {
				return s, d
			}
		}
	}

	if ed.HasMaxLength {
		n := utf8.RuneCountInString(s)
		if n > ed.MaxLength {
			d := v.fac.New(diag.F5114, pos,
				diag.WithValue(previewValue(s)),
				diag.WithMaxLength(ed.MaxLength),
				diag.WithActualLength(n))
			if v.pol.Enforce(d) {
				return s, d
			}
		}
	}

	return s, nil
}
