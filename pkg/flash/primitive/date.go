package primitive

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/flashlang/flash-core/pkg/flash/diag"
	"github.com/flashlang/flash-core/pkg/flash/policy"
)

// DateCanonicalizer implements strict validation plus canonical
// formatting of date/dateTime/instant strings: one anchored pattern per
// precision shape, with the detected precision preserved through
// re-formatting.
type DateCanonicalizer struct {
	pol *policy.Policy
	fac diag.Factory
}

// NewDateCanonicalizer builds a DateCanonicalizer bound to pol.
func NewDateCanonicalizer(pol *policy.Policy) *DateCanonicalizer {
	return &DateCanonicalizer{pol: pol, fac: diag.NewFactory()}
}

var (
	reYear      = regexp.MustCompile(`^\d{4}$`)
	reYearMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)
	reFull      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:T(\d{2}):(\d{2})(?::(\d{2})(?:\.(\d+))?)?(Z|[+-]\d{2}:\d{2})?)?$`)
)

type dateShape struct {
	hasMonth, hasDay                      bool
	hasTime, hasSecond, hasFraction       bool
	hasTZ                                 bool
	year, month, day, hour, minute, second int
	fracStr                               string
	tzLiteral                             string
}

// detectShape recognizes one of the anchored precision patterns for
// year, year-month, date, and date-time shapes, and extracts its
// components. ok is false for malformed input.
func detectShape(s string) (dateShape, bool) {
	if reYear.MatchString(s) {
		y, _ := strconv.Atoi(s)
		return dateShape{year: y}, true
	}
	if reYearMonth.MatchString(s) {
		y, _ := strconv.Atoi(s[:4])
		m, _ := strconv.Atoi(s[5:7])
		return dateShape{year: y, month: m, hasMonth: true}, true
	}
	m := reFull.FindStringSubmatch(s)
	if m == nil {
		return dateShape{}, false
	}
	sh := dateShape{hasMonth: true, hasDay: true}
	sh.year, _ = strconv.Atoi(m[1])
	sh.month, _ = strconv.Atoi(m[2])
	sh.day, _ = strconv.Atoi(m[3])
	if m[4] != "" {
		sh.hasTime = true
		sh.hour, _ = strconv.Atoi(m[4])
		sh.minute, _ = strconv.Atoi(m[5])
		if m[6] != "" {
			sh.hasSecond = true
			sh.second, _ = strconv.Atoi(m[6])
		}
		if m[7] != "" {
			sh.hasFraction = true
			sh.fracStr = m[7]
		}
		if m[8] != "" {
			sh.hasTZ = true
			sh.tzLiteral = m[8]
		}
	}
	return sh, true
}

// validComponents checks that the detected components describe a moment
// the calendar actually contains. Day-of-month is checked by letting
// time.Date normalize and comparing: an overflowing day (Feb 30) comes
// back shifted. Second 60 is allowed for leap seconds; a timezone
// offset is bounded at +/-14:00.
func validComponents(sh dateShape) bool {
	if sh.hasMonth && (sh.month < 1 || sh.month > 12) {
		return false
	}
	if sh.hasDay {
		if sh.day < 1 {
			return false
		}
		t := time.Date(sh.year, time.Month(sh.month), sh.day, 0, 0, 0, 0, time.UTC)
		if t.Year() != sh.year || int(t.Month()) != sh.month || t.Day() != sh.day {
			return false
		}
	}
	if sh.hasTime {
		if sh.hour > 23 || sh.minute > 59 {
			return false
		}
		if sh.hasSecond && sh.second > 60 {
			return false
		}
	}
	if sh.hasTZ && sh.tzLiteral != "Z" {
		tzHour, _ := strconv.Atoi(sh.tzLiteral[1:3])
		tzMin, _ := strconv.Atoi(sh.tzLiteral[4:6])
		if tzHour > 14 || tzMin > 59 || (tzHour == 14 && tzMin > 0) {
			return false
		}
	}
	return true
}

func clampFracDigits(n int) int {
	if n < 1 {
		return 1
	}
	if n > 9 {
		return 9
	}
	return n
}

// format renders sh back to its canonical textual form, preserving
// exactly the precision it was detected at.
func (sh dateShape) format() string {
	switch {
	case !sh.hasMonth:
		return fmt.Sprintf("%04d", sh.year)
	case !sh.hasDay:
		return fmt.Sprintf("%04d-%02d", sh.year, sh.month)
	case !sh.hasTime:
		return fmt.Sprintf("%04d-%02d-%02d", sh.year, sh.month, sh.day)
	default:
		out := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", sh.year, sh.month, sh.day, sh.hour, sh.minute)
		if sh.hasSecond {
			out += fmt.Sprintf(":%02d", sh.second)
			if sh.hasFraction {
				digits := clampFracDigits(len(sh.fracStr))
				frac := sh.fracStr
				if len(frac) > digits {
					frac = frac[:digits]
				}
				for len(frac) < digits {
					frac += "0"
				}
				out += "." + frac
			}
		}
		if sh.hasTZ {
			out += sh.tzLiteral
		}
		return out
	}
}

// Canonicalize validates and canonicalizes input against typeCode (one
// of "date", "dateTime", "instant").
func (c *DateCanonicalizer) Canonicalize(pos diag.Position, input, typeCode string) (string, error) {
	if !c.pol.ShouldValidate(diag.F5110) {
		return input, nil
	}

	sh, ok := detectShape(input)
	if !ok {
		return c.fail(pos, input, typeCode)
	}

	if sh.hasTime && sh.hour >= 24 {
		return c.fail(pos, input, typeCode)
	}
	if !validComponents(sh) {
		return c.fail(pos, input, typeCode)
	}
	if typeCode == "instant" && !sh.hasTZ {
		return c.fail(pos, input, typeCode)
	}
	if typeCode == "dateTime" && sh.hasTime && !sh.hasTZ {
		return c.fail(pos, input, typeCode)
	}

	if typeCode == "date" && sh.hasTime {
		// A datetime-shaped value narrowed to a date element: truncate,
		// skip the round-trip equality check (truncation is lawful).
		truncated := dateShape{year: sh.year, month: sh.month, day: sh.day, hasMonth: true, hasDay: true}
		return truncated.format(), nil
	}

	canonical := sh.format()
	if canonical != input {
		return c.fail(pos, input, typeCode)
	}
	return canonical, nil
}

func (c *DateCanonicalizer) fail(pos diag.Position, input, typeCode string) (string, error) {
	d := c.fac.New(diag.F5111, pos, diag.WithValue(input), diag.WithFHIRType(typeCode))
	if c.pol.Enforce(d) {
		return input, d
	}
	return input, nil
}
