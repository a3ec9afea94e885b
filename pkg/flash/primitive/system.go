package primitive

import (
	"github.com/shopspring/decimal"
)

// truthy mirrors the engine-wide JSONata boolean-coercion rule used for
// anything that isn't a recognized literal "false".
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case nil:
		return false
	default:
		return true
	}
}

// coerceBoolean implements the boolean primitive's coercion rule: the
// strings "false"/"FALSE" coerce to false, everything else follows
// ordinary truthy coercion.
func coerceBoolean(v interface{}) interface{} {
	if s, ok := v.(string); ok && (s == "false" || s == "FALSE") {
		return false
	}
	return truthy(v)
}

// coerceDecimal coerces v to a decimal.Decimal, preserving arbitrary
// precision rather than routing through float64. On failure v is
// returned unchanged so a downstream regex/maxLength fault (if any)
// remains the visible diagnostic.
func coerceDecimal(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case float64:
		return decimal.NewFromFloat(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return v
		}
		return d
	case bool:
		if x {
			return decimal.NewFromInt(1)
		}
		return decimal.NewFromInt(0)
	default:
		return v
	}
}

// coerceInteger coerces v to int64. On failure v is returned unchanged.
func coerceInteger(v interface{}) interface{} {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return v
		}
		return d.IntPart()
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// coerceSystem dispatches to the coercion matching fhirType. Types
// outside this small system family (uri, oid, base64Binary, ...) are
// opaque to FLASH and pass through unchanged once regex/maxLength have
// been checked.
func coerceSystem(v interface{}, fhirType string) interface{} {
	switch fhirType {
	case "boolean":
		return coerceBoolean(v)
	case "decimal":
		return coerceDecimal(v)
	case "integer", "positiveInt", "unsignedInt", "integer64":
		return coerceInteger(v)
	default:
		return v
	}
}
