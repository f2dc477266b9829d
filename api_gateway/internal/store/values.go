package store

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
)

// Limits of an unconstrained Postgres NUMERIC column.
const (
	maxDecimalIntegerDigits  = 131072
	maxDecimalFractionDigits = 16383
)

// ParseID parses an external identifier into the entity's key range.
func ParseID(e *schema.Entity, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &ValidationError{Entity: e.Name, Field: "id", Reason: fmt.Sprintf("%q is not an integer identifier", raw)}
	}
	if id < 1 || (e.Key == schema.KeySerial && id > math.MaxInt32) {
		return 0, &ValidationError{Entity: e.Name, Field: "id", Reason: fmt.Sprintf("%d is outside the identifier range", id)}
	}
	return id, nil
}

// coerce converts an input value into the driver value stored for the field.
func coerce(e *schema.Entity, f schema.Field, v any) (any, error) {
	invalid := func(reason string, args ...any) error {
		return &ValidationError{Entity: e.Name, Field: f.Name, Reason: fmt.Sprintf(reason, args...)}
	}
	if v == nil {
		if f.IsRequired() {
			return nil, invalid("value is required")
		}
		return nil, nil
	}

	switch f.Kind {
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, invalid("expected a string, got %T", v)
		}
		if f.Length > 0 && utf8.RuneCountInString(s) > f.Length {
			return nil, invalid("longer than %d characters", f.Length)
		}
		return s, nil

	case schema.KindInt:
		n, err := toInt64(v)
		if err != nil {
			return nil, invalid("%v", err)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, invalid("%d does not fit a 32-bit integer", n)
		}
		return n, nil

	case schema.KindDecimal:
		d, err := toDecimal(v)
		if err != nil {
			return nil, invalid("%v", err)
		}
		return d, nil
	}
	return nil, invalid("unsupported kind %q", f.Kind)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

// toDecimal normalizes v to the canonical decimal string stored in the column.
func toDecimal(v any) (string, error) {
	var d decimal.Decimal
	switch n := v.(type) {
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return "", fmt.Errorf("%q is not a decimal number", n)
		}
		d = parsed
	case int:
		d = decimal.NewFromInt(int64(n))
	case int32:
		d = decimal.NewFromInt32(n)
	case int64:
		d = decimal.NewFromInt(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", fmt.Errorf("%v is not a finite number", n)
		}
		d = decimal.NewFromFloat(n)
	default:
		return "", fmt.Errorf("expected a decimal, got %T", v)
	}

	// Checked before String, which would expand the exponent.
	exp := int64(d.Exponent())
	digits := int64(len(d.Abs().Coefficient().String()))
	if exp < -maxDecimalFractionDigits {
		return "", fmt.Errorf("more than %d digits after the decimal point", maxDecimalFractionDigits)
	}
	if digits+exp > maxDecimalIntegerDigits {
		return "", fmt.Errorf("more than %d digits before the decimal point", maxDecimalIntegerDigits)
	}
	return d.String(), nil
}

// scanTarget returns a destination for one column and a func reading it back.
func scanTarget(f schema.Field) (any, func() any) {
	switch f.Kind {
	case schema.KindInt:
		var n sql.NullInt64
		return &n, func() any {
			if !n.Valid {
				return nil
			}
			return n.Int64
		}
	default:
		// DECIMAL arrives as text from lib/pq and stays a string.
		var s sql.NullString
		return &s, func() any {
			if !s.Valid {
				return nil
			}
			return s.String
		}
	}
}
