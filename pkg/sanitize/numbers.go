package sanitize

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// toFloat converts v into a finite number.
// Accepts numbers, numeric strings and booleans; nil, empty strings and
// everything else report false.
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// RoundHalfUp rounds v to places decimals. Ties go toward positive infinity.
// The computation is done on the decimal representation of v, so 1.005
// becomes 1.01.
func RoundHalfUp(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return roundDecimal(v, places).InexactFloat64()
}

func roundDecimal(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Shift(places).Add(half).Floor().Shift(-places)
}

// number returns v rounded to places, 0 if v is not a finite number
func number(v any, places int32) float64 {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return RoundHalfUp(f, places)
}

// optNumber is like number but reports nil for non finite input
func optNumber(v any, places int32) *float64 {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	r := RoundHalfUp(f, places)
	return &r
}

// pixel rounds v to an integer coordinate, 0 if v is not a finite number
func pixel(v any) int {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return int(roundDecimal(f, 0).IntPart())
}

func optInt(v any) *int {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	i := int(roundDecimal(f, 0).IntPart())
	return &i
}

// str renders scalars as text. nil yields "".
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// text is like str but treats zero values (0, false, "") as missing
func text(v any) string {
	switch t := v.(type) {
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 || math.IsNaN(t) {
			return ""
		}
	case int64:
		if t == 0 {
			return ""
		}
	}
	return str(v)
}

// firstText returns the first non empty text of values
func firstText(values ...any) string {
	for _, v := range values {
		if s := text(v); s != "" {
			return s
		}
	}
	return ""
}
