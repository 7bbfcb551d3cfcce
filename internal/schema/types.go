package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
)

// Type coerces raw stored values into one domain type. Every type passes
// nil through unchanged.
type Type interface {
	Name() string
	Coerce(v any) (any, error)
}

type coercer struct {
	name string
	fn   func(any) (any, error)
}

func (c coercer) Name() string { return c.name }

func (c coercer) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return c.fn(v)
}

// Built-in types
var (
	Integer  Type = coercer{"integer", toInteger}
	Float    Type = coercer{"float", toFloat}
	Decimal  Type = coercer{"decimal", toDecimal}
	Boolean  Type = coercer{"boolean", toBoolean}
	String   Type = coercer{"string", toString}
	Date     Type = coercer{"date", toDate}
	DateTime Type = coercer{"datetime", toDateTime}
	Time     Type = coercer{"time", toTime}
	Array    Type = coercer{"array", toArray}
	Hash     Type = coercer{"hash", toHash}
	JSON     Type = coercer{"json", identity}
	Any      Type = coercer{"any", identity}
)

var typesByName = map[string]Type{
	"integer":   Integer,
	"int":       Integer,
	"float":     Float,
	"decimal":   Decimal,
	"boolean":   Boolean,
	"bool":      Boolean,
	"string":    String,
	"date":      Date,
	"datetime":  DateTime,
	"date_time": DateTime,
	"time":      Time,
	"array":     Array,
	"hash":      Hash,
	"map":       Hash,
	"json":      JSON,
	"any":       Any,
}

// ErrUnknownType is returned by ParseType for undeclared type names
var ErrUnknownType = errors.New("unknown attribute type")

// ParseType maps a declared type name to its Type
func ParseType(name string) (Type, error) {
	t, ok := typesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q", name)
	}
	return t, nil
}

var errBoolNotNumber = errors.New("boolean is not a number")

func identity(v any) (any, error) { return v, nil }

func toInteger(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return nil, errBoolNotNumber
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", t)
		}
		return floatToInteger(f)
	case json.Number:
		return toInteger(t.String())
	case float64:
		return floatToInteger(t)
	case float32:
		return floatToInteger(float64(t))
	case uint:
		return uintToInteger(uint64(t))
	case uint64:
		return uintToInteger(t)
	}
	return cast.ToInt64E(v)
}

// floatToInteger accepts only whole values inside the int64 range.
// float64(math.MaxInt64) rounds up to 2^63, hence the strict upper bound.
func floatToInteger(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("invalid integer %v", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("integer %v out of range", f)
	}
	return int64(f), nil
}

func uintToInteger(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d out of range", u)
	}
	return int64(u), nil
}

func toFloat(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return nil, errBoolNotNumber
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", t)
		}
		return f, nil
	case json.Number:
		return t.Float64()
	}
	return cast.ToFloat64E(v)
}

func toDecimal(v any) (any, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case bool:
		return nil, errBoolNotNumber
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	case json.Number:
		return decimal.NewFromString(t.String())
	case float32:
		return decimal.NewFromFloat32(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return nil, err
	}
	return decimal.NewFromInt(i), nil
}

func toBoolean(v any) (any, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
		v = strings.TrimSpace(s)
	}
	return cast.ToBoolE(v)
}

func toString(v any) (any, error) {
	return cast.ToStringE(v)
}

func toDate(v any) (any, error) {
	t, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
	if err != nil {
		return nil, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func toDateTime(v any) (any, error) {
	t, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
	if err != nil {
		return nil, err
	}
	return t.UTC(), nil
}

func toTime(v any) (any, error) {
	return cast.ToTimeInDefaultLocationE(v, time.Local)
}

func toArray(v any) (any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case string:
		return decodeJSONArray([]byte(t))
	case []byte:
		return decodeJSONArray(t)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%T is not a sequence", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func decodeJSONArray(data []byte) ([]any, error) {
	var out []any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid array: %w", err)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func toHash(v any) (any, error) {
	if r, ok := v.(domain.Record); ok {
		return map[string]any(r), nil
	}
	return cast.ToStringMapE(v)
}
