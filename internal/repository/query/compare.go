package query

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// kind ranks used to order values of unrelated types
const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankTime
	rankOther
)

// Equal reports whether two stored values are equal. Numbers compare by
// value across Go numeric types, times by instant.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an.compare(bn) == 0
		}
		return false
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two stored values: nil first, then booleans, numbers,
// strings, times and anything else by its printed form.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNil:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		an, _ := toNumber(a)
		bn, _ := toNumber(b)
		return an.compare(bn)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case string:
		return rankString
	case time.Time:
		return rankTime
	}
	if _, ok := toNumber(v); ok {
		return rankNumber
	}
	return rankOther
}

// number keeps integers and decimals exact and falls back to float64
// otherwise
type number struct {
	i     int64
	f     float64
	d     decimal.Decimal
	isInt bool
	isDec bool
}

func (n number) toDec() decimal.Decimal {
	switch {
	case n.isDec:
		return n.d
	case n.isInt:
		return decimal.NewFromInt(n.i)
	default:
		return decimal.NewFromFloat(n.f)
	}
}

// finite reports whether n can be represented as a decimal
func (n number) finite() bool {
	return n.isInt || n.isDec || (!math.IsNaN(n.f) && !math.IsInf(n.f, 0))
}

func (n number) float() float64 {
	switch {
	case n.isInt:
		return float64(n.i)
	case n.isDec:
		return n.d.InexactFloat64()
	default:
		return n.f
	}
}

func (n number) compare(o number) int {
	if (n.isDec || o.isDec) && n.finite() && o.finite() {
		return n.toDec().Cmp(o.toDec())
	}
	if n.isInt && o.isInt {
		return cmp.Compare(n.i, o.i)
	}
	return cmp.Compare(n.float(), o.float())
}

func toNumber(v any) (number, bool) {
	switch t := v.(type) {
	case int:
		return number{i: int64(t), isInt: true}, true
	case int8:
		return number{i: int64(t), isInt: true}, true
	case int16:
		return number{i: int64(t), isInt: true}, true
	case int32:
		return number{i: int64(t), isInt: true}, true
	case int64:
		return number{i: t, isInt: true}, true
	case uint:
		return fromUint(uint64(t)), true
	case uint8:
		return number{i: int64(t), isInt: true}, true
	case uint16:
		return number{i: int64(t), isInt: true}, true
	case uint32:
		return number{i: int64(t), isInt: true}, true
	case uint64:
		return fromUint(t), true
	case float32:
		return number{f: float64(t)}, true
	case float64:
		return number{f: t}, true
	case decimal.Decimal:
		return number{d: t, isDec: true}, true
	case *decimal.Decimal:
		if t == nil {
			return number{}, false
		}
		return number{d: *t, isDec: true}, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return number{i: i, isInt: true}, true
		}
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return number{d: d, isDec: true}, true
		}
		if f, err := t.Float64(); err == nil {
			return number{f: f}, true
		}
	}
	return number{}, false
}

// fromUint keeps values past math.MaxInt64 exact as decimals
func fromUint(u uint64) number {
	if u > math.MaxInt64 {
		return number{d: decimal.NewFromUint64(u), isDec: true}
	}
	return number{i: int64(u), isInt: true}
}
