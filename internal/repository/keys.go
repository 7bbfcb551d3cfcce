package repository

import (
	"encoding/json"
	"math"

	"github.com/spf13/cast"

	"rowmap/internal/errors"
)

// ErrInvalidKey is returned when a record carries a key that is not a positive integer
var ErrInvalidKey = errors.New("invalid primary key")

// KeyOf normalizes an id (int, int64, json.Number, "7", 7.0, ...) to a
// primary key. Keys are positive integers; anything else reports false.
func KeyOf(v any) (int64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case float32:
		return integralKey(float64(t))
	case float64:
		return integralKey(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return integralKey(f)
		}
		return 0, false
	}

	k, err := cast.ToInt64E(v)
	if err != nil || k <= 0 {
		return 0, false
	}
	return k, true
}

func integralKey(f float64) (int64, bool) {
	if f <= 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
