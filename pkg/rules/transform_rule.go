// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	MethodAgeBin  = "age_bin"
	MethodPrefix3 = "prefix3"
	MethodDateKey = "date_key"
)

// TransformRule emits the result of one of the named pure functions.
type TransformRule struct {
	name string
	fn   transformFunc
}

type transformFunc func(value any) (any, error)

func NewTransformRule(emitAs, using string, clock clockwork.Clock) (*TransformRule, error) {
	var fn transformFunc
	switch using {
	case MethodAgeBin:
		fn = func(value any) (any, error) {
			return ageBin(clock, value)
		}
	case MethodPrefix3:
		fn = prefix3
	case MethodDateKey:
		fn = dateKey
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, using)
	}

	return &TransformRule{name: emitAs, fn: fn}, nil
}

func (r *TransformRule) Apply(value any) (Emission, error) {
	result, err := r.fn(value)
	if err != nil {
		return Emission{}, err
	}
	return Emission{Name: r.name, Value: result, Emitted: true}, nil
}

// ageBin buckets a date of birth into an age category as of today. The age
// is whole calendar years: one year is subtracted when the current
// month/day precedes the birth month/day. Null propagates as null.
func ageBin(clock clockwork.Clock, value any) (any, error) {
	if isNull(value) {
		return nil, nil
	}
	dob, err := toDate(value)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}

	switch {
	case years < 18:
		return "<18", nil
	case years <= 24:
		return "18-24", nil
	case years <= 34:
		return "25-34", nil
	case years <= 44:
		return "35-44", nil
	case years <= 64:
		return "45-64", nil
	default:
		return "65+", nil
	}
}

// prefix3 returns the first three characters of the value, or of the empty
// string if null. Shorter values are returned as is, without padding.
func prefix3(value any) (any, error) {
	var s string
	switch v := value.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil, fmt.Errorf("%w: prefix3 over %T", ErrUnsupportedValueType, value)
	}

	runes := []rune(s)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes), nil
}

// dateKey encodes a date as an 8-digit YYYYMMDD integer. Null propagates as
// null.
func dateKey(value any) (any, error) {
	if isNull(value) {
		return nil, nil
	}
	date, err := toDate(value)
	if err != nil {
		return nil, err
	}
	return int64(date.Year()*10000 + int(date.Month())*100 + date.Day()), nil
}

func isNull(value any) bool {
	if value == nil {
		return true
	}
	if v, ok := value.(*time.Time); ok && v == nil {
		return true
	}
	return false
}

func toDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("%w: nil date pointer", ErrUnsupportedValueType)
		}
		return *v, nil
	case string:
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrUnsupportedValueType, v)
	default:
		return time.Time{}, fmt.Errorf("%w: date transform over %T", ErrUnsupportedValueType, value)
	}
}
