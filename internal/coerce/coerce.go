// Package coerce converts raw cell text into typed column values and back.
package coerce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tabedit/internal/model"
)

// Error reports text that cannot be parsed into the target column type.
type Error struct {
	Input string
	Type  model.ColumnType
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot read %q as %s: %v", e.Input, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	errNotBool      = errors.New("expected one of 1/true/t/yes/y/on or 0/false/f/no/n/off")
	errNotTimestamp = errors.New("unrecognised date/time")
)

var trueTokens = map[string]bool{"1": true, "true": true, "t": true, "yes": true, "y": true, "on": true}
var falseTokens = map[string]bool{"0": true, "false": true, "f": true, "no": true, "n": true, "off": true}

// TimestampLayouts are tried in order when parsing timestamps.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// Coerce maps raw text to a value of type t. Empty text is null for every type.
func Coerce(raw string, t model.ColumnType) (any, error) {
	if raw == "" {
		return nil, nil
	}
	s := strings.TrimSpace(raw)
	switch t {
	case model.TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, &Error{Input: raw, Type: t, Err: unwrapNum(err)}
		}
		return n, nil
	case model.TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &Error{Input: raw, Type: t, Err: unwrapNum(err)}
		}
		return f, nil
	case model.TypeBool:
		tok := strings.ToLower(s)
		if trueTokens[tok] {
			return true, nil
		}
		if falseTokens[tok] {
			return false, nil
		}
		return nil, &Error{Input: raw, Type: t, Err: errNotBool}
	case model.TypeTimestamp:
		ts, err := ParseTimestamp(s)
		if err != nil {
			return nil, &Error{Input: raw, Type: t, Err: err}
		}
		return ts, nil
	default:
		return raw, nil
	}
}

// ParseTimestamp tries each of TimestampLayouts. Layouts without a zone parse as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range TimestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errNotTimestamp
}

func unwrapNum(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}

// Format renders v as text that Coerce reads back to the same value.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Convert re-coerces v into type t through its text form. It backs column retyping.
func Convert(v any, t model.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case model.TypeFloat:
		if n, ok := v.(int64); ok {
			return float64(n), nil
		}
	case model.TypeText:
		return Format(v), nil
	}
	return Coerce(Format(v), t)
}
