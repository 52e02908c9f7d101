package sruntime

import (
	"fmt"
	"strconv"
	"strings"
)

type ValueKind int

const (
	NumKind ValueKind = iota
	MissingKind
	StrKind
)

// Value is a tagged SAS value: a finite number, the distinct numeric
// missing value, or a string. String missing is the empty string.
type Value struct {
	kind ValueKind
	f    float64
	s    string
}

func Num(f float64) Value {
	return Value{kind: NumKind, f: f}
}

func MissingNum() Value {
	return Value{kind: MissingKind}
}

func Str(s string) Value {
	return Value{kind: StrKind, s: Intern(s)}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) IsMissing() bool {
	return v.kind == MissingKind
}

func (v Value) IsStr() bool {
	return v.kind == StrKind
}

// Number converts a value to a number: numbers pass through, strings are
// trimmed of surrounding spaces and parsed with strconv.ParseFloat, and
// anything unparseable reads as missing. ParseFloat is wider than the
// numeric-literal syntax of the lexer: it also accepts a leading sign,
// hexadecimal floats and the words Inf and NaN. ok is false when the
// result is missing.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case NumKind:
		return v.f, true
	case StrKind:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func (v Value) String() string {
	if v.kind == StrKind {
		return v.s
	}
	return v.Format()
}

// Truthy: zero and missing are false, any other number is true. Strings
// are read as numbers first.
func (v Value) Truthy() bool {
	f, ok := v.Number()
	return ok && f != 0
}

// Format renders a value for the listing: missing prints as ".", numbers
// print with six decimals and trailing zeros trimmed (10.0 -> "10",
// 3.140 -> "3.14").
func (v Value) Format() string {
	switch v.kind {
	case MissingKind:
		return "."
	case StrKind:
		return v.s
	}
	s := fmt.Sprintf("%f", v.f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// Compare orders two values for sorting: missing before every number,
// numbers numerically, strings lexically, numbers before strings in a
// mixed column.
func Compare(a, b Value) int {
	am, bm := a.kind == MissingKind, b.kind == MissingKind
	if am || bm {
		switch {
		case am && bm:
			return 0
		case am:
			return -1
		default:
			return 1
		}
	}
	as, bs := a.kind == StrKind, b.kind == StrKind
	if as != bs {
		if bs {
			return -1
		}
		return 1
	}
	if as {
		return strings.Compare(a.s, b.s)
	}
	switch {
	case a.f < b.f:
		return -1
	case a.f > b.f:
		return 1
	}
	return 0
}
