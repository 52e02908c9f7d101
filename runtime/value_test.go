package sruntime

import "testing"

func TestNumberConversion(t *testing.T) {
	if f, ok := Num(3.5).Number(); !ok || f != 3.5 {
		t.Fatalf("Num: %v %v", f, ok)
	}
	if f, ok := Str("42").Number(); !ok || f != 42 {
		t.Fatalf("numeric string: %v %v", f, ok)
	}
	if f, ok := Str(" 2.5e1 ").Number(); !ok || f != 25 {
		t.Fatalf("padded exponent string: %v %v", f, ok)
	}
	if _, ok := Str("abc").Number(); ok {
		t.Fatalf("non-numeric string should be missing")
	}
	if _, ok := MissingNum().Number(); ok {
		t.Fatalf("missing should not convert")
	}
}

func TestFormatTrimsTrailingZeros(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{Num(10), "10"},
		{Num(10.0), "10"},
		{Num(3.14), "3.14"},
		{Num(3.140), "3.14"},
		{Num(-2.5), "-2.5"},
		{Num(0), "0"},
		{MissingNum(), "."},
		{Str("abc"), "abc"},
		{Str(""), ""},
	}
	for _, tc := range cases {
		if got := tc.in.Format(); got != tc.want {
			t.Fatalf("Format(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		in   Value
		want bool
	}{
		{Num(1), true},
		{Num(-0.5), true},
		{Num(0), false},
		{MissingNum(), false},
		{Str("2"), true},
		{Str("0"), false},
		{Str("abc"), false},
		{Str(""), false},
	}
	for _, tc := range cases {
		if got := tc.in.Truthy(); got != tc.want {
			t.Fatalf("Truthy(%#v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	if Compare(MissingNum(), Num(-1e18)) >= 0 {
		t.Fatalf("missing must sort before every number")
	}
	if Compare(Num(1), Num(2)) >= 0 || Compare(Num(2), Num(1)) <= 0 {
		t.Fatalf("numeric ordering broken")
	}
	if Compare(Str("apple"), Str("banana")) >= 0 {
		t.Fatalf("string ordering broken")
	}
	if Compare(Num(99), Str("1")) >= 0 {
		t.Fatalf("numbers order before strings")
	}
	if Compare(MissingNum(), MissingNum()) != 0 {
		t.Fatalf("missing equals missing")
	}
}

func TestInternSharesStorage(t *testing.T) {
	a := Str("category-a")
	b := Str("category-a")
	if a.String() != b.String() {
		t.Fatalf("interned values differ")
	}
	if Intern("x") != Intern("x") {
		t.Fatalf("intern must be stable")
	}
}
