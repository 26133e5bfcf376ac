package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"$4.50", 450, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 1250}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":12.50}` {
		t.Fatalf("unexpected json %s", b)
	}

	for in, want := range map[string]int64{
		`{"amount": 4.5}`:     450,
		`{"amount": "19.99"}`: 1999,
		`{"amount": 0.005}`:   1,
		`{"amount": null}`:    0,
	} {
		var v struct {
			Amount Money `json:"amount"`
		}
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if v.Amount.Cents != want {
			t.Fatalf("%s: got %d want %d", in, v.Amount.Cents, want)
		}
	}
}

func TestMoneyMulRateAndString(t *testing.T) {
	if got := (Money{Cents: 2000}).MulRate(0.05); got.Cents != 100 {
		t.Fatalf("20.00 * 5%% = %d cents", got.Cents)
	}
	if got := (Money{Cents: 1999}).MulRate(0.15); got.Cents != 300 {
		t.Fatalf("19.99 * 15%% = %d cents, want 300", got.Cents)
	}
	if s := (Money{Cents: 50000}).String(); s != "500" {
		t.Fatalf("String() = %q", s)
	}
	if s := (Money{Cents: 1250}).String(); s != "12.5" {
		t.Fatalf("String() = %q", s)
	}
	if s := FormatDollars(-705); s != "-$7.05" {
		t.Fatalf("FormatDollars = %q", s)
	}
	if r := (Money{Cents: 900}).Ratio(Money{}); r != 0 {
		t.Fatalf("ratio against zero budget = %v", r)
	}
}
