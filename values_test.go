package plasm_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/reoring/plasm"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"a", true},
		{0, false},
		{int64(0), false},
		{int64(-1), true},
		{uint8(0), false},
		{0.0, false},
		{math.NaN(), false},
		{0.5, true},
		{json.Number("0"), false},
		{json.Number("7"), true},
		{map[string]any{}, true},
		{[]any{}, true},
	}
	for _, c := range cases {
		if got := plasm.Truthy(c.in); got != c.want {
			t.Errorf("Truthy(%#v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAsInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{13, 13, true},
		{uint64(math.MaxUint64), 0, false},
		{float64(-4), -4, true},
		{14.55, 0, false},
		{json.Number("42"), 42, true},
		{json.Number("4.2"), 0, false},
		{"13", 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := plasm.AsInt64(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("AsInt64(%#v) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
