// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"testing"
)

func testEnv() *Env {
	env := NewEnv("root", nil)
	env.BindValue("width", Int(3))
	env.BindValue("height", Int(4))
	env.BindValue("neg", Int(-7))
	env.BindValue("flag", Bool(true))
	env.BindValue("magic", Bytes([]byte("PK")))
	return env
}

func TestEval(t *testing.T) {
	tests := []struct {
		src  string
		want Value
	}{
		{"1 + 2 * 3", Int(7)},
		{"(1 + 2) * 3", Int(9)},
		{"10 - 4 - 3", Int(3)},
		{"width * height", Int(12)},
		{"width * height == 12", Bool(true)},
		{"width != height", Bool(true)},
		{"width <= 3", Bool(true)},
		{"width >= 4", Bool(false)},
		{"width < height", Bool(true)},
		{"width > height", Bool(false)},
		{"0b1010 & 0x6", Int(2)},
		{"1 << 4", Int(16)},
		{"256 >> 4", Int(16)},
		{"5 | 2", Int(7)},
		{"6 ^ 3", Int(5)},
		{"7 / 2", Int(3)},
		{"neg / 2", Int(-4)},
		{"neg % 3", Int(2)},
		{"7 % -3", Int(-2)},
		{"-width + 1", Int(-2)},
		{"-(width + 1)", Int(-4)},
		{"flag + 1", Int(2)},
		{"true", Bool(true)},
		{"false or width == 3", Bool(true)},
		{"width == 3 and height == 5", Bool(false)},
		{"magic == magic", Bool(true)},
		{"magic == 1", Bool(false)},
	}

	env := testEnv()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := EvalString(tt.src, env)
			if err != nil {
				t.Fatalf("EvalString(%q) error = %v", tt.src, err)
			}
			if got.Kind() != tt.want.Kind() || !got.Equal(tt.want) {
				t.Errorf("EvalString(%q) = %v (%s), want %v (%s)", tt.src, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestEvalShortCircuit(t *testing.T) {
	env := testEnv()
	tests := []struct {
		src  string
		want bool
	}{
		{"width == 0 and missing == 1", false},
		{"width == 3 or missing == 1", true},
	}
	for _, tt := range tests {
		got, err := EvalString(tt.src, env)
		if err != nil {
			t.Fatalf("EvalString(%q) error = %v", tt.src, err)
		}
		if got.Truthy() != tt.want {
			t.Errorf("EvalString(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	env := testEnv()
	tests := []struct {
		src   string
		check func(error) bool
	}{
		{"width / 0", func(err error) bool { return errors.Is(err, ErrDivisionByZero) }},
		{"width % (height - 4)", func(err error) bool { return errors.Is(err, ErrDivisionByZero) }},
		{"missing + 1", func(err error) bool {
			var ue *UnboundNameError
			return errors.As(err, &ue) && ue.Name == "missing"
		}},
		{"magic + 1", func(err error) bool {
			var te *TypeError
			return errors.As(err, &te) && te.Op == "+"
		}},
		{"-magic", func(err error) bool {
			var te *TypeError
			return errors.As(err, &te)
		}},
		{"1 << 64", func(err error) bool {
			var te *TypeError
			return errors.As(err, &te)
		}},
		{"1 +", func(err error) bool {
			var ge *GrammarError
			return errors.As(err, &ge)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := EvalString(tt.src, env)
			if err == nil {
				t.Fatalf("EvalString(%q) error = nil", tt.src)
			}
			if !tt.check(err) {
				t.Errorf("EvalString(%q) error = %v (%T)", tt.src, err, err)
			}
		})
	}
}

func TestRender(t *testing.T) {
	env := testEnv()
	tests := []struct {
		src  string
		want string
	}{
		{"width * height == 12", "(3 * 4) == 12"},
		{"width", "3"},
		{"-neg", "--7"},
		{"magic == 0x4b50", "[504b] == 0x4b50"},
		{"flag and true", "true and true"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.src, err)
			}
			got, err := Render(n, env)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
		{6, 3, 2},
		{-6, 3, -2},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
