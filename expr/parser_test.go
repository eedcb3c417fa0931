// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestParseStructure(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1", "1"},
		{"  42  ", "42"},
		{"abc", "abc"},
		{"a.b.c", "a.b.c"},
		{"_parent.len", "_parent.len"},
		{"(x)", "x"},
		{"((x))", "x"},
		{"a + b", "a + b"},
		{"a+b*2", "a + (b * 2)"},
		{"(a + b) * 2", "(a + b) * 2"},
		{"1 - 2 - 3", "(1 - 2) - 3"},
		{"a * b / c", "(a * b) / c"},
		{"x & 0xff << 2", "(x & 0xff) << 2"},
		{"1 | 2 & 3", "1 | (2 & 3)"},
		{"a ^ b + c", "(a ^ b) + c"},
		{"width * height == 12", "(width * height) == 12"},
		{"a < b + 1", "a < (b + 1)"},
		{"flags & 0b100 != 0", "(flags & 0b100) != 0"},
		{"a == 1 and b == 2", "(a == 1) and (b == 2)"},
		{"a == 1 or b == 2 and c", "(a == 1) or ((b == 2) and c)"},
		{"-x + 1", "-x + 1"},
		{"-(a + b)", "-(a + b)"},
		{"a - -1", "a - -1"},
		{"x % 4 >= 2", "(x % 4) >= 2"},
		{"order > 1", "order > 1"},
		{"android == 1", "android == 1"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.src, err)
			}
			if got := String(n); got != tt.want {
				t.Errorf("String(Parse(%q)) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseTriples(t *testing.T) {
	n, err := Parse("len * 2 + 0b11")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := &Binary{
		Left: &Binary{
			Left:  &Ident{Name: "len"},
			Op:    "*",
			Right: &Num{Text: "2", Value: 2},
		},
		Op:    "+",
		Right: &Num{Text: "0b11", Value: 3},
	}
	if !reflect.DeepEqual(n, want) {
		t.Errorf("Parse() = %s, want %s", String(n), String(want))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"1 +",
		"(a",
		"a)",
		"1.5",
		"a b",
		"9a",
		"a === b",
		"0b102",
		"99999999999999999999",
		"a andb",
	}
	for _, src := range tests {
		t.Run(fmt.Sprintf("%q", src), func(t *testing.T) {
			_, err := Parse(src)
			if err == nil {
				t.Fatalf("Parse(%q) error = nil, want GrammarError", src)
			}
			var ge *GrammarError
			if !errors.As(err, &ge) {
				t.Fatalf("Parse(%q) error = %T, want *GrammarError", src, err)
			}
			if ge.Source != src {
				t.Errorf("GrammarError.Source = %q, want %q", ge.Source, src)
			}
		})
	}
}

func TestGrammarErrorOffset(t *testing.T) {
	_, err := Parse("a + (b * )")
	var ge *GrammarError
	if !errors.As(err, &ge) {
		t.Fatalf("Parse() error = %v, want *GrammarError", err)
	}
	if ge.Offset != 9 {
		t.Errorf("Offset = %d, want 9", ge.Offset)
	}
}

func TestIdents(t *testing.T) {
	n, err := Parse("a + b.c * a - 3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, want := Idents(n), []string{"a", "b.c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Idents() = %v, want %v", got, want)
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	sources := []string{"a + 1", "b == 2", "a + 1", "(", "b == 2"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, src := range sources {
				_, _ = c.Parse(src)
			}
		}()
	}
	wg.Wait()

	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	n1, _ := c.Parse("a + 1")
	n2, _ := c.Parse("a + 1")
	if n1 != n2 {
		t.Error("cached parse returned a different tree")
	}
	if _, err := c.Parse("("); err == nil {
		t.Error("cached parse error was lost")
	}
}
