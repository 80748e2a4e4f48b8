package errors

import (
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"direct", New(Security, "path escape"), Security},
		{"wrapped", fmt.Errorf("outer: %w", Wrap(IO, "read failed", fmt.Errorf("boom"))), IO},
		{"foreign", fmt.Errorf("plain"), Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	a := New(Transient, "pool exhausted")
	b := New(Transient, "different message")
	if !a.Is(b) {
		t.Fatalf("expected errors with the same code to match Is()")
	}
	c := New(Security, "x")
	if a.Is(c) {
		t.Fatalf("errors with different codes must not match")
	}
}

func TestWithFix(t *testing.T) {
	e := New(Schema, "version mismatch").WithFix(FixAction{
		Type:        RunCommand,
		Command:     "cgraphd reindex --scope=full",
		Description: "rebuild the graph under the new schema",
		Safe:        true,
	})
	if len(e.Fixes) != 1 {
		t.Fatalf("expected one fix action, got %d", len(e.Fixes))
	}
}
