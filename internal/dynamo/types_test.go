package dynamo

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

const eps = 1e-12

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -5, 6}

	tests := []struct {
		name     string
		got      Vec3
		expected Vec3
	}{
		{"add", a.Add(b), Vec3{5, -3, 9}},
		{"sub", a.Sub(b), Vec3{-3, 7, -3}},
		{"scale", a.Scale(2), Vec3{2, 4, 6}},
		{"normalize", Vec3{0, 3, 4}.Normalize(), Vec3{0, 0.6, 0.8}},
		{"normalize zero", Vec3{}.Normalize(), Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !approx(tt.got.X, tt.expected.X) || !approx(tt.got.Y, tt.expected.Y) || !approx(tt.got.Z, tt.expected.Z) {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}

	if a != (Vec3{1, 2, 3}) {
		t.Error("operations mutated the receiver")
	}
}

func TestVec3Metrics(t *testing.T) {
	if got := (Vec3{3, 4, 12}).Length(); !approx(got, 13) {
		t.Errorf("Length() = %f", got)
	}
	if got := (Vec3{1, 2, 3}).Dot(Vec3{4, -5, 6}); !approx(got, 12) {
		t.Errorf("Dot() = %f", got)
	}
	if got := (Vec3{1, 1, 1}).Distance(Vec3{1, 1, -1}); !approx(got, 2) {
		t.Errorf("Distance() = %f", got)
	}
}

func TestVec3IsFinite(t *testing.T) {
	tests := []struct {
		v    Vec3
		want bool
	}{
		{Vec3{1, 2, 3}, true},
		{Vec3{math.NaN(), 0, 0}, false},
		{Vec3{0, math.Inf(1), 0}, false},
		{Vec3{0, 0, math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		if got := tt.v.IsFinite(); got != tt.want {
			t.Errorf("IsFinite(%v) = %v", tt.v, got)
		}
	}
}

func TestGravity(t *testing.T) {
	if g := (Params{G: 9.8}).Gravity(); g != (Vec3{0, 0, -9.8}) {
		t.Errorf("Gravity() = %v", g)
	}
}

func TestStateClone(t *testing.T) {
	s := State{P1: Vec3{1, 0, 0}, Trail: []Vec3{{1, 1, 1}, {2, 2, 2}}, Step: 3, RunID: 4}
	c := s.Clone()
	c.Trail[0] = Vec3{}

	if s.Trail[0] != (Vec3{1, 1, 1}) {
		t.Error("clone shares its trail")
	}
	if c.Step != 3 || c.RunID != 4 || len(c.Trail) != 2 {
		t.Errorf("clone lost fields: %+v", c)
	}
}

func TestStateIsValid(t *testing.T) {
	ok := State{P1: Vec3{1, 0, 0}, P2: Vec3{2, 0, 0}, Trail: []Vec3{{2, 0, 0}}}
	if !ok.IsValid() {
		t.Error("finite state reported invalid")
	}

	bad := ok.Clone()
	bad.Trail[0].Y = math.NaN()
	if bad.IsValid() {
		t.Error("NaN in trail not detected")
	}

	bad = ok.Clone()
	bad.P2.Z = math.Inf(1)
	if bad.IsValid() {
		t.Error("Inf position not detected")
	}
}

func TestRodErrors(t *testing.T) {
	p := Params{L1: 100, L2: 50}
	s := State{P1: Vec3{0, 0, -100}, P2: Vec3{0, 0, -160}}

	e1, e2 := s.RodErrors(p)
	if !approx(e1, 0) || !approx(e2, 10) {
		t.Errorf("RodErrors() = %f, %f", e1, e2)
	}
}

func TestParamError(t *testing.T) {
	var err error = &ParamError{Field: "g", Value: 40, Min: 1, Max: 30}
	wrapped := fmt.Errorf("load: %w", err)

	if !errors.Is(wrapped, ErrParameterBounds) {
		t.Error("ParamError should unwrap to ErrParameterBounds")
	}
	var pe *ParamError
	if !errors.As(wrapped, &pe) || pe.Field != "g" {
		t.Errorf("errors.As failed: %v", pe)
	}
	if got := err.Error(); got != "g=40 outside [1, 30]" {
		t.Errorf("Error() = %q", got)
	}
}
