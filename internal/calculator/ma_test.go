package calculator

import (
	"math"
	"testing"
)

func TestRollingSMA_UndefinedBeforeWindow(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50, 60}
	out := RollingSMA(vals, 5)
	if len(out) != len(vals) {
		t.Fatalf("expected %d values, got %d", len(vals), len(out))
	}
	for i := 0; i < 4; i++ {
		if out[i].Valid {
			t.Errorf("index %d: expected undefined, got %v", i, out[i].Float64)
		}
	}
	if !out[4].Valid || math.Abs(out[4].Float64-30) > 1e-9 {
		t.Errorf("index 4: expected 30, got %+v", out[4])
	}
	if !out[5].Valid || math.Abs(out[5].Float64-40) > 1e-9 {
		t.Errorf("index 5: expected 40, got %+v", out[5])
	}
}

func TestRollingSMA_ShortInput(t *testing.T) {
	tests := []struct {
		name   string
		vals   []float64
		period int
	}{
		{"empty", nil, 5},
		{"shorter than window", []float64{1, 2, 3}, 5},
		{"zero period", []float64{1, 2, 3}, 0},
	}
	for _, tt := range tests {
		out := RollingSMA(tt.vals, tt.period)
		if len(out) != len(tt.vals) {
			t.Errorf("%s: expected %d values, got %d", tt.name, len(tt.vals), len(out))
		}
		for i, v := range out {
			if v.Valid {
				t.Errorf("%s: index %d should be undefined", tt.name, i)
			}
		}
	}
}

func TestRollingSMA_ExactWindow(t *testing.T) {
	out := RollingSMA([]float64{2, 4, 6}, 3)
	if !out[2].Valid || out[2].Float64 != 4 {
		t.Errorf("expected 4 at last index, got %+v", out[2])
	}
}

func TestRollingSMA_ZeroIsDefined(t *testing.T) {
	out := RollingSMA([]float64{0, 0, 0}, 2)
	if out[0].Valid {
		t.Error("index 0 should be undefined")
	}
	if !out[1].Valid || out[1].Float64 != 0 {
		t.Errorf("index 1 should be a defined zero, got %+v", out[1])
	}
}
