package highlights

import (
	"math"
	"testing"
	"time"
)

func TestTextSignals_Table(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantInfo bool
		wantHook bool
	}{
		{"empty", "", false, false},
		{"numbers", "Step 1: do X. Step 2: measure 42ms.", true, true},
		{"howto", "How to fix it: first do this, then do that.", true, false},
		{"hook", "Here is why this is important!", false, true},
		{"stream", "NO WAY that was insane haha", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, hook := TextSignals(tt.text)
			if tt.wantInfo && info <= 0 {
				t.Fatalf("expected info>0, got %v", info)
			}
			if !tt.wantInfo && info != 0 {
				t.Fatalf("expected info==0, got %v", info)
			}
			if tt.wantHook && hook <= 0 {
				t.Fatalf("expected hook>0, got %v", hook)
			}
		})
	}
}

func TestTextSignals_StepNumbersHook(t *testing.T) {
	_, hook := TextSignals("step 1 then step 2")
	if math.Abs(hook-0.8) > 1e-9 {
		t.Fatalf("hook = %v, want 0.8", hook)
	}
}

func TestPositionScore_PeaksInMiddle(t *testing.T) {
	total := 100 * time.Second
	mid := positionScore(50*time.Second, total)
	edge := positionScore(0, total)
	if mid != 7.5 || edge != 6 {
		t.Fatalf("unexpected position scores: mid=%v edge=%v", mid, edge)
	}
}
