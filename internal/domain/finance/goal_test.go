package finance

import "testing"

func TestProgressStatus(t *testing.T) {
	tests := []struct {
		saved  float64
		target float64
		want   string
	}{
		{saved: 1000, target: 1000, want: GoalCompleted},
		{saved: 1500, target: 1000, want: GoalCompleted},
		{saved: 700, target: 1000, want: GoalOnTrack},
		{saved: 699, target: 1000, want: GoalBehind},
		{saved: 0, target: 1000, want: GoalBehind},
		{saved: 100, target: 0, want: GoalBehind},
	}

	for _, tt := range tests {
		if got := ProgressStatus(tt.saved, tt.target); got != tt.want {
			t.Fatalf("ProgressStatus(%v, %v) = %q, want %q", tt.saved, tt.target, got, tt.want)
		}
	}
}
