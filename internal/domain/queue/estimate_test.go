package queue

import "testing"

func TestEstimateWait(t *testing.T) {
	tests := []struct {
		name         string
		waitingAhead int
		avgMinutes   int
		want         int
	}{
		{"head of queue", 0, 15, 0},
		{"one ahead", 1, 15, 15},
		{"two ahead", 2, 15, 30},
		{"clinic override", 2, 10, 20},
		{"zero average falls back to default", 3, 0, 45},
		{"negative average falls back to default", 1, -5, 15},
		{"negative ahead clamps to zero", -1, 15, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateWait(tt.waitingAhead, tt.avgMinutes); got != tt.want {
				t.Errorf("EstimateWait(%d, %d) = %d, want %d", tt.waitingAhead, tt.avgMinutes, got, tt.want)
			}
		})
	}
}
