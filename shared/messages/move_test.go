package messages

import (
	"math"
	"testing"
)

func TestMoveIsValid(t *testing.T) {
	tests := []struct {
		name string
		move Move
		want bool
	}{
		{"neutral", NewMove(0, 0, 0.1, 1), true},
		{"full lock", NewMove(-1, 1, 0.1, 1), true},
		{"steering over", NewMove(1.01, 0, 0.1, 1), false},
		{"throttle under", NewMove(0, -1.5, 0.1, 1), false},
		{"nan steering", NewMove(math.NaN(), 0, 0.1, 1), false},
		{"inf throttle", NewMove(0, math.Inf(1), 0.1, 1), false},
		{"zero dt", NewMove(0, 1, 0, 1), false},
		{"negative dt", NewMove(0, 1, -0.1, 1), false},
		{"nan dt", NewMove(0, 1, math.NaN(), 1), false},
		{"inf dt", NewMove(0, 1, math.Inf(1), 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.move.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
