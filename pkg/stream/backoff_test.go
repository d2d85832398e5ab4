package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		n    int
		r    float64
		want time.Duration
	}{
		{1, 0, time.Second},
		{2, 0, 2 * time.Second},
		{3, 0.5, 4*time.Second + 500*time.Millisecond},
		{5, 0, 16 * time.Second},
		{6, 0, 30 * time.Second},
		{20, 0.25, 30*time.Second + 250*time.Millisecond},
		{0, 0, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultBackoff.Delay(tt.n, tt.r), "n=%d r=%v", tt.n, tt.r)
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	for n := 1; n <= 12; n++ {
		floor := time.Second << (n - 1)
		if floor > 30*time.Second {
			floor = 30 * time.Second
		}
		for _, r := range []float64{0, 0.1, 0.5, 0.9, 0.999} {
			d := DefaultBackoff.Delay(n, r)
			assert.GreaterOrEqual(t, d, floor, "n=%d r=%v", n, r)
			assert.Less(t, d, floor+time.Second, "n=%d r=%v", n, r)
		}
	}
}

func TestBackoffDelayIsMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for n := 1; n <= 10; n++ {
		d := DefaultBackoff.Delay(n, 0)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestBackoffCustom(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.Delay(1, 0.9))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2, 0))
	assert.Equal(t, 300*time.Millisecond, b.Delay(3, 0))

	unbounded := Backoff{Base: time.Millisecond}
	assert.Equal(t, 8*time.Millisecond, unbounded.Delay(4, 0))
}
