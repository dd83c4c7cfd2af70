package filter

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRandom is a tiny deterministic generator so the polyphase
// equivalence property is exercised on irregular data without seeding
// dependencies between runs.
func testRandom(state *uint64) float64 {
	*state = *state*6364136223846793005 + 1442695040888963407
	return float64(int64(*state>>11))/float64(1<<52) - 1.0
}

func TestFIRFilter_ImpulseResponse(t *testing.T) {
	taps := []float64{0.25, 0.5, 1.0, 0.5, 0.25}
	f := NewFIRFilter(taps)

	f.Push(1.0)
	got := []float64{f.Get()}
	for i := 1; i < len(taps); i++ {
		f.Push(0.0)
		got = append(got, f.Get())
	}

	// An impulse walks the taps out in order.
	for i, want := range taps {
		assert.InDelta(t, want, got[i], 1e-15, "impulse response sample %d", i)
	}
}

func TestFIRFilter_GetMatchesDirectConvolution(t *testing.T) {
	taps := []float64{0.1, -0.2, 0.3, 0.15, -0.05, 0.02, 0.4}
	f := NewFIRFilter(taps)

	input := []float64{1, -0.5, 0.25, 0.8, -1, 0.33, 0.6, -0.75, 0.1, 0.9}
	for n, x := range input {
		f.Push(x)

		var want float64
		for i := range taps {
			if n-i >= 0 {
				want += taps[i] * input[n-i]
			}
		}
		assert.InDelta(t, want, f.Get(), 1e-12, "convolution at n=%d", n)
	}
}

// TestFIRFilter_LazyGetEquivalence is the polyphase correctness property:
// for a Push followed by L-1 PushZero calls, LazyGet(L) must equal Get at
// every step.
func TestFIRFilter_LazyGetEquivalence(t *testing.T) {
	for _, l := range []int{2, 3, 4, 7, 16} {
		t.Run(fmt.Sprintf("L%d", l), func(t *testing.T) {
			taps := make([]float64, 97)
			state := uint64(12345)
			for i := range taps {
				taps[i] = testRandom(&state)
			}
			f := NewFIRFilter(taps)

			for n := 0; n < 50; n++ {
				for ii := 0; ii < l; ii++ {
					if ii == 0 {
						f.Push(testRandom(&state))
					} else {
						f.PushZero()
					}
					assert.InDelta(t, f.Get(), f.LazyGet(l), 1e-12,
						"lazy/full mismatch at n=%d phase=%d", n, ii)
				}
			}
		})
	}
}

func TestFIRFilter_WrapAround(t *testing.T) {
	taps := []float64{0.5, 0.25, 0.125}
	f := NewFIRFilter(taps)

	// Push far more samples than the ring holds; the rolling convolution
	// must stay consistent across the wrap.
	state := uint64(777)
	var last3 [3]float64
	for n := 0; n < 1000; n++ {
		x := testRandom(&state)
		last3[2], last3[1], last3[0] = last3[1], last3[0], x
		f.Push(x)
	}
	want := taps[0]*last3[0] + taps[1]*last3[1] + taps[2]*last3[2]
	assert.InDelta(t, want, f.Get(), 1e-12)
}

func TestFIRFilter_Reset(t *testing.T) {
	taps := []float64{1, 1, 1}
	f := NewFIRFilter(taps)

	f.Push(1)
	f.Push(2)
	require.NotZero(t, f.Get())

	f.Reset()
	assert.Zero(t, f.Get())

	// State after reset behaves like a fresh filter.
	f.Push(3)
	assert.InDelta(t, 3.0, f.Get(), 1e-15)
}

func TestFIRFilter_Float32(t *testing.T) {
	taps := []float32{0.5, 0.5}
	f := NewFIRFilter(taps)

	f.Push(1.0)
	assert.InDelta(t, 0.5, float64(f.Get()), 1e-6)
	f.Push(1.0)
	assert.InDelta(t, 1.0, float64(f.Get()), 1e-6)
	assert.Equal(t, 2, f.NumTaps())
}

func TestFIRFilter_LazyGetAfterReset(t *testing.T) {
	taps := make([]float64, 31)
	for i := range taps {
		taps[i] = math.Sin(float64(i))
	}
	f := NewFIRFilter(taps)

	state := uint64(1)
	for n := 0; n < 10; n++ {
		f.Push(testRandom(&state))
		f.PushZero()
	}
	f.Reset()

	f.Push(1.0)
	assert.InDelta(t, f.Get(), f.LazyGet(2), 1e-12)
	f.PushZero()
	assert.InDelta(t, f.Get(), f.LazyGet(2), 1e-12)
}
