package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieping/ReSampler/internal/testutil"
)

const (
	testTaps255    = 255
	testTaps1001   = 1001
	testRate48k    = 48000.0
	testRate96k    = 96000.0
	testCutoff20k  = 20000.0
	testAtten160dB = 160.0
	testAtten195dB = 195.0
)

func TestKaiserWindow_Symmetry(t *testing.T) {
	tests := []struct {
		name   string
		length int
		beta   float64
	}{
		{"length_11_beta_5", 11, 5.0},
		{"length_21_beta_8.6", 21, 8.653728},
		{"length_255_beta_15", 255, 15.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := KaiserWindow(tt.length, tt.beta)
			require.Len(t, window, tt.length)
			testutil.AssertSymmetric(t, window, testutil.DefaultTolerance)
			testutil.AssertCenterIsMax(t, window)
			testutil.AssertAllInRange(t, window, 0.0, 1.0)
		})
	}
}

func TestKaiserWindow_EdgeCases(t *testing.T) {
	assert.Empty(t, KaiserWindow(0, 5.0))
	assert.Equal(t, []float64{1.0}, KaiserWindow(1, 5.0))

	// β = 0 degenerates to a rectangular window.
	rect := KaiserWindow(9, 0.0)
	for i, v := range rect {
		assert.InDelta(t, 1.0, v, testutil.DefaultTolerance, "rect[%d]", i)
	}
}

func TestDesignLowPass_Symmetry(t *testing.T) {
	taps, err := DesignLowPass(LowPassSpec{
		NumTaps:        testTaps1001,
		TransitionFreq: testCutoff20k,
		SampleRate:     testRate96k,
		SidelobeAtten:  testAtten160dB,
	})
	require.NoError(t, err)

	testutil.AssertOddLength(t, taps)
	testutil.AssertSymmetric(t, taps, testutil.DefaultTolerance)
	testutil.AssertNoNaNOrInf(t, taps)
	testutil.AssertCenterIsMax(t, taps)
}

func TestDesignLowPass_DCGain(t *testing.T) {
	tests := []struct {
		name string
		spec LowPassSpec
	}{
		{"medium_160dB", LowPassSpec{NumTaps: testTaps255, TransitionFreq: testCutoff20k, SampleRate: testRate48k, SidelobeAtten: testAtten160dB}},
		{"long_195dB", LowPassSpec{NumTaps: testTaps1001, TransitionFreq: testCutoff20k, SampleRate: testRate96k, SidelobeAtten: testAtten195dB}},
		{"narrow", LowPassSpec{NumTaps: testTaps1001, TransitionFreq: 1000, SampleRate: testRate96k, SidelobeAtten: testAtten160dB}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taps, err := DesignLowPass(tt.spec)
			require.NoError(t, err)
			testutil.AssertDCGain(t, taps, 1.0, testutil.DCGainTolerance)
		})
	}
}

func TestDesignLowPass_StopbandAttenuation(t *testing.T) {
	taps, err := DesignLowPass(LowPassSpec{
		NumTaps:        testTaps1001,
		TransitionFreq: 10000,
		SampleRate:     testRate96k,
		SidelobeAtten:  testAtten160dB,
	})
	require.NoError(t, err)

	// Deep in the stopband, the magnitude should be below -100 dB.
	for _, freq := range []float64{20000.0, 30000.0, 40000.0} {
		mag := magnitudeAt(taps, freq/testRate96k)
		db := 20 * math.Log10(math.Max(mag, 1e-30))
		assert.Less(t, db, -100.0, "stopband magnitude at %.0f Hz", freq)
	}

	// Deep in the passband, the response should be flat.
	mag := magnitudeAt(taps, 1000.0/testRate96k)
	assert.InDelta(t, 1.0, mag, 1e-3, "passband magnitude")
}

func TestDesignLowPass_Validation(t *testing.T) {
	tests := []struct {
		name string
		spec LowPassSpec
	}{
		{"too_short", LowPassSpec{NumTaps: 1, TransitionFreq: 100, SampleRate: 1000, SidelobeAtten: 100}},
		{"even_length", LowPassSpec{NumTaps: 100, TransitionFreq: 100, SampleRate: 1000, SidelobeAtten: 100}},
		{"cutoff_above_nyquist", LowPassSpec{NumTaps: 101, TransitionFreq: 600, SampleRate: 1000, SidelobeAtten: 100}},
		{"zero_cutoff", LowPassSpec{NumTaps: 101, TransitionFreq: 0, SampleRate: 1000, SidelobeAtten: 100}},
		{"negative_atten", LowPassSpec{NumTaps: 101, TransitionFreq: 100, SampleRate: 1000, SidelobeAtten: -1}},
		{"zero_rate", LowPassSpec{NumTaps: 101, TransitionFreq: 100, SampleRate: 0, SidelobeAtten: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DesignLowPass(tt.spec)
			assert.Error(t, err)
		})
	}
}

// magnitudeAt evaluates |H(f)| of an FIR filter at normalized frequency f.
func magnitudeAt(taps []float64, f float64) float64 {
	omega := 2 * math.Pi * f
	var re, im float64
	for n, h := range taps {
		re += h * math.Cos(omega*float64(n))
		im -= h * math.Sin(omega*float64(n))
	}
	return math.Hypot(re, im)
}
