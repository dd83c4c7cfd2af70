// Package filter implements the windowed-sinc prototype design and the
// streaming polyphase FIR engine used by the conversion pipeline.
package filter

import (
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"

	"github.com/xieping/ReSampler/internal/mathutil"
)

const (
	minTaps = 3

	// sincZeroThreshold guards the 0/0 limit at the center tap.
	sincZeroThreshold = 1e-10
)

// LowPassSpec describes a windowed-sinc low-pass prototype.
type LowPassSpec struct {
	// NumTaps is the filter length. Must be odd so the filter has a
	// well-defined center tap and exact linear phase.
	NumTaps int

	// TransitionFreq is the cutoff frequency in Hz.
	TransitionFreq float64

	// SampleRate is the rate the filter runs at, in Hz. For an
	// interpolate-by-L pipeline this is the oversampled rate inRate·L.
	SampleRate float64

	// SidelobeAtten is the Kaiser window sidelobe attenuation target in dB.
	SidelobeAtten float64
}

// Validate checks the prototype parameters.
func (s *LowPassSpec) Validate() error {
	if s.NumTaps < minTaps {
		return fmt.Errorf("filter too short: %d taps (minimum %d)", s.NumTaps, minTaps)
	}
	if s.NumTaps%2 == 0 {
		return fmt.Errorf("filter length %d is even; symmetric FIR filters need an odd length", s.NumTaps)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %f", s.SampleRate)
	}
	if s.TransitionFreq <= 0 || s.TransitionFreq >= s.SampleRate/2 {
		return fmt.Errorf("invalid transition frequency: %f Hz (must be in (0, %f))", s.TransitionFreq, s.SampleRate/2)
	}
	if s.SidelobeAtten <= 0 {
		return fmt.Errorf("invalid sidelobe attenuation: %f dB", s.SidelobeAtten)
	}
	return nil
}

// KaiserWindow generates a Kaiser window of the given length and β.
//
// w[n] = I₀(β · √(1 − ((n − α)/α)²)) / I₀(β), α = (N−1)/2
//
// The window is symmetric: w[i] = w[length−1−i].
func KaiserWindow(length int, beta float64) []float64 {
	if length < 1 {
		return []float64{}
	}

	window := make([]float64, length)
	if length == 1 {
		window[0] = 1.0
		return window
	}

	alpha := float64(length-1) / 2.0
	i0Beta := mathutil.BesselI0(beta)

	for n := range length {
		x := (float64(n) - alpha) / alpha
		arg := beta * math.Sqrt(1.0-x*x)
		window[n] = mathutil.BesselI0(arg) / i0Beta
	}

	return window
}

// DesignLowPass builds the windowed-sinc low-pass prototype:
//
//  1. Generate the ideal sinc impulse response at fc = TransitionFreq/SampleRate.
//  2. Truncate to NumTaps and apply a Kaiser window with β from the
//     sidelobe-attenuation target.
//  3. Scale so the DC gain (Σ taps) is exactly 1.
//
// The result is linear phase (symmetric) and shared read-only by every
// channel filter.
func DesignLowPass(spec LowPassSpec) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	beta := mathutil.KaiserBeta(spec.SidelobeAtten)
	window := KaiserWindow(spec.NumTaps, beta)

	fc := spec.TransitionFreq / spec.SampleRate
	taps := make([]float64, spec.NumTaps)
	center := float64(spec.NumTaps-1) / 2.0

	for n := range spec.NumTaps {
		x := float64(n) - center

		// sinc: sin(2πfc·x)/(πx), with the L'Hôpital limit 2fc at x=0.
		var sincValue float64
		if math.Abs(x) < sincZeroThreshold {
			sincValue = 2.0 * fc
		} else {
			sincValue = math.Sin(2.0*math.Pi*fc*x) / (math.Pi * x)
		}

		taps[n] = sincValue * window[n]
	}

	sum := f64.Sum(taps)
	if math.Abs(sum) < sincZeroThreshold {
		return nil, fmt.Errorf("degenerate filter: DC gain %e too close to zero", sum)
	}
	f64.Scale(taps, taps, 1.0/sum)

	return taps, nil
}
