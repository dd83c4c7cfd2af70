package filter

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// minPhaseOversize pads the FFT well beyond the filter length to keep
	// cepstral aliasing below the filter's own noise floor.
	minPhaseOversize = 8

	// logMagnitudeFloor is the ε floor applied to |H| before the logarithm.
	// The cepstrum is unstable near spectral zeros; stopband bins of a high
	// attenuation prototype get arbitrarily close to zero.
	logMagnitudeFloor = 1e-9
)

// MinimumPhase converts a linear-phase prototype to minimum phase via the
// real cepstrum:
//
//	FFT → ln|H| → IFFT → fold the anti-causal half onto the causal half
//	→ FFT → exp → IFFT → first N real taps
//
// The magnitude response is preserved while all zeros move inside the unit
// circle, concentrating the impulse-response energy near t=0 and removing
// the linear group delay (the driver sets the delay trim to 0).
func MinimumPhase(taps []float64) ([]float64, error) {
	n := len(taps)
	if n < minTaps {
		return nil, fmt.Errorf("filter too short for minimum-phase conversion: %d taps", n)
	}

	fftSize := 1
	for fftSize < n*minPhaseOversize {
		fftSize *= 2
	}
	fft := fourier.NewCmplxFFT(fftSize)
	scale := complex(1.0/float64(fftSize), 0)

	buf := make([]complex128, fftSize)
	for i, t := range taps {
		buf[i] = complex(t, 0)
	}

	// Log magnitude spectrum, with the ε floor guarding stopband zeros.
	spectrum := fft.Coefficients(nil, buf)
	for i, h := range spectrum {
		magnitude := math.Max(cmplx.Abs(h), logMagnitudeFloor)
		spectrum[i] = complex(math.Log(magnitude), 0)
	}

	// Real cepstrum (gonum's inverse transform is unnormalized).
	cepstrum := fft.Sequence(nil, spectrum)
	for i := range cepstrum {
		cepstrum[i] *= scale
	}

	// Fold the anti-causal half into the causal half: weights are
	// 1, 2, 2, ..., 2, 1, 0, ..., 0 across the cepstrum.
	half := fftSize / 2
	for i := 1; i < half; i++ {
		cepstrum[i] *= 2
	}
	for i := half + 1; i < fftSize; i++ {
		cepstrum[i] = 0
	}

	// Back to the spectral domain and exponentiate.
	folded := fft.Coefficients(nil, cepstrum)
	for i := range folded {
		folded[i] = cmplx.Exp(folded[i])
	}

	result := fft.Sequence(nil, folded)
	out := make([]float64, n)
	var sum float64
	for i := range out {
		out[i] = real(result[i] * scale)
		sum += out[i]
	}

	// Hold the prototype's unity DC gain through the conversion.
	if math.Abs(sum) > sincZeroThreshold {
		for i := range out {
			out[i] /= sum
		}
	}

	return out, nil
}
