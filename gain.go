package resampler

import (
	"math"
)

// computeGain plans the initial pipeline gain:
//
//	base = userGain · (normalize ? limit/peak : limit) · L
//
// The factor L restores unity passband gain after zero-insertion
// interpolation. With dither enabled, headroom is reserved for the added
// noise via the compensation factor.
func computeGain(cfg *ConversionConfig, l int, measuredPeak float64, outputBits int) float64 {
	// A silent input with normalization would divide by zero; treat the
	// peak as full scale instead.
	if measuredPeak <= 0 {
		measuredPeak = 1.0
	}

	gain := cfg.Gain * float64(l)
	if cfg.Normalize {
		gain *= cfg.Limit / measuredPeak
	} else {
		gain *= cfg.Limit
	}

	if cfg.Dither {
		gain *= ditherCompensation(outputBits, cfg.ditherAmount())
	}
	return gain
}

// ditherCompensation reserves amplitude headroom for dither noise:
//
//	(2^(b−1) − 2^(d−1)) / 2^(b−1)
//
// For 16-bit output with 1 bit of dither this is 32767/32768 ≈ −0.00027 dB.
func ditherCompensation(outputBits int, ditherBits float64) float64 {
	full := math.Pow(2, float64(outputBits-1))
	return (full - math.Pow(2, ditherBits-1)) / full
}
