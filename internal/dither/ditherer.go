// Package dither implements per-channel noise-shaping TPDF dither for
// requantization to the output bit depth.
package dither

import (
	"math"

	"github.com/xieping/ReSampler/internal/simdops"
)

// Auto-blanking parameters: sustained digital silence mutes the dither
// noise, and the shaper state decays instead of ringing forever.
const (
	autoBlankLevelThreshold = 1e-6
	autoBlankTimeThreshold  = 30000 // samples
	autoBlankDecayFactor    = 0.9995
)

// Ditherer quantizes one channel to the output bit depth with TPDF dither
// and FIR error-feedback noise shaping.
//
// Per sample x:
//
//	e       = Σ h[k] · prevError[k]
//	shaped  = x − e
//	y       = round((shaped + tpdf) · 2^(b−1)) / 2^(b−1)
//	record    y − shaped as the newest error
//
// A Ditherer is exclusively owned by its channel worker.
type Ditherer[F simdops.Float] struct {
	bits    int
	amount  float64
	profile Profile

	coeff   []F
	history []F // quantization error ring
	pos     int

	rng       *xorshift64star
	quantize  F // 2^(b−1), scaled by gain adjustments
	noiseAmp  F // amount · 2^(1−b)
	autoBlank bool
	silence   int
}

// New creates a ditherer for one channel.
//
// bits is the output word length, amount the dither magnitude in bits
// (normally 1), and seed the channel's PRNG seed (derive it with
// DeriveChannelSeed so parallel channels stay decorrelated).
func New[F simdops.Float](bits int, amount float64, autoBlank bool, seed uint64, profile Profile) *Ditherer[F] {
	if amount <= 0 {
		amount = 1.0
	}

	coeff := make([]F, len(profile.Coeff))
	for i, c := range profile.Coeff {
		coeff[i] = F(c)
	}
	var history []F
	if len(coeff) > 0 {
		history = make([]F, len(coeff))
	}

	return &Ditherer[F]{
		bits:      bits,
		amount:    amount,
		profile:   profile,
		coeff:     coeff,
		history:   history,
		rng:       newXorshift64star(seed),
		quantize:  F(math.Pow(2, float64(bits-1))),
		noiseAmp:  F(amount * math.Pow(2, float64(1-bits))),
		autoBlank: autoBlank,
	}
}

// Dither processes one sample and returns the requantized value.
func (d *Ditherer[F]) Dither(x F) F {
	if d.autoBlank {
		if math.Abs(float64(x)) < autoBlankLevelThreshold {
			d.silence++
		} else {
			d.silence = 0
		}
		if d.silence > autoBlankTimeThreshold {
			d.decayHistory()
			return 0
		}
	}

	// Shape: subtract the filtered error history.
	shaped := x
	order := len(d.coeff)
	for k := 0; k < order; k++ {
		idx := d.pos - k
		if idx < 0 {
			idx += order
		}
		shaped -= d.coeff[k] * d.history[idx]
	}

	// TPDF noise: difference of two uniforms.
	noise := F(d.rng.unit()-d.rng.unit()) * d.noiseAmp

	y := F(math.Round(float64((shaped+noise)*d.quantize))) / d.quantize

	if order > 0 {
		d.pos++
		if d.pos == order {
			d.pos = 0
		}
		d.history[d.pos] = y - shaped
	}

	return y
}

// decayHistory bleeds the shaper state toward zero during blanked output.
func (d *Ditherer[F]) decayHistory() {
	for i := range d.history {
		d.history[i] *= autoBlankDecayFactor
	}
}

// AdjustGain rescales the internal quantization scale after a
// clipping-recovery gain trim, without discarding the error history.
func (d *Ditherer[F]) AdjustGain(g F) {
	d.quantize *= g
}

// Reset zeroes the shaper history for a fresh conversion pass. The PRNG
// keeps running so repeated passes don't reuse the same noise sequence.
func (d *Ditherer[F]) Reset() {
	clear(d.history)
	d.pos = 0
	d.silence = 0
}

// Profile reports the active noise-shaping profile.
func (d *Ditherer[F]) Profile() Profile {
	return d.profile
}
