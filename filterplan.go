package resampler

import (
	"github.com/xieping/ReSampler/internal/filter"
)

// lpfAutoSteepness is the 1/11 transition constant behind the automatic
// steepness of custom cutoffs.
const lpfAutoSteepness = 0.090909091

// filterPlan captures every decision of the prototype design policy for
// one conversion.
type filterPlan struct {
	// original is the reduced ratio before min-phase oversampling; it
	// drives the sidelobe and group-delay decisions.
	original Fraction

	// working is the ratio the pipeline actually runs, possibly scaled by
	// the oversampling factor.
	working Fraction

	size            int     // prototype length N, odd
	cutoffHz        float64 // ft
	oversampledRate int     // inRate · working.L
	sidelobeAtten   float64
	groupDelay      int // output samples to trim, 0 for min-phase
	minPhase        bool
}

// planFilter applies the filter-size, cutoff and attenuation policy.
//
// Simple ratios (min(L,M) ≤ 4, L ≠ M) get a medium prototype scaled by the
// larger term; with minimum phase they are additionally oversampled by 8 to
// lengthen the prototype. Complex ratios get the huge prototype scaled by
// max(L,M)/320.
func planFilter(inRate int, cfg *ConversionConfig) filterPlan {
	original := ReduceRatio(inRate, cfg.OutputRate)
	working := original

	var base int
	oversample := 1
	if original.isSimple() {
		base = FilterSizeMedium * original.maxTerm() / 2
		if cfg.MinPhase {
			oversample = minPhaseOversampleFactor
			working.L *= oversample
			working.M *= oversample
		}
	} else {
		base = FilterSizeHuge * original.maxTerm() / complexRatioDivisor
	}

	targetNyquist := float64(min(inRate, cfg.OutputRate)) / 2.0

	var ft, steepness float64
	switch cfg.LPFMode {
	case LPFRelaxed:
		ft = 21 * targetNyquist / 22
		steepness = 1
	case LPFSteep:
		ft = 21 * targetNyquist / 22
		steepness = 2
	case LPFCustom:
		ft = (cfg.CustomLPFCutoff / 100.0) * targetNyquist
		if cfg.CustomLPFTransition == 0 {
			steepness = lpfAutoSteepness / (1 - cfg.CustomLPFCutoff/100.0)
		} else {
			steepness = lpfAutoSteepness / (cfg.CustomLPFTransition / 100.0)
		}
	default:
		ft = 10 * targetNyquist / 11
		steepness = 1
	}

	// Scale and force an odd length.
	size := min(int(float64(oversample)*float64(base)*steepness), FilterSizeLimit) | 1

	atten := float64(sidelobeAttenComplexRatio)
	if original.L == 1 || original.M == 1 {
		atten = sidelobeAttenIntegerRatio
	}

	groupDelay := 0
	if !cfg.MinPhase && cfg.TrimGroupDelay {
		groupDelay = (size - 1) / 2 / original.M
	}

	return filterPlan{
		original:        original,
		working:         working,
		size:            size,
		cutoffHz:        ft,
		oversampledRate: inRate * working.L,
		sidelobeAtten:   atten,
		groupDelay:      groupDelay,
		minPhase:        cfg.MinPhase,
	}
}

// designTaps builds the prototype for the plan, converting to minimum
// phase when requested. Design always runs in float64; the caller converts
// to the pipeline's precision.
func designTaps(plan filterPlan) ([]float64, error) {
	taps, err := filter.DesignLowPass(filter.LowPassSpec{
		NumTaps:        plan.size,
		TransitionFreq: plan.cutoffHz,
		SampleRate:     float64(plan.oversampledRate),
		SidelobeAtten:  plan.sidelobeAtten,
	})
	if err != nil {
		return nil, err
	}

	if plan.minPhase {
		taps, err = filter.MinimumPhase(taps)
		if err != nil {
			return nil, err
		}
	}
	return taps, nil
}
