package resampler

// Filter-size policy constants. The base prototype length is scaled by the
// conversion ratio and steepness, then capped at FilterSizeLimit.
const (
	// FilterSizeMedium seeds the prototype length for simple ratios
	// (min(L,M) ≤ 4), where the oversampled rate stays low.
	FilterSizeMedium = 3000

	// FilterSizeHuge seeds the prototype length for complex ratios such as
	// 147:160, where the filter runs at inRate·L.
	FilterSizeHuge = 327680

	// FilterSizeLimit caps the prototype length.
	FilterSizeLimit = 1000001

	// complexRatioDivisor scales FilterSizeHuge by max(L,M)/320 for
	// complex ratios.
	complexRatioDivisor = 320
)

// Sidelobe attenuation targets for the Kaiser window, in dB. Integer
// ratios afford the longer transition band of the stronger window.
const (
	sidelobeAttenIntegerRatio = 195
	sidelobeAttenComplexRatio = 160
)

// minPhaseOversampleFactor lengthens the working ratio for minimum-phase
// conversions of simple ratios, improving the phase response of the
// shortish prototype.
const minPhaseOversampleFactor = 8

// simpleRatioThreshold separates simple from complex ratios: a reduced
// ratio is simple when min(L,M) ≤ 4 and L ≠ M.
const simpleRatioThreshold = 4

// I/O and pipeline constants.
const (
	// BufferSize is the block size in interleaved samples; each block read
	// is rounded down to a whole number of frames.
	BufferSize = 40000

	// MaxChannels bounds the per-channel state arrays and the worker pool.
	MaxChannels = 18

	// clippingTrim is the safety factor applied to the gain correction
	// when a pass clips: g' = clippingTrim · limit / peak.
	clippingTrim = 0.9

	// outBufferPadFrames pads the per-block output buffer against L/M
	// rounding.
	outBufferPadFrames = 2

	// progressGranularity is the reporting step for the progress callback.
	progressGranularity = 10 // percent
)

// dsdPeakGuess replaces the peak scan for DSD inputs when normalizing: a
// full scan of the oversampled stream is avoided and 0.5 is a calibrated
// guess for program material on SACD.
const dsdPeakGuess = 0.5
