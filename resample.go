package resampler

import (
	"errors"
	"fmt"

	"github.com/xieping/ReSampler/internal/dither"
)

// LPFMode selects the low-pass filter design policy.
type LPFMode int

const (
	// LPFNormal places the cutoff at 10/11 of the target Nyquist.
	LPFNormal LPFMode = iota

	// LPFRelaxed moves the cutoff out to 21/22 of the target Nyquist.
	LPFRelaxed

	// LPFSteep uses the relaxed cutoff with a doubled filter length.
	LPFSteep

	// LPFCustom derives cutoff and transition width from
	// CustomLPFCutoff and CustomLPFTransition.
	LPFCustom
)

func (m LPFMode) String() string {
	switch m {
	case LPFNormal:
		return "normal"
	case LPFRelaxed:
		return "relaxed"
	case LPFSteep:
		return "steep"
	case LPFCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// AutoDitherProfile selects the noise-shaping profile from the output
// sample rate.
const AutoDitherProfile = -1

// Common errors returned before a conversion starts.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid conversion configuration")

	// ErrTooManyChannels indicates an input with more channels than the
	// pipeline supports.
	ErrTooManyChannels = errors.New("too many channels")
)

// ConversionConfig holds every option of one conversion. It is immutable
// for the lifetime of the conversion.
//
// Construct with DefaultConfig and override fields; the zero value has the
// wrong defaults for TrimGroupDelay, Gain and Limit.
type ConversionConfig struct {
	InputPath  string
	OutputPath string

	// OutputRate is the target sample rate in Hz.
	OutputRate int

	// UseDouble selects the float64 pipeline; default is float32.
	UseDouble bool

	// Gain is a linear gain applied during conversion (default 1).
	Gain float64

	// Normalize scales the output so its peak lands on Limit.
	Normalize bool

	// Limit is the peak ceiling in (0, 1]. Without Normalize it still
	// bounds the clipping-protection loop.
	Limit float64

	// Dither enables TPDF requantization dither on the output.
	Dither bool

	// DitherBits is the dither magnitude in bits (default 1).
	DitherBits float64

	// AutoBlank mutes dither during sustained digital silence.
	AutoBlank bool

	// DitherProfile is a dither.ProfileID, or AutoDitherProfile to pick
	// from the output rate.
	DitherProfile int

	// UseSeed fixes the dither PRNG seed for reproducible output.
	UseSeed bool
	Seed    uint32

	// TrimGroupDelay drops the linear-phase filter delay from the output
	// (default true).
	TrimGroupDelay bool

	// MinPhase converts the prototype filter to minimum phase.
	MinPhase bool

	// LPF policy; CustomLPFCutoff is a percentage of the target Nyquist in
	// [1, 99.9], CustomLPFTransition a percentage in [0, 99.9] where 0
	// derives the transition width from the cutoff.
	LPFMode             LPFMode
	CustomLPFCutoff     float64
	CustomLPFTransition float64

	// MultiThreaded fans channels out to a worker pool.
	MultiThreaded bool

	// DisableClippingProtection keeps the first pass even if it clips.
	DisableClippingProtection bool

	// ForceRF64 writes WAV-family output as RF64 regardless of size.
	ForceRF64 bool

	// WriteMetadata copies input tags to the output (default true).
	WriteMetadata bool

	// OutBitFormat overrides the output subformat ("16", "24", "float", ...).
	OutBitFormat string

	// FlacCompression is the FLAC effort level 0..8 (default 5).
	FlacCompression int

	// VorbisQuality is the Vorbis quality −1..10 (default 3).
	VorbisQuality float64

	// Progress, when set, receives percent-complete updates at 10%
	// granularity.
	Progress func(percent int)
}

// DefaultConfig returns a config with the documented defaults.
func DefaultConfig() ConversionConfig {
	return ConversionConfig{
		OutputRate:      44100,
		Gain:            1.0,
		Limit:           1.0,
		DitherBits:      1.0,
		DitherProfile:   AutoDitherProfile,
		TrimGroupDelay:  true,
		WriteMetadata:   true,
		FlacCompression: 5,
		VorbisQuality:   3,
	}
}

// Validate rejects configurations before any file is opened.
func (c *ConversionConfig) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("%w: input path not specified", ErrInvalidConfig)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: output path not specified", ErrInvalidConfig)
	}
	if c.InputPath == c.OutputPath {
		return fmt.Errorf("%w: input and output paths cannot be the same", ErrInvalidConfig)
	}
	if c.OutputRate <= 0 {
		return fmt.Errorf("%w: output rate %d", ErrInvalidConfig, c.OutputRate)
	}
	if c.Limit <= 0 || c.Limit > 1 {
		return fmt.Errorf("%w: limit %f outside (0, 1]", ErrInvalidConfig, c.Limit)
	}
	if c.LPFMode == LPFCustom {
		if c.CustomLPFCutoff < 1 || c.CustomLPFCutoff > 99.9 {
			return fmt.Errorf("%w: LPF cutoff %f%% outside [1, 99.9]", ErrInvalidConfig, c.CustomLPFCutoff)
		}
		if c.CustomLPFTransition < 0 || c.CustomLPFTransition > 99.9 {
			return fmt.Errorf("%w: LPF transition %f%% outside [0, 99.9]", ErrInvalidConfig, c.CustomLPFTransition)
		}
	}
	if c.FlacCompression < 0 || c.FlacCompression > 8 {
		return fmt.Errorf("%w: FLAC compression level %d outside 0..8", ErrInvalidConfig, c.FlacCompression)
	}
	if c.VorbisQuality < -1 || c.VorbisQuality > 10 {
		return fmt.Errorf("%w: Vorbis quality %f outside -1..10", ErrInvalidConfig, c.VorbisQuality)
	}
	if c.DitherProfile != AutoDitherProfile {
		if _, ok := dither.ProfileByID(dither.ProfileID(c.DitherProfile)); !ok {
			return fmt.Errorf("%w: dither profile %d", ErrInvalidConfig, c.DitherProfile)
		}
	}
	return nil
}

// ditherAmount returns the dither magnitude with the historical fallback
// for non-positive values.
func (c *ConversionConfig) ditherAmount() float64 {
	if c.DitherBits <= 0 {
		return 1.0
	}
	return c.DitherBits
}
