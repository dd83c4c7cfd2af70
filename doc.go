// Package resampler converts audio files between sample rates while
// preserving fidelity.
//
// The conversion reduces the rate ratio to a coprime fraction L/M, designs
// a single Kaiser-windowed sinc low-pass prototype at the oversampled rate
// inRate·L, and drives every channel through an interpolate-by-L / filter /
// decimate-by-M polyphase path. Optional stages cover gain, peak
// normalization, noise-shaped TPDF dither, minimum-phase filtering and
// group-delay trimming.
//
// # Quick start
//
//	cfg := resampler.DefaultConfig()
//	cfg.InputPath = "in.wav"
//	cfg.OutputPath = "out.wav"
//	cfg.OutputRate = 96000
//	result, err := resampler.Convert(cfg)
//
// Convert streams the file block by block; memory use is independent of
// file length. With ConversionConfig.MultiThreaded set, channels are fanned
// out to a worker pool sized to the channel count and joined before each
// write, so output ordering never depends on scheduling.
//
// # Clipping protection
//
// Filtering can overshoot between samples, so a conversion that should
// peak at full scale may exceed it. After each pass the observed peak is
// checked against ConversionConfig.Limit; if it clips, the gain is trimmed
// by clippingTrim·limit/peak, all filter and dither state is reset, and
// the conversion restarts from the top of the input, truncating the output
// file. ConversionConfig.DisableClippingProtection keeps the first pass
// regardless.
//
// # Supported formats
//
// Inputs: WAV, AIFF, MP3, Ogg Vorbis, and the DSD containers DSF and DFF
// (delivered to the pipeline as ±1.0 floats at their native rate).
// Outputs: WAV, RF64 (automatic once the predicted size crosses 4 GiB) and
// AIFF. The output subformat follows the input unless overridden with
// ConversionConfig.OutBitFormat.
package resampler
