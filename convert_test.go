package resampler

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieping/ReSampler/internal/sndio"
	"github.com/xieping/ReSampler/internal/testutil"
)

// writeWAV writes interleaved samples as a 16-bit WAV test fixture.
func writeWAV(t *testing.T, path string, rate, channels int, samples []float64) {
	t.Helper()
	sink, err := sndio.Create(path, sndio.FileFormat{Container: sndio.ContainerWAV, Subformat: sndio.Subformat16}, channels, rate)
	require.NoError(t, err)
	require.NoError(t, sink.WriteSamples(samples))
	require.NoError(t, sink.Close())
}

// readWAV reads a whole WAV file back as interleaved float samples.
func readWAV(t *testing.T, path string) []float64 {
	t.Helper()
	src, err := sndio.Open(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	var all []float64
	buf := make([]float64, 4096)
	for {
		n, err := src.Read(buf)
		all = append(all, buf[:n]...)
		if err != nil || n == 0 {
			return all
		}
	}
}

// sine generates a quantized-to-16-bit sine so written fixtures round-trip
// exactly.
func sine(frames int, rate int, freq, amp float64) []float64 {
	out := make([]float64, frames)
	for i := range out {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		out[i] = math.Round(v*32768) / 32768
	}
	return out
}

func baseConfig(in, out string, rate int) ConversionConfig {
	cfg := DefaultConfig()
	cfg.InputPath = in
	cfg.OutputPath = out
	cfg.OutputRate = rate
	return cfg
}

// TestConvert_IdentityBitExact is the passthrough property: same rate, no
// dither, unity gain reproduces the input bit for bit.
func TestConvert_IdentityBitExact(t *testing.T) {
	for _, double := range []bool{false, true} {
		name := "float32"
		if double {
			name = "float64"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "in.wav")
			out := filepath.Join(dir, "out.wav")

			input := sine(4410, 44100, 997, 0.8)
			writeWAV(t, in, 44100, 1, input)

			cfg := baseConfig(in, out, 44100)
			cfg.UseDouble = double
			result, err := Convert(cfg)
			require.NoError(t, err)
			assert.Equal(t, Fraction{L: 1, M: 1}, result.Ratio)
			assert.Equal(t, 1, result.Passes)

			got := readWAV(t, out)
			require.Len(t, got, len(input))
			for i := range input {
				require.Equal(t, input[i], got[i], "sample %d differs", i)
			}
		})
	}
}

// TestConvert_UpsampleLength is the buffering property: output length is
// floor(in·L/M) minus the group-delay trim, within one boundary sample.
func TestConvert_UpsampleLength(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	const frames = 8000
	writeWAV(t, in, 8000, 1, sine(frames, 8000, 440, 0.5))

	cfg := baseConfig(in, out, 16000)
	cfg.UseDouble = true
	result, err := Convert(cfg)
	require.NoError(t, err)

	plan := planFilter(8000, &cfg)
	want := int64(frames*2 - plan.groupDelay)
	assert.InDelta(t, float64(want), float64(result.OutputFrames), 1,
		"output frames %d, want %d±1", result.OutputFrames, want)
}

func TestConvert_DownsampleLength(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	const frames = 16000
	writeWAV(t, in, 16000, 1, sine(frames, 16000, 440, 0.5))

	cfg := baseConfig(in, out, 8000)
	cfg.UseDouble = true
	result, err := Convert(cfg)
	require.NoError(t, err)

	plan := planFilter(16000, &cfg)
	want := int64(frames/2 - plan.groupDelay)
	assert.InDelta(t, float64(want), float64(result.OutputFrames), 1)
}

// TestConvert_RoundTripFidelity upsamples then downsamples with the same
// policy and requires the round trip to sit below -80 dB RMS error in the
// passband.
func TestConvert_RoundTripFidelity(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	up := filepath.Join(dir, "up.wav")
	back := filepath.Join(dir, "back.wav")

	const frames = 8000
	input := sine(frames, 8000, 500, 0.5)
	writeWAV(t, in, 8000, 1, input)

	cfgUp := baseConfig(in, up, 16000)
	cfgUp.UseDouble = true
	_, err := Convert(cfgUp)
	require.NoError(t, err)

	cfgDown := baseConfig(up, back, 8000)
	cfgDown.UseDouble = true
	_, err = Convert(cfgDown)
	require.NoError(t, err)

	got := readWAV(t, back)
	require.Greater(t, len(got), 5000)

	// Compare away from the edge transients.
	start, end := 2000, 5000
	diff := make([]float64, end-start)
	for i := start; i < end; i++ {
		diff[i-start] = got[i] - input[i]
	}
	errRMS := testutil.RMS(diff)
	sigRMS := testutil.RMS(input[start:end])
	ratioDB := 20 * math.Log10(errRMS/sigRMS)
	assert.Less(t, ratioDB, -80.0, "round-trip error %.1f dB", ratioDB)
}

// TestConvert_ClippingRecovery is the convergence property: the recovery
// loop lands at or below the limit in a bounded number of passes.
func TestConvert_ClippingRecovery(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	writeWAV(t, in, 44100, 1, sine(4410, 44100, 997, 0.9))

	cfg := baseConfig(in, out, 44100)
	cfg.Gain = 4.0
	result, err := Convert(cfg)
	require.NoError(t, err)

	assert.Greater(t, result.Passes, 1, "a 4x gain on a 0.9 peak must clip")
	assert.LessOrEqual(t, result.Passes, 5)
	assert.LessOrEqual(t, result.PeakOutput, 1.0)

	// The written file honors the bound too.
	for i, v := range readWAV(t, out) {
		require.LessOrEqual(t, math.Abs(v), 1.0, "sample %d", i)
	}
}

func TestConvert_ClippingProtectionDisabled(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	writeWAV(t, in, 44100, 1, sine(4410, 44100, 997, 0.9))

	cfg := baseConfig(in, out, 44100)
	cfg.Gain = 4.0
	cfg.DisableClippingProtection = true
	result, err := Convert(cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passes)
	assert.Greater(t, result.PeakOutput, 1.0)
}

// TestConvert_Normalize drives a half-scale signal to the limit.
func TestConvert_Normalize(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	writeWAV(t, in, 8000, 1, sine(8000, 8000, 500, 0.5))

	cfg := baseConfig(in, out, 16000)
	cfg.Normalize = true
	cfg.Limit = 1.0
	cfg.UseDouble = true
	result, err := Convert(cfg)
	require.NoError(t, err)

	assert.LessOrEqual(t, result.PeakOutput, 1.0+1e-9)
	assert.GreaterOrEqual(t, result.PeakOutput, 0.88)
}

// TestConvert_MultiThreadedMatchesSequential checks the scheduling
// invariant: interleaved output is determined by stride placement, so the
// parallel fan-out must be byte-identical to sequential processing.
func TestConvert_MultiThreadedMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	seq := filepath.Join(dir, "seq.wav")
	par := filepath.Join(dir, "par.wav")

	const frames = 4000
	input := make([]float64, frames*2)
	left := sine(frames, 8000, 440, 0.5)
	right := sine(frames, 8000, 700, 0.3)
	for i := 0; i < frames; i++ {
		input[i*2] = left[i]
		input[i*2+1] = right[i]
	}
	writeWAV(t, in, 8000, 2, input)

	cfgSeq := baseConfig(in, seq, 16000)
	cfgSeq.UseDouble = true
	_, err := Convert(cfgSeq)
	require.NoError(t, err)

	cfgPar := baseConfig(in, par, 16000)
	cfgPar.UseDouble = true
	cfgPar.MultiThreaded = true
	_, err = Convert(cfgPar)
	require.NoError(t, err)

	seqBytes, err := os.ReadFile(seq)
	require.NoError(t, err)
	parBytes, err := os.ReadFile(par)
	require.NoError(t, err)
	assert.Equal(t, seqBytes, parBytes)
}

func TestConvert_MinPhase(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	const frames = 4000
	writeWAV(t, in, 8000, 1, sine(frames, 8000, 440, 0.5))

	cfg := baseConfig(in, out, 16000)
	cfg.MinPhase = true
	cfg.UseDouble = true
	result, err := Convert(cfg)
	require.NoError(t, err)

	// No delay trim with minimum phase: the full floor(in·L/M) arrives.
	assert.InDelta(t, float64(frames*2), float64(result.OutputFrames), 1)
	assert.LessOrEqual(t, result.PeakOutput, 1.0)
}

func TestConvert_DitheredOutputStaysBounded(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	writeWAV(t, in, 44100, 1, sine(4410, 44100, 997, 0.9))

	cfg := baseConfig(in, out, 44100)
	cfg.Dither = true
	cfg.UseSeed = true
	cfg.Seed = 1234
	result, err := Convert(cfg)
	require.NoError(t, err)

	assert.LessOrEqual(t, result.PeakOutput, 1.0)
	got := readWAV(t, out)
	assert.NotEmpty(t, got)
}

func TestConvert_DitherReproducibleWithSeed(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out1 := filepath.Join(dir, "out1.wav")
	out2 := filepath.Join(dir, "out2.wav")

	writeWAV(t, in, 44100, 1, sine(4410, 44100, 997, 0.5))

	for _, out := range []string{out1, out2} {
		cfg := baseConfig(in, out, 44100)
		cfg.Dither = true
		cfg.UseSeed = true
		cfg.Seed = 42
		_, err := Convert(cfg)
		require.NoError(t, err)
	}

	b1, err := os.ReadFile(out1)
	require.NoError(t, err)
	b2, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestConvert_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConversionConfig)
	}{
		{"same_paths", func(c *ConversionConfig) { c.OutputPath = c.InputPath }},
		{"zero_rate", func(c *ConversionConfig) { c.OutputRate = 0 }},
		{"no_input", func(c *ConversionConfig) { c.InputPath = "" }},
		{"bad_limit", func(c *ConversionConfig) { c.Limit = 1.5 }},
		{"bad_cutoff", func(c *ConversionConfig) {
			c.LPFMode = LPFCustom
			c.CustomLPFCutoff = 0.5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig("in.wav", "out.wav", 48000)
			tt.mutate(&cfg)
			_, err := Convert(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConvert_MissingInputFile(t *testing.T) {
	cfg := baseConfig(filepath.Join(t.TempDir(), "missing.wav"),
		filepath.Join(t.TempDir(), "out.wav"), 48000)
	_, err := Convert(cfg)
	assert.Error(t, err)
}

func TestConvert_SubformatOverride(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	writeWAV(t, in, 8000, 1, sine(800, 8000, 440, 0.5))

	cfg := baseConfig(in, out, 8000)
	cfg.OutBitFormat = sndio.Subformat24
	result, err := Convert(cfg)
	require.NoError(t, err)
	assert.Equal(t, sndio.Subformat24, result.Format.Subformat)

	src, err := sndio.Open(out)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()
	assert.Equal(t, sndio.Subformat24, src.Format().Subformat)
}
