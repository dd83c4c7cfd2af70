package resampler

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/xieping/ReSampler/internal/dither"
	"github.com/xieping/ReSampler/internal/filter"
	"github.com/xieping/ReSampler/internal/simdops"
	"github.com/xieping/ReSampler/internal/sndio"
)

// ConversionResult summarizes a finished conversion.
type ConversionResult struct {
	// Ratio is the reduced conversion ratio L:M.
	Ratio Fraction

	// Format is the resolved output container and subformat.
	Format sndio.FileFormat

	// Passes counts pipeline passes; more than one means clipping
	// recovery re-ran the conversion with reduced gain.
	Passes int

	// PeakOutput is the final pass's peak sample magnitude.
	PeakOutput float64

	// InputFrames and OutputFrames count frames consumed and written in
	// the final pass.
	InputFrames  int64
	OutputFrames int64
}

// Convert runs one complete conversion described by cfg.
//
// When clipping protection is active and a pass produces a peak above the
// limit, the output file is re-created from scratch with reduced gain; the
// destination path is therefore truncated and rewritten once per extra
// pass before Convert returns. The number of passes is not capped; each
// retry lowers the gain by clippingTrim·limit/peak.
func Convert(cfg ConversionConfig) (*ConversionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src, err := sndio.Open(cfg.InputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	if cfg.UseDouble {
		slog.Info("using double precision for calculations")
		return convert[float64](&cfg, src)
	}
	return convert[float32](&cfg, src)
}

func convert[F simdops.Float](cfg *ConversionConfig, src sndio.Source) (*ConversionResult, error) {
	channels := src.Channels()
	if channels < 1 {
		return nil, fmt.Errorf("%w: no channels", sndio.ErrInvalidFile)
	}
	if channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyChannels, channels, MaxChannels)
	}
	inRate := src.SampleRate()

	slog.Info("input file",
		"path", cfg.InputPath,
		"format", src.Format().String(),
		"channels", channels,
		"rate", inRate)
	slog.Info("output file", "path", cfg.OutputPath, "rate", cfg.OutputRate)

	// Whole frames per block, whatever the channel count.
	blockSize := (BufferSize / channels) * channels

	// Measure the input peak. DSD inputs skip the scan: rescanning the
	// oversampled stream is expensive and the normalization guess is
	// calibrated for SACD material.
	var measuredPeak float64
	var inputSamples int64
	if src.Format().IsDSD() {
		measuredPeak = 1.0
		if cfg.Normalize {
			measuredPeak = dsdPeakGuess
		}
		inputSamples = src.Frames() * int64(channels)
	} else {
		var err error
		measuredPeak, inputSamples, err = scanPeak(src, blockSize)
		if err != nil {
			return nil, fmt.Errorf("scanning input peaks: %w", err)
		}
		slog.Info("peak input sample", "peak", measuredPeak, "dBFS", dbfs(measuredPeak))
		if err := src.Rewind(); err != nil {
			return nil, err
		}
	}
	if cfg.Normalize {
		slog.Info("normalizing", "limit", cfg.Limit)
	}

	plan := planFilter(inRate, cfg)
	mode := classifyMode(plan.working)
	slog.Info("conversion ratio",
		"factor", float64(cfg.OutputRate)/float64(inRate),
		"fraction", fmt.Sprintf("%d:%d", plan.original.L, plan.original.M))

	// Design the shared prototype; a 1:1 conversion is a plain copy and
	// needs no filter.
	var taps []F
	if mode != modeCopy {
		targetNyquist := float64(min(inRate, cfg.OutputRate)) / 2.0
		slog.Info("LPF transition frequency",
			"hz", plan.cutoffHz,
			"percent", 100*plan.cutoffHz/targetNyquist)
		if plan.minPhase {
			slog.Info("using minimum-phase LPF")
		}

		designed, err := designTaps(plan)
		if err != nil {
			return nil, fmt.Errorf("designing filter: %w", err)
		}
		taps = make([]F, len(designed))
		for i, t := range designed {
			taps[i] = F(t)
		}
	}

	// Resolve the output container and subformat.
	res, err := sndio.ResolveOutput(src.Format(), sndio.Ext(cfg.OutputPath), cfg.OutBitFormat)
	if err != nil {
		return nil, err
	}
	if res.Fallback {
		slog.Warn("requested subformat not valid for container, using default",
			"format", res.Format.String())
	}
	outFormat := res.Format

	if outFormat.IsWAVFamily() && outFormat.Container != sndio.ContainerRF64 {
		predicted := sndio.PredictedOutputBytes(inputSamples,
			sndio.BytesPerSample(outFormat.Subformat), plan.original.L, plan.original.M)
		if sndio.NeedsRF64(predicted, cfg.ForceRF64) {
			slog.Warn("switching to RF64 format", "predictedBytes", predicted)
			outFormat.Container = sndio.ContainerRF64
		}
	}
	outputBits := outputSignalBits(outFormat.Subformat)

	// Per-channel state: one filter and one ditherer per channel, each
	// seeded independently.
	profile := resolveDitherProfile(cfg)
	if cfg.Dither {
		slog.Info("dither",
			"bits", cfg.ditherAmount(),
			"profile", profile.Name,
			"outputBits", outputBits,
			"autoBlank", cfg.AutoBlank)
	}
	seedBase := uint64(cfg.Seed)
	if !cfg.UseSeed {
		seedBase = uint64(time.Now().UnixNano())
	}

	states := make([]*channelState[F], channels)
	for ch := range states {
		st := &channelState[F]{}
		if mode != modeCopy {
			st.fir = filter.NewFIRFilter(taps)
		}
		if cfg.Dither {
			st.dith = dither.New[F](outputBits, cfg.ditherAmount(), cfg.AutoBlank,
				dither.DeriveChannelSeed(seedBase, ch), profile)
		}
		states[ch] = st
	}

	gain := computeGain(cfg, plan.working.L, measuredPeak, outputBits)

	meta := src.Metadata()
	if !meta.IsZero() {
		meta.Software = "ReSampler " + Version
	}

	result := &ConversionResult{Ratio: plan.original, Format: outFormat}

	for pass := 1; ; pass++ {
		sink, err := sndio.Create(cfg.OutputPath, outFormat, channels, cfg.OutputRate)
		if err != nil {
			return nil, err
		}

		if cfg.WriteMetadata && !meta.IsZero() {
			if err := sink.SetMetadata(meta); err != nil {
				slog.Warn("problem writing metadata to output file", "error", err)
			}
		}
		switch outFormat.Container {
		case sndio.ContainerFLAC:
			// 9 levels, 0-8, normalized to 0..1.
			_ = sink.SetCompression(float64(cfg.FlacCompression) / 8.0)
		case sndio.ContainerOgg:
			// Quality -1..10 maps inverted onto 0..1.
			_ = sink.SetCompression((1.0 - cfg.VorbisQuality) / 11.0)
		}

		peak, written, read, runErr := runPass(cfg, src, sink, mode, plan, states, F(gain), channels, blockSize, inputSamples)
		closeErr := sink.Close()
		if runErr != nil {
			return nil, runErr
		}
		if closeErr != nil {
			return nil, fmt.Errorf("finalizing output: %w", closeErr)
		}

		result.Passes = pass
		result.PeakOutput = float64(peak)
		result.OutputFrames = written / int64(channels)
		result.InputFrames = read / int64(channels)
		slog.Info("peak output sample", "peak", result.PeakOutput, "dBFS", dbfs(result.PeakOutput))

		if result.PeakOutput <= cfg.Limit || cfg.DisableClippingProtection {
			break
		}

		// Clipping: trim the gain, rewind, reset all per-channel state and
		// redo the whole conversion.
		trim := clippingTrim * cfg.Limit / result.PeakOutput
		gain *= trim
		slog.Warn("clipping detected, re-doing conversion",
			"gainAdjustmentDB", 20*math.Log10(trim))

		if err := src.Rewind(); err != nil {
			return nil, err
		}
		for _, st := range states {
			if st.fir != nil {
				st.fir.Reset()
			}
			st.decimPhase = 0
			if st.dith != nil {
				st.dith.AdjustGain(F(trim))
				st.dith.Reset()
			}
		}
	}

	return result, nil
}

// runPass streams the input through the channel workers once: read a
// block, fan out one work item per channel, join, write. The worker pool
// lives for the duration of the pass.
func runPass[F simdops.Float](
	cfg *ConversionConfig,
	src sndio.Source,
	sink sndio.Sink,
	mode convertMode,
	plan filterPlan,
	states []*channelState[F],
	gain F,
	channels, blockSize int,
	inputSamples int64,
) (peak F, written, read int64, err error) {
	f := plan.working
	outCap := outBufferPadFrames*channels + blockSize*f.L/f.M

	in64 := make([]float64, blockSize)
	inF := make([]F, blockSize)
	outF := make([]F, outCap)
	out64 := make([]float64, outCap)
	results := make([]blockResult[F], channels)

	// The group-delay skip applies to the leading samples of the pass.
	skip := min(plan.groupDelay*channels, outCap-channels)

	var pool *workerPool
	if cfg.MultiThreaded && channels > 1 {
		pool = newWorkerPool(channels)
		defer pool.close()
	}

	progressStep := inputSamples / int64(100/progressGranularity)
	nextProgress := progressStep

	for {
		n, readErr := src.Read(in64[:blockSize])
		if readErr != nil && readErr != io.EOF {
			return peak, written, read, fmt.Errorf("reading input: %w", readErr)
		}
		if n == 0 {
			break
		}
		read += int64(n)
		n -= n % channels
		for i := 0; i < n; i++ {
			inF[i] = F(in64[i])
		}
		block := inF[:n]

		if pool != nil {
			var wg sync.WaitGroup
			for ch := 0; ch < channels; ch++ {
				wg.Add(1)
				pool.submit(func() {
					defer wg.Done()
					results[ch] = processChannelBlock(mode, f, block, outF, ch, channels, gain, cfg.Dither, states[ch])
				})
			}
			wg.Wait()
		} else {
			for ch := 0; ch < channels; ch++ {
				results[ch] = processChannelBlock(mode, f, block, outF, ch, channels, gain, cfg.Dither, states[ch])
			}
		}

		outLen := results[0].outLen
		for _, r := range results {
			if r.peak > peak {
				peak = r.peak
			}
		}

		start := min(skip, outLen)
		skip -= start
		if outLen > start {
			for i := start; i < outLen; i++ {
				out64[i] = float64(outF[i])
			}
			if werr := sink.WriteSamples(out64[start:outLen]); werr != nil {
				return peak, written, read, fmt.Errorf("writing output: %w", werr)
			}
			written += int64(outLen - start)
		}

		if cfg.Progress != nil && progressStep > 0 && read > nextProgress {
			cfg.Progress(min(99, int(100*read/inputSamples)))
			nextProgress += progressStep
		}

		if readErr == io.EOF {
			break
		}
	}

	if cfg.Progress != nil {
		cfg.Progress(100)
	}
	return peak, written, read, nil
}

// scanPeak reads the whole input and returns the largest absolute sample
// and the total interleaved sample count.
func scanPeak(src sndio.Source, blockSize int) (float64, int64, error) {
	buf := make([]float64, blockSize)
	var peak float64
	var samples int64
	for {
		n, err := src.Read(buf)
		for _, v := range buf[:n] {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		samples += int64(n)
		if err == io.EOF || n == 0 {
			return peak, samples, nil
		}
		if err != nil {
			return 0, 0, err
		}
	}
}

// outputSignalBits maps the output subformat to the word length the
// ditherer quantizes to. Float outputs keep the historical 16-bit default.
func outputSignalBits(subformat string) int {
	switch subformat {
	case sndio.Subformat8:
		return 8
	case sndio.Subformat24:
		return 24
	case sndio.Subformat32:
		return 32
	default:
		return 16
	}
}

func resolveDitherProfile(cfg *ConversionConfig) dither.Profile {
	id := dither.ProfileID(cfg.DitherProfile)
	if cfg.DitherProfile == AutoDitherProfile {
		id = dither.DefaultProfileID(cfg.OutputRate)
	}
	profile, ok := dither.ProfileByID(id)
	if !ok {
		profile, _ = dither.ProfileByID(dither.DefaultProfileID(cfg.OutputRate))
	}
	return profile
}

// dbfs formats a magnitude as decibels relative to full scale.
func dbfs(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// workerPool is a fixed-size pool with one goroutine per channel, reused
// across blocks within a pass and torn down at the end of the pass.
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	p := &workerPool{tasks: make(chan func())}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

func (p *workerPool) submit(task func()) {
	p.tasks <- task
}

func (p *workerPool) close() {
	close(p.tasks)
	p.wg.Wait()
}
