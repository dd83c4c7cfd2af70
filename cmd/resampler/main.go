// Command resampler converts audio files between sample rates.
//
// Usage:
//
//	resampler -i input.wav -o output.wav -r 96000
//	resampler -i music.aiff -o music.wav -r 44100 -b 24 --dither 1 --autoblank
//	resampler -i master.dsf -o master.wav -r 176400 -n 1.0 --mt
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	resampler "github.com/xieping/ReSampler"
	"github.com/xieping/ReSampler/internal/dither"
	"github.com/xieping/ReSampler/internal/sndio"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "resampler",
		Usage:   "High-quality audio sample rate converter",
		Version: resampler.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "i", Usage: "input file path"},
			&cli.StringFlag{Name: "o", Usage: "output file path"},
			&cli.IntFlag{Name: "r", Usage: "output sample rate in Hz", Value: 44100},
			&cli.StringFlag{Name: "b", Usage: "output bit format (8, 16, 24, 32, float, double)"},
			&cli.FloatFlag{Name: "n", Usage: "normalize output to `LEVEL` in (0, 1]", Value: 1.0},
			&cli.FloatFlag{Name: "gain", Usage: "linear gain to apply", Value: 1.0},
			&cli.FloatFlag{Name: "dither", Usage: "add `BITS` bits of noise-shaped TPDF dither", Value: 1.0},
			&cli.BoolFlag{Name: "autoblank", Usage: "mute dither during sustained silence"},
			&cli.IntFlag{Name: "ns", Usage: "noise-shaping profile `ID` (see --showDitherProfiles)", Value: resampler.AutoDitherProfile},
			&cli.BoolFlag{Name: "flat-tpdf", Usage: "force flat TPDF dither (overrides --ns)"},
			&cli.UintFlag{Name: "seed", Usage: "fixed dither PRNG seed for reproducible output"},
			&cli.BoolFlag{Name: "noDelayTrim", Usage: "keep the filter group delay in the output"},
			&cli.BoolFlag{Name: "minphase", Usage: "use a minimum-phase LPF"},
			&cli.IntFlag{Name: "flacCompression", Usage: "FLAC compression level 0..8", Value: 5},
			&cli.FloatFlag{Name: "vorbisQuality", Usage: "Vorbis quality -1..10", Value: 3},
			&cli.BoolFlag{Name: "noClippingProtection", Usage: "keep the first pass even if it clips"},
			&cli.BoolFlag{Name: "relaxedLPF", Usage: "late LPF cutoff (21/22 of Nyquist)"},
			&cli.BoolFlag{Name: "steepLPF", Usage: "late cutoff with doubled filter length"},
			&cli.FloatFlag{Name: "lpf-cutoff", Usage: "custom LPF cutoff as `PERCENT` of Nyquist (1..99.9)"},
			&cli.FloatFlag{Name: "lpf-transition", Usage: "custom LPF transition width as `PERCENT` (0 = auto)"},
			&cli.BoolFlag{Name: "mt", Usage: "process channels in parallel"},
			&cli.BoolFlag{Name: "rf64", Usage: "force RF64 container for WAV output"},
			&cli.BoolFlag{Name: "noMetadata", Usage: "do not copy metadata to the output"},
			&cli.BoolFlag{Name: "doubleprecision", Usage: "use double precision for calculations"},

			// Terminating queries.
			&cli.StringFlag{Name: "listsubformats", Usage: "list valid subformats for `EXT` and exit"},
			&cli.BoolFlag{Name: "showDitherProfiles", Usage: "list dither profiles and exit"},
			&cli.BoolFlag{Name: "sndfile-version", Usage: "show the audio I/O backend and exit"},
		},
		Action: run,
	}
}

func run(_ context.Context, cmd *cli.Command) error {
	// Terminating queries exit before any conversion setup.
	if cmd.Bool("sndfile-version") {
		fmt.Printf("sndio (go-audio/wav, go-audio/aiff, go-mp3, oggvorbis)\n")
		return nil
	}
	if cmd.Bool("showDitherProfiles") {
		for _, p := range dither.Profiles() {
			fmt.Printf("%d : %s\n", p.ID, p.Name)
		}
		return nil
	}
	if ext := cmd.String("listsubformats"); ext != "" {
		subformats, err := sndio.ListSubformats(strings.TrimPrefix(ext, "."))
		if err != nil {
			return err
		}
		for _, s := range subformats {
			fmt.Println(s)
		}
		return nil
	}

	cfg := resampler.DefaultConfig()
	cfg.InputPath = cmd.String("i")
	cfg.OutputPath = cmd.String("o")
	cfg.OutputRate = cmd.Int("r")
	cfg.OutBitFormat = cmd.String("b")
	cfg.Gain = cmd.Float("gain")
	cfg.UseDouble = cmd.Bool("doubleprecision")
	cfg.MinPhase = cmd.Bool("minphase")
	cfg.TrimGroupDelay = !cmd.Bool("noDelayTrim")
	cfg.MultiThreaded = cmd.Bool("mt")
	cfg.ForceRF64 = cmd.Bool("rf64")
	cfg.WriteMetadata = !cmd.Bool("noMetadata")
	cfg.DisableClippingProtection = cmd.Bool("noClippingProtection")
	cfg.FlacCompression = cmd.Int("flacCompression")
	cfg.VorbisQuality = cmd.Float("vorbisQuality")

	if cmd.IsSet("n") {
		cfg.Normalize = true
		cfg.Limit = cmd.Float("n")
		if cfg.Limit <= 0 {
			cfg.Limit = 1.0
		}
		if cfg.Limit > 1.0 {
			slog.Warn("normalization level above 1.0 is outside (0, 1] and will be rejected", "level", cfg.Limit)
		}
	}

	if cmd.IsSet("dither") || cmd.IsSet("ns") || cmd.Bool("flat-tpdf") || cmd.Bool("autoblank") {
		cfg.Dither = true
		cfg.DitherBits = cmd.Float("dither")
		cfg.AutoBlank = cmd.Bool("autoblank")
		cfg.DitherProfile = cmd.Int("ns")
		if cmd.Bool("flat-tpdf") {
			cfg.DitherProfile = int(dither.ProfileFlat)
		}
	}

	if cmd.IsSet("seed") {
		cfg.UseSeed = true
		cfg.Seed = uint32(cmd.Uint("seed"))
	}

	switch {
	case cmd.IsSet("lpf-cutoff"):
		cfg.LPFMode = resampler.LPFCustom
		cfg.CustomLPFCutoff = clamp(cmd.Float("lpf-cutoff"), 1, 99.9)
		if cmd.IsSet("lpf-transition") {
			cfg.CustomLPFTransition = clamp(cmd.Float("lpf-transition"), 0, 99.9)
		}
	case cmd.Bool("steepLPF"):
		cfg.LPFMode = resampler.LPFSteep
	case cmd.Bool("relaxedLPF"):
		cfg.LPFMode = resampler.LPFRelaxed
	}

	// An unnamed output lands next to the input as "name(converted).ext".
	if cfg.OutputPath == "" && cfg.InputPath != "" {
		cfg.OutputPath = derivedOutputPath(cfg.InputPath)
		slog.Info("output filename not specified", "default", cfg.OutputPath)
	}

	cfg.Progress = func(percent int) {
		fmt.Printf("\rConverting ... %d%%", percent)
		if percent >= 100 {
			fmt.Println(" Done")
		}
	}

	result, err := resampler.Convert(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d frames (%s, %d:%d, %d pass(es))\n",
		result.OutputFrames, result.Format, result.Ratio.L, result.Ratio.M, result.Passes)
	return nil
}

// derivedOutputPath inserts "(converted)" before the extension.
func derivedOutputPath(input string) string {
	if dot := strings.LastIndex(input, "."); dot >= 0 {
		return input[:dot] + "(converted)" + input[dot:]
	}
	return input + "(converted)"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
