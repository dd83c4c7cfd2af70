package resampler

import (
	"github.com/xieping/ReSampler/internal/dither"
	"github.com/xieping/ReSampler/internal/filter"
	"github.com/xieping/ReSampler/internal/simdops"
)

// convertMode classifies the conversion path from the working ratio.
type convertMode int

const (
	// modeCopy passes samples through (L = M = 1); gain and dither only.
	modeCopy convertMode = iota

	// modeInterpolate runs interpolate-by-L (M = 1).
	modeInterpolate

	// modeDecimate runs filter-and-decimate-by-M (L = 1).
	modeDecimate

	// modeInterpolateDecimate runs the full L/M path.
	modeInterpolateDecimate
)

func classifyMode(f Fraction) convertMode {
	switch {
	case f.L == 1 && f.M == 1:
		return modeCopy
	case f.M == 1:
		return modeInterpolate
	case f.L == 1:
		return modeDecimate
	default:
		return modeInterpolateDecimate
	}
}

// channelState is the per-channel pipeline state, exclusively owned by one
// worker at a time. The driver re-hands ownership across block joins, so no
// locking is needed.
type channelState[F simdops.Float] struct {
	fir        *filter.FIRFilter[F]
	dith       *dither.Ditherer[F]
	decimPhase int
}

// blockResult is one channel's outcome for one block.
type blockResult[F simdops.Float] struct {
	// outLen is the interleaved length produced (samples · channels);
	// identical across channels of the same block.
	outLen int

	// peak is max(|emitted|) over the block.
	peak F
}

// processChannelBlock runs one channel of an input block through the
// filter/dither path, writing produced samples into strided slots of out
// (offset channel, stride channels).
func processChannelBlock[F simdops.Float](
	mode convertMode,
	f Fraction,
	in []F,
	out []F,
	channel, channels int,
	gain F,
	useDither bool,
	st *channelState[F],
) blockResult[F] {
	var peak F
	outIdx := 0

	emit := func(v F) {
		if useDither {
			v = st.dith.Dither(v)
		}
		out[outIdx+channel] = v
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
		outIdx += channels
	}

	switch mode {
	case modeCopy:
		for s := 0; s < len(in); s += channels {
			emit(gain * in[s+channel])
		}

	case modeInterpolate:
		for s := 0; s < len(in); s += channels {
			for ii := 0; ii < f.L; ii++ {
				if ii == 0 {
					st.fir.Push(in[s+channel])
				} else {
					st.fir.PushZero()
				}
				emit(gain * st.fir.LazyGet(f.L))
			}
		}

	case modeDecimate:
		for s := 0; s < len(in); s += channels {
			st.fir.Push(in[s+channel])
			if st.decimPhase == 0 {
				emit(gain * st.fir.Get())
			}
			st.decimPhase++
			if st.decimPhase == f.M {
				st.decimPhase = 0
			}
		}

	case modeInterpolateDecimate:
		for s := 0; s < len(in); s += channels {
			for ii := 0; ii < f.L; ii++ {
				if ii == 0 {
					st.fir.Push(in[s+channel])
				} else {
					st.fir.PushZero()
				}
				if st.decimPhase == 0 {
					emit(gain * st.fir.LazyGet(f.L))
				}
				st.decimPhase++
				if st.decimPhase == f.M {
					st.decimPhase = 0
				}
			}
		}
	}

	return blockResult[F]{outLen: outIdx, peak: peak}
}
