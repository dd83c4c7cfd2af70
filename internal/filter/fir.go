package filter

import (
	"github.com/xieping/ReSampler/internal/simdops"
)

// FIRFilter is a streaming tap-delay convolution engine for one channel.
//
// The sample history is stored twice, back to back, so the most recent
// NumTaps samples are always available as one contiguous window. That keeps
// Get a single straight dot product, which the SIMD backend handles well.
// The write index walks downward through the first copy; each sample is
// mirrored into the second copy at +size.
//
// A FIRFilter is exclusively owned by its channel worker and is not safe for
// concurrent use.
type FIRFilter[F simdops.Float] struct {
	taps   []F
	signal []F // 2·size, dual-written history
	size   int
	index  int // next write position in [0, size)

	// zeroCount is the number of PushZero calls since the last Push.
	// LazyGet uses it to select the polyphase subfilter.
	zeroCount int

	ops *simdops.Ops[F]
}

// NewFIRFilter creates a channel filter over a shared tap set.
// The taps are copied; the caller may reuse the slice.
func NewFIRFilter[F simdops.Float](taps []F) *FIRFilter[F] {
	size := len(taps)
	f := &FIRFilter[F]{
		taps:   make([]F, size),
		signal: make([]F, 2*size),
		size:   size,
		index:  size - 1,
		ops:    simdops.For[F](),
	}
	copy(f.taps, taps)
	return f
}

// Push writes a source sample into the delay line.
func (f *FIRFilter[F]) Push(x F) {
	f.signal[f.index] = x
	f.signal[f.index+f.size] = x
	f.index--
	if f.index < 0 {
		f.index = f.size - 1
	}
	f.zeroCount = 0
}

// PushZero writes an interpolation zero into the delay line.
func (f *FIRFilter[F]) PushZero() {
	f.signal[f.index] = 0
	f.signal[f.index+f.size] = 0
	f.index--
	if f.index < 0 {
		f.index = f.size - 1
	}
	f.zeroCount++
}

// Get evaluates the full convolution over the delay line:
//
//	y = Σ taps[i] · x[n−i]
//
// The newest sample sits at the head of the window, so the dot product
// lines up taps[0] with x[n].
func (f *FIRFilter[F]) Get() F {
	window := f.signal[f.index+1 : f.index+1+f.size]
	return f.ops.DotProductUnsafe(f.taps, window)
}

// LazyGet evaluates the polyphase subfilter for interpolation factor l.
// When l−1 of every l pushed samples are zeros, only every l-th tap can
// contribute; LazyGet visits exactly those taps. Called immediately after
// any push in a Push/PushZero×(l−1) cycle it returns the same value Get
// would.
func (f *FIRFilter[F]) LazyGet(l int) F {
	var accumulator F
	start := f.index + 1
	for i := f.zeroCount % l; i < f.size; i += l {
		accumulator += f.taps[i] * f.signal[start+i]
	}
	return accumulator
}

// Reset zeroes the delay line, used when a clipping-recovery pass restarts
// the conversion from the top of the input.
func (f *FIRFilter[F]) Reset() {
	clear(f.signal)
	f.index = f.size - 1
	f.zeroCount = 0
}

// NumTaps returns the filter length.
func (f *FIRFilter[F]) NumTaps() int {
	return f.size
}
