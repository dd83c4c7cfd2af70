package sndio

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// aiffSource reads AIFF files through go-audio/aiff.
type aiffSource struct {
	file     *os.File
	dec      *aiff.Decoder
	channels int
	rate     int
	bitDepth int
	frames   int64

	intBuf *audio.IntBuffer
	scale  float64
}

func newAIFFSource(f *os.File) (*aiffSource, error) {
	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrInvalidFile)
	}
	dec.ReadInfo()

	bitDepth := int(dec.BitDepth)
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit AIFF", ErrUnsupportedLayout, bitDepth)
	}
	format := dec.Format()
	if format == nil {
		return nil, fmt.Errorf("%w: missing AIFF format info", ErrInvalidFile)
	}

	return &aiffSource{
		file:     f,
		dec:      dec,
		channels: format.NumChannels,
		rate:     format.SampleRate,
		bitDepth: bitDepth,
		frames:   int64(dec.NumSampleFrames),
		scale:    1.0 / float64(int64(1)<<(bitDepth-1)),
	}, nil
}

func (s *aiffSource) Channels() int      { return s.channels }
func (s *aiffSource) SampleRate() int    { return s.rate }
func (s *aiffSource) Frames() int64      { return s.frames }
func (s *aiffSource) Metadata() Metadata { return Metadata{} }
func (s *aiffSource) Close() error       { return s.file.Close() }

func (s *aiffSource) Format() FileFormat {
	return FileFormat{Container: ContainerAIFF, Subformat: strconv.Itoa(s.bitDepth)}
}

func (s *aiffSource) Read(buf []float64) (int, error) {
	if s.intBuf == nil || cap(s.intBuf.Data) < len(buf) {
		s.intBuf = &audio.IntBuffer{
			Data:   make([]int, len(buf)),
			Format: s.dec.Format(),
		}
	}
	s.intBuf.Data = s.intBuf.Data[:len(buf)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil {
		return 0, fmt.Errorf("reading AIFF data: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		buf[i] = float64(s.intBuf.Data[i]) * s.scale
	}
	return n, nil
}

func (s *aiffSource) Rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding input: %w", err)
	}
	s.dec = aiff.NewDecoder(s.file)
	return nil
}

// aiffSink writes AIFF output through go-audio/aiff's encoder.
type aiffSink struct {
	f        *os.File
	enc      *aiff.Encoder
	channels int
	rate     int
	bitDepth int
	scale    float64
	intBuf   *audio.IntBuffer
}

func newAIFFSink(f *os.File, format FileFormat, channels, rate int) (*aiffSink, error) {
	var bitDepth int
	switch format.Subformat {
	case Subformat8:
		bitDepth = 8
	case Subformat16:
		bitDepth = 16
	case Subformat24:
		bitDepth = 24
	case Subformat32:
		bitDepth = 32
	default:
		return nil, fmt.Errorf("%w: subformat %q for %s", ErrUnsupportedOutput, format.Subformat, format.Container)
	}

	return &aiffSink{
		f:        f,
		enc:      aiff.NewEncoder(f, rate, bitDepth, channels),
		channels: channels,
		rate:     rate,
		bitDepth: bitDepth,
		scale:    float64(int64(1) << (bitDepth - 1)),
	}, nil
}

func (s *aiffSink) WriteSamples(buf []float64) error {
	if s.intBuf == nil || cap(s.intBuf.Data) < len(buf) {
		s.intBuf = &audio.IntBuffer{
			Data: make([]int, len(buf)),
			Format: &audio.Format{
				NumChannels: s.channels,
				SampleRate:  s.rate,
			},
			SourceBitDepth: s.bitDepth,
		}
	}
	s.intBuf.Data = s.intBuf.Data[:len(buf)]

	limit := int64(1)<<(s.bitDepth-1) - 1
	for i, v := range buf {
		q := int64(math.Round(v * s.scale))
		if q > limit {
			q = limit
		}
		if q < -limit-1 {
			q = -limit - 1
		}
		s.intBuf.Data[i] = int(q)
	}

	if err := s.enc.Write(s.intBuf); err != nil {
		return fmt.Errorf("writing AIFF data: %w", err)
	}
	return nil
}

// SetMetadata is a no-op: go-audio's AIFF encoder has no tag support.
func (s *aiffSink) SetMetadata(Metadata) error { return nil }

// SetCompression is a no-op: AIFF stores uncompressed PCM.
func (s *aiffSink) SetCompression(float64) error { return nil }

func (s *aiffSink) Close() error {
	if err := s.enc.Close(); err != nil {
		return fmt.Errorf("finalizing AIFF output: %w", err)
	}
	return s.f.Close()
}
