package sndio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavSource reads WAV and RF64 files through go-audio/wav, normalizing
// integer PCM to ±1.0 floats.
type wavSource struct {
	file     *os.File
	dec      *wav.Decoder
	channels int
	rate     int
	bitDepth int
	frames   int64
	meta     Metadata

	intBuf *audio.IntBuffer
	scale  float64
}

func newWAVSource(f *os.File) (*wavSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrInvalidFile)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV audio format %d (only integer PCM)", ErrUnsupportedLayout, dec.WavAudioFormat)
	}

	format := dec.Format()
	bitDepth := int(dec.BitDepth)
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedLayout, bitDepth)
	}

	var frames int64
	if duration, err := dec.Duration(); err == nil {
		frames = int64(duration.Seconds()*float64(format.SampleRate) + 0.5)
	}

	dec.ReadMetadata()
	var meta Metadata
	if dec.Metadata != nil {
		meta = Metadata{
			Title:       dec.Metadata.Title,
			Artist:      dec.Metadata.Artist,
			Album:       dec.Metadata.Product,
			Copyright:   dec.Metadata.Copyright,
			Software:    dec.Metadata.Software,
			Comment:     dec.Metadata.Comments,
			Date:        dec.Metadata.CreationDate,
			Genre:       dec.Metadata.Genre,
			TrackNumber: dec.Metadata.TrackNbr,
		}
	}

	// Metadata parsing may have walked past the data chunk; start clean.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding input: %w", err)
	}
	dec = wav.NewDecoder(f)

	return &wavSource{
		file:     f,
		dec:      dec,
		channels: format.NumChannels,
		rate:     format.SampleRate,
		bitDepth: bitDepth,
		frames:   frames,
		meta:     meta,
		scale:    1.0 / float64(int64(1)<<(bitDepth-1)),
	}, nil
}

func (s *wavSource) Channels() int      { return s.channels }
func (s *wavSource) SampleRate() int    { return s.rate }
func (s *wavSource) Frames() int64      { return s.frames }
func (s *wavSource) Metadata() Metadata { return s.meta }
func (s *wavSource) Close() error       { return s.file.Close() }

func (s *wavSource) Format() FileFormat {
	return FileFormat{Container: ContainerWAV, Subformat: fmt.Sprintf("%d", s.bitDepth)}
}

func (s *wavSource) Read(buf []float64) (int, error) {
	if s.intBuf == nil || cap(s.intBuf.Data) < len(buf) {
		s.intBuf = &audio.IntBuffer{
			Data:   make([]int, len(buf)),
			Format: s.dec.Format(),
		}
	}
	s.intBuf.Data = s.intBuf.Data[:len(buf)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil {
		return 0, fmt.Errorf("reading WAV data: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	if s.bitDepth == 8 {
		// 8-bit WAV is unsigned; recenter before scaling.
		for i := 0; i < n; i++ {
			buf[i] = float64(s.intBuf.Data[i]-128) * s.scale
		}
	} else {
		for i := 0; i < n; i++ {
			buf[i] = float64(s.intBuf.Data[i]) * s.scale
		}
	}
	return n, nil
}

func (s *wavSource) Rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding input: %w", err)
	}
	s.dec = wav.NewDecoder(s.file)
	return nil
}
