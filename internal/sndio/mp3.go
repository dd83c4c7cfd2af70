package sndio

import (
	"fmt"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3BytesPerSample is go-mp3's fixed output: 16-bit little-endian PCM.
const mp3BytesPerSample = 2

// mp3Source decodes MP3 input through hajimehoshi/go-mp3, which always
// delivers 16-bit stereo PCM.
type mp3Source struct {
	file *os.File
	dec  *gomp3.Decoder
	buf  []byte
}

func newMP3Source(f *os.File) (*mp3Source, error) {
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &mp3Source{file: f, dec: dec}, nil
}

func (s *mp3Source) Channels() int      { return 2 }
func (s *mp3Source) SampleRate() int    { return s.dec.SampleRate() }
func (s *mp3Source) Metadata() Metadata { return Metadata{} }
func (s *mp3Source) Close() error       { return s.file.Close() }

func (s *mp3Source) Frames() int64 {
	return s.dec.Length() / (mp3BytesPerSample * 2)
}

func (s *mp3Source) Format() FileFormat {
	return FileFormat{Container: ContainerMP3, Subformat: Subformat16}
}

func (s *mp3Source) Read(buf []float64) (int, error) {
	bytesNeeded := len(buf) * mp3BytesPerSample
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	raw := s.buf[:bytesNeeded]

	n, err := s.dec.Read(raw)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("reading MP3 data: %w", err)
		}
		return 0, io.EOF
	}

	samples := n / mp3BytesPerSample
	for i := 0; i < samples; i++ {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		buf[i] = float64(v) / 32768.0
	}
	return samples, nil
}

func (s *mp3Source) Rewind() error {
	if _, err := s.dec.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding input: %w", err)
	}
	return nil
}
