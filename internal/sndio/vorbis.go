package sndio

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// vorbisSource decodes Ogg Vorbis input through jfreymuth/oggvorbis.
type vorbisSource struct {
	file *os.File
	dec  *oggvorbis.Reader
	buf  []float32
}

func newVorbisSource(f *os.File) (*vorbisSource, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &vorbisSource{file: f, dec: dec}, nil
}

func (s *vorbisSource) Channels() int      { return s.dec.Channels() }
func (s *vorbisSource) SampleRate() int    { return s.dec.SampleRate() }
func (s *vorbisSource) Frames() int64      { return s.dec.Length() }
func (s *vorbisSource) Metadata() Metadata { return Metadata{} }
func (s *vorbisSource) Close() error       { return s.file.Close() }

func (s *vorbisSource) Format() FileFormat {
	return FileFormat{Container: ContainerOgg, Subformat: SubformatVorbis}
}

func (s *vorbisSource) Read(buf []float64) (int, error) {
	if cap(s.buf) < len(buf) {
		s.buf = make([]float32, len(buf))
	}
	raw := s.buf[:len(buf)]

	n, err := s.dec.Read(raw)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("reading Vorbis data: %w", err)
		}
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		buf[i] = float64(raw[i])
	}
	return n, nil
}

func (s *vorbisSource) Rewind() error {
	if err := s.dec.SetPosition(0); err != nil {
		return fmt.Errorf("rewinding input: %w", err)
	}
	return nil
}
