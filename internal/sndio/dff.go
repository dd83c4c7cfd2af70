package sndio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// dffGroupBytes is how many bytes per channel a dffSource decodes at once.
const dffGroupBytes = 4096

// dffSource reads Philips DSDIFF (.dff) files. All fields are big-endian;
// the sound data interleaves one byte per channel, bits MSB first.
type dffSource struct {
	file *os.File

	channels int
	rate     int

	dataStart int64
	dataBytes int64

	raw       []byte
	decoded   []float64
	decodePos int
	bytesRead int64
}

func newDFFSource(f *os.File) (*dffSource, error) {
	be := binary.BigEndian

	// "FRM8", 8-byte form size, then the "DSD " form type.
	var frm [16]byte
	if _, err := io.ReadFull(f, frm[:]); err != nil {
		return nil, fmt.Errorf("%w: short DSDIFF header", ErrInvalidFile)
	}
	if string(frm[0:4]) != "FRM8" || string(frm[12:16]) != "DSD " {
		return nil, fmt.Errorf("%w: not a DSDIFF file", ErrInvalidFile)
	}

	s := &dffSource{file: f}

	// Walk top-level chunks until the sound data chunk.
	var header [12]byte
	for {
		if _, err := io.ReadFull(f, header[:12]); err != nil {
			return nil, fmt.Errorf("%w: truncated DSDIFF chunks", ErrInvalidFile)
		}
		id := string(header[0:4])
		size := int64(be.Uint64(header[4:12]))

		switch id {
		case "PROP":
			if err := s.parseProp(size); err != nil {
				return nil, err
			}
			if size%2 == 1 {
				if _, err := f.Seek(1, io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("skipping PROP pad byte: %w", err)
				}
			}
		case "DSD ":
			s.dataBytes = size
			start, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, fmt.Errorf("locating DSDIFF data: %w", err)
			}
			s.dataStart = start
			if s.channels < 1 || s.rate <= 0 {
				return nil, fmt.Errorf("%w: DSDIFF data before properties", ErrInvalidFile)
			}
			s.raw = make([]byte, dffGroupBytes*s.channels)
			return s, nil
		default:
			// Chunks are padded to even sizes.
			if size%2 == 1 {
				size++
			}
			if _, err := f.Seek(size, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skipping DSDIFF chunk %q: %w", id, err)
			}
		}
	}
}

// parseProp extracts the sample rate and channel count from the PROP chunk.
func (s *dffSource) parseProp(size int64) error {
	be := binary.BigEndian

	body := make([]byte, size)
	if _, err := io.ReadFull(s.file, body); err != nil {
		return fmt.Errorf("%w: truncated PROP chunk", ErrInvalidFile)
	}
	if size < 4 || string(body[0:4]) != "SND " {
		return fmt.Errorf("%w: PROP chunk is not a sound property list", ErrInvalidFile)
	}

	pos := int64(4)
	for pos+12 <= size {
		id := string(body[pos : pos+4])
		subSize := int64(be.Uint64(body[pos+4 : pos+12]))
		pos += 12
		if pos+subSize > size {
			break
		}
		switch id {
		case "FS  ":
			if subSize >= 4 {
				s.rate = int(be.Uint32(body[pos:]))
			}
		case "CHNL":
			if subSize >= 2 {
				s.channels = int(be.Uint16(body[pos:]))
			}
		}
		if subSize%2 == 1 {
			subSize++
		}
		pos += subSize
	}
	return nil
}

func (s *dffSource) Channels() int      { return s.channels }
func (s *dffSource) SampleRate() int    { return s.rate }
func (s *dffSource) Metadata() Metadata { return Metadata{} }
func (s *dffSource) Close() error       { return s.file.Close() }

func (s *dffSource) Frames() int64 {
	return s.dataBytes / int64(s.channels) * 8
}

func (s *dffSource) Format() FileFormat {
	return FileFormat{Container: ContainerDFF, Subformat: SubformatDSD}
}

func (s *dffSource) Read(buf []float64) (int, error) {
	filled := 0
	for filled < len(buf) {
		if s.decodePos >= len(s.decoded) {
			if err := s.decodeNextGroup(); err != nil {
				if filled > 0 {
					return filled, nil
				}
				return 0, err
			}
		}
		n := copy(buf[filled:], s.decoded[s.decodePos:])
		s.decodePos += n
		filled += n
	}
	return filled, nil
}

func (s *dffSource) decodeNextGroup() error {
	remaining := s.dataBytes - s.bytesRead
	if remaining <= 0 {
		return io.EOF
	}
	group := int64(len(s.raw))
	if group > remaining {
		// Truncate to whole byte-frames.
		group = remaining - remaining%int64(s.channels)
		if group == 0 {
			return io.EOF
		}
	}
	if _, err := io.ReadFull(s.file, s.raw[:group]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return fmt.Errorf("reading DSDIFF data: %w", err)
	}
	s.bytesRead += group

	byteFrames := int(group) / s.channels
	need := byteFrames * 8 * s.channels
	if cap(s.decoded) < need {
		s.decoded = make([]float64, need)
	}
	s.decoded = s.decoded[:need]

	out := 0
	for bf := 0; bf < byteFrames; bf++ {
		base := bf * s.channels
		for bit := 7; bit >= 0; bit-- {
			for ch := 0; ch < s.channels; ch++ {
				if (s.raw[base+ch]>>uint(bit))&1 == 1 {
					s.decoded[out] = 1.0
				} else {
					s.decoded[out] = -1.0
				}
				out++
			}
		}
	}

	s.decodePos = 0
	return nil
}

func (s *dffSource) Rewind() error {
	if _, err := s.file.Seek(s.dataStart, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding input: %w", err)
	}
	s.bytesRead = 0
	s.decoded = s.decoded[:0]
	s.decodePos = 0
	return nil
}
