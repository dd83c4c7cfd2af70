package sndio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// WAV writer constants.
const (
	wavWriterBufferSize = 256 * 1024

	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3

	riffSizeOffset = 4

	// ds64 body field offsets within an RF64 file: the chunk starts right
	// after "RF64"+size+"WAVE" (12 bytes) plus its own 8-byte header.
	ds64RiffSizeOffset    = 20
	ds64DataSizeOffset    = 28
	ds64SampleCountOffset = 36

	sizeUnknown32 = 0xFFFFFFFF
)

// wavSink writes WAV and RF64 files directly, without per-sample
// allocations. Headers are written with placeholder sizes and patched on
// Close; RF64 keeps its 64-bit sizes in a ds64 chunk.
type wavSink struct {
	f   *os.File
	w   *bufio.Writer
	buf []byte

	format         FileFormat
	channels       int
	rate           int
	bitDepth       int
	audioFmt       int
	bytesPerSample int

	dataSize       uint64
	headerSize     int64
	dataSizeOffset int64
	factOffset     int64
	listSize       uint32

	meta    Metadata
	hasMeta bool
}

func newWAVSink(f *os.File, format FileFormat, channels, rate int) (*wavSink, error) {
	s := &wavSink{
		f:        f,
		w:        bufio.NewWriterSize(f, wavWriterBufferSize),
		format:   format,
		channels: channels,
		rate:     rate,
	}

	switch format.Subformat {
	case Subformat8:
		s.bitDepth, s.audioFmt = 8, wavFormatPCM
	case Subformat16:
		s.bitDepth, s.audioFmt = 16, wavFormatPCM
	case Subformat24:
		s.bitDepth, s.audioFmt = 24, wavFormatPCM
	case Subformat32:
		s.bitDepth, s.audioFmt = 32, wavFormatPCM
	case SubformatFloat:
		s.bitDepth, s.audioFmt = 32, wavFormatIEEEFloat
	case SubformatDouble:
		s.bitDepth, s.audioFmt = 64, wavFormatIEEEFloat
	default:
		return nil, fmt.Errorf("%w: subformat %q for %s", ErrUnsupportedOutput, format.Subformat, format.Container)
	}
	s.bytesPerSample = s.bitDepth / 8

	if err := s.writeHeader(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *wavSink) writeHeader() error {
	header := make([]byte, 0, 96)
	le := binary.LittleEndian

	appendU16 := func(v uint16) { header = le.AppendUint16(header, v) }
	appendU32 := func(v uint32) { header = le.AppendUint32(header, v) }
	appendU64 := func(v uint64) { header = le.AppendUint64(header, v) }

	rf64 := s.format.Container == ContainerRF64
	if rf64 {
		header = append(header, "RF64"...)
		appendU32(sizeUnknown32)
		header = append(header, "WAVE"...)

		// ds64: 64-bit sizes, patched on Close.
		header = append(header, "ds64"...)
		appendU32(28)
		appendU64(0) // riff size
		appendU64(0) // data size
		appendU64(0) // sample count
		appendU32(0) // size-table length
	} else {
		header = append(header, "RIFF"...)
		appendU32(0)
		header = append(header, "WAVE"...)
	}

	byteRate := s.rate * s.channels * s.bytesPerSample
	blockAlign := s.channels * s.bytesPerSample

	header = append(header, "fmt "...)
	appendU32(16)
	appendU16(uint16(s.audioFmt))
	appendU16(uint16(s.channels))
	appendU32(uint32(s.rate))
	appendU32(uint32(byteRate))
	appendU16(uint16(blockAlign))
	appendU16(uint16(s.bitDepth))

	if s.audioFmt == wavFormatIEEEFloat {
		// Non-PCM formats carry a fact chunk with the frame count.
		s.factOffset = int64(len(header) + 8)
		header = append(header, "fact"...)
		appendU32(4)
		appendU32(0)
	}

	header = append(header, "data"...)
	s.dataSizeOffset = int64(len(header))
	if rf64 {
		appendU32(sizeUnknown32)
	} else {
		appendU32(0)
	}

	s.headerSize = int64(len(header))
	_, err := s.w.Write(header)
	if err != nil {
		return fmt.Errorf("writing WAV header: %w", err)
	}
	return nil
}

// WriteSamples encodes interleaved ±1.0 floats into the output subformat.
// Values outside ±1.0 are clamped; the clipping-recovery loop normally
// prevents them from arriving here.
func (s *wavSink) WriteSamples(buf []float64) error {
	needed := len(buf) * s.bytesPerSample
	if cap(s.buf) < needed {
		s.buf = make([]byte, needed)
	}
	out := s.buf[:needed]
	le := binary.LittleEndian

	switch {
	case s.audioFmt == wavFormatIEEEFloat && s.bitDepth == 32:
		for i, v := range buf {
			le.PutUint32(out[i*4:], math.Float32bits(float32(v)))
		}
	case s.audioFmt == wavFormatIEEEFloat:
		for i, v := range buf {
			le.PutUint64(out[i*8:], math.Float64bits(v))
		}
	case s.bitDepth == 8:
		// 8-bit WAV-family PCM is unsigned.
		for i, v := range buf {
			out[i] = byte(clampScale(v, 1<<7) + 128)
		}
	case s.bitDepth == 16:
		for i, v := range buf {
			le.PutUint16(out[i*2:], uint16(int16(clampScale(v, 1<<15))))
		}
	case s.bitDepth == 24:
		for i, v := range buf {
			q := clampScale(v, 1<<23)
			out[i*3] = byte(q)
			out[i*3+1] = byte(q >> 8)
			out[i*3+2] = byte(q >> 16)
		}
	default: // 32-bit PCM
		for i, v := range buf {
			le.PutUint32(out[i*4:], uint32(int32(clampScale(v, 1<<31))))
		}
	}

	n, err := s.w.Write(out)
	s.dataSize += uint64(n)
	if err != nil {
		return fmt.Errorf("writing WAV data: %w", err)
	}
	return nil
}

// clampScale scales v by fullScale and clamps to the signed range
// [-fullScale, fullScale-1].
func clampScale(v float64, fullScale int64) int64 {
	q := int64(math.Round(v * float64(fullScale)))
	if q > fullScale-1 {
		return fullScale - 1
	}
	if q < -fullScale {
		return -fullScale
	}
	return q
}

func (s *wavSink) SetMetadata(m Metadata) error {
	s.meta = m
	s.hasMeta = !m.IsZero()
	return nil
}

// SetCompression is a no-op: the WAV family stores uncompressed PCM.
func (s *wavSink) SetCompression(float64) error { return nil }

// Close appends the INFO metadata chunk, flushes, and patches the sizes
// left open in the header.
func (s *wavSink) Close() error {
	if s.hasMeta {
		if err := s.writeInfoChunk(); err != nil {
			return err
		}
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flushing WAV output: %w", err)
	}

	if err := s.patchSizes(); err != nil {
		return err
	}
	return s.f.Close()
}

func (s *wavSink) patchSizes() error {
	le := binary.LittleEndian
	riffSize := uint64(s.headerSize) + s.dataSize + uint64(s.listSize) - 8
	frames := s.dataSize / uint64(s.bytesPerSample*s.channels)

	patch := func(offset int64, value []byte) error {
		if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("patching WAV header: %w", err)
		}
		if _, err := s.f.Write(value); err != nil {
			return fmt.Errorf("patching WAV header: %w", err)
		}
		return nil
	}

	var scratch [8]byte
	if s.format.Container == ContainerRF64 {
		le.PutUint64(scratch[:], riffSize)
		if err := patch(ds64RiffSizeOffset, scratch[:]); err != nil {
			return err
		}
		le.PutUint64(scratch[:], s.dataSize)
		if err := patch(ds64DataSizeOffset, scratch[:]); err != nil {
			return err
		}
		le.PutUint64(scratch[:], frames)
		if err := patch(ds64SampleCountOffset, scratch[:]); err != nil {
			return err
		}
	} else {
		le.PutUint32(scratch[:4], uint32(riffSize))
		if err := patch(riffSizeOffset, scratch[:4]); err != nil {
			return err
		}
		le.PutUint32(scratch[:4], uint32(s.dataSize))
		if err := patch(s.dataSizeOffset, scratch[:4]); err != nil {
			return err
		}
	}

	if s.factOffset != 0 {
		le.PutUint32(scratch[:4], uint32(frames))
		if err := patch(s.factOffset, scratch[:4]); err != nil {
			return err
		}
	}
	return nil
}

// writeInfoChunk appends a RIFF LIST/INFO chunk with the stored tags.
func (s *wavSink) writeInfoChunk() error {
	entries := []struct {
		id    string
		value string
	}{
		{"INAM", s.meta.Title},
		{"IART", s.meta.Artist},
		{"IPRD", s.meta.Album},
		{"ICOP", s.meta.Copyright},
		{"ISFT", s.meta.Software},
		{"ICMT", s.meta.Comment},
		{"ICRD", s.meta.Date},
		{"IGNR", s.meta.Genre},
		{"ITRK", s.meta.TrackNumber},
	}

	body := []byte("INFO")
	le := binary.LittleEndian
	for _, e := range entries {
		if e.value == "" {
			continue
		}
		// Null-terminated, padded to an even length.
		payload := append([]byte(e.value), 0)
		if len(payload)%2 == 1 {
			payload = append(payload, 0)
		}
		body = append(body, e.id...)
		body = le.AppendUint32(body, uint32(len(payload)))
		body = append(body, payload...)
	}
	if len(body) == 4 {
		return nil
	}

	chunk := append([]byte("LIST"), 0, 0, 0, 0)
	le.PutUint32(chunk[4:], uint32(len(body)))
	chunk = append(chunk, body...)

	if _, err := s.w.Write(chunk); err != nil {
		return fmt.Errorf("writing INFO chunk: %w", err)
	}
	s.listSize = uint32(len(chunk))
	return nil
}
