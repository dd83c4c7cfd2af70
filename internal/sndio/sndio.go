// Package sndio provides the audio container readers and writers behind the
// conversion pipeline, plus the output-format resolver.
//
// Readers normalize every input to interleaved float64 samples at ±1.0 full
// scale. DSD inputs (DSF, DFF) are delivered as PCM-equivalent floats at
// their native oversampled rate; the pipeline treats them like any other
// input except that it skips the peak scan.
package sndio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is the reader contract the pipeline drives. Implementations are
// used by the driver goroutine only.
type Source interface {
	// Channels returns the channel count.
	Channels() int

	// SampleRate returns the sample rate in Hz.
	SampleRate() int

	// Frames returns the total frame count, or 0 when unknown.
	Frames() int64

	// Format describes the container and subformat of the input.
	Format() FileFormat

	// Read fills buf with interleaved samples at ±1.0 full scale and
	// returns the number of samples delivered. io.EOF follows the last
	// sample, matching the usual io.Reader convention.
	Read(buf []float64) (int, error)

	// Rewind seeks back to the first sample. The clipping-recovery loop
	// rewinds once per retry pass.
	Rewind() error

	// Metadata returns the tags carried by the input, if any.
	Metadata() Metadata

	// Close releases the underlying file.
	Close() error
}

// Sink is the writer contract for output containers.
type Sink interface {
	// WriteSamples appends interleaved samples at ±1.0 full scale.
	WriteSamples(buf []float64) error

	// SetMetadata stores tags in the container where supported.
	SetMetadata(m Metadata) error

	// SetCompression sets the encoder effort/quality on a 0..1 scale for
	// containers that compress. No-op elsewhere.
	SetCompression(level float64) error

	// Close finalizes headers and closes the file.
	Close() error
}

// Metadata holds the tag set copied from input to output.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	Copyright   string
	Software    string
	Comment     string
	Date        string
	Genre       string
	TrackNumber string
}

// IsZero reports whether no tag is set.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// Ext returns the lower-case extension of path without the dot.
func Ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Open opens an input file, choosing the reader from the file extension.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}

	var src Source
	switch ext := Ext(path); ext {
	case "wav", "wave", "rf64", "bwf":
		src, err = newWAVSource(f)
	case "aiff", "aif", "aifc":
		src, err = newAIFFSource(f)
	case "mp3":
		src, err = newMP3Source(f)
	case "ogg", "oga":
		src, err = newVorbisSource(f)
	case "dsf":
		src, err = newDSFSource(f)
	case "dff":
		src, err = newDFFSource(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return src, nil
}

// Create opens an output file for the resolved format, truncating any
// existing file. The clipping-recovery loop calls this once per pass.
func Create(path string, format FileFormat, channels, rate int) (Sink, error) {
	switch format.Container {
	case ContainerWAV, ContainerRF64:
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("creating output: %w", err)
		}
		sink, err := newWAVSink(f, format, channels, rate)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return sink, nil
	case ContainerAIFF:
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("creating output: %w", err)
		}
		sink, err := newAIFFSink(f, format, channels, rate)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOutput, format.Container)
	}
}
