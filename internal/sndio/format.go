package sndio

import (
	"fmt"
	"slices"
	"sort"
)

// Container identifies an audio container family.
type Container string

// Known containers. Writers exist for the WAV family and AIFF; the rest are
// recognized so the resolver can validate and report, and so DSD inputs are
// classified.
const (
	ContainerWAV  Container = "wav"
	ContainerRF64 Container = "rf64"
	ContainerW64  Container = "w64"
	ContainerAIFF Container = "aiff"
	ContainerFLAC Container = "flac"
	ContainerOgg  Container = "ogg"
	ContainerVOC  Container = "voc"
	ContainerMAT  Container = "mat"
	ContainerMP3  Container = "mp3"
	ContainerDSF  Container = "dsf"
	ContainerDFF  Container = "dff"
)

// Subformat tags, matching the CLI's -b argument values.
const (
	Subformat8      = "8"
	Subformat16     = "16"
	Subformat24     = "24"
	Subformat32     = "32"
	SubformatFloat  = "float"
	SubformatDouble = "double"
	SubformatVorbis = "vorbis"
	SubformatDSD    = "dsd"
)

// FileFormat pairs a container with a subformat.
type FileFormat struct {
	Container Container
	Subformat string
}

// IsDSD reports whether the format is a 1-bit oversampled input.
func (f FileFormat) IsDSD() bool {
	return f.Container == ContainerDSF || f.Container == ContainerDFF
}

// IsWAVFamily reports whether the container uses RIFF/WAV framing, the
// family eligible for the RF64 auto-upgrade.
func (f FileFormat) IsWAVFamily() bool {
	return f.Container == ContainerWAV || f.Container == ContainerRF64
}

func (f FileFormat) String() string {
	return fmt.Sprintf("%s/%s", f.Container, f.Subformat)
}

var containerByExt = map[string]Container{
	"wav":  ContainerWAV,
	"wave": ContainerWAV,
	"rf64": ContainerRF64,
	"w64":  ContainerW64,
	"aiff": ContainerAIFF,
	"aif":  ContainerAIFF,
	"aifc": ContainerAIFF,
	"flac": ContainerFLAC,
	"ogg":  ContainerOgg,
	"oga":  ContainerOgg,
	"voc":  ContainerVOC,
	"mat":  ContainerMAT,
}

var validSubformats = map[Container][]string{
	ContainerWAV:  {Subformat8, Subformat16, Subformat24, Subformat32, SubformatFloat, SubformatDouble},
	ContainerRF64: {Subformat8, Subformat16, Subformat24, Subformat32, SubformatFloat, SubformatDouble},
	ContainerW64:  {Subformat8, Subformat16, Subformat24, Subformat32, SubformatFloat, SubformatDouble},
	ContainerAIFF: {Subformat8, Subformat16, Subformat24, Subformat32},
	ContainerFLAC: {Subformat8, Subformat16, Subformat24},
	ContainerOgg:  {SubformatVorbis},
	ContainerVOC:  {Subformat8, Subformat16},
	ContainerMAT:  {Subformat16, Subformat32, SubformatFloat, SubformatDouble},
}

var defaultSubformat = map[Container]string{
	ContainerWAV:  Subformat16,
	ContainerRF64: Subformat16,
	ContainerW64:  Subformat16,
	ContainerAIFF: Subformat16,
	ContainerFLAC: Subformat16,
	ContainerOgg:  SubformatVorbis,
	ContainerVOC:  Subformat16,
	ContainerMAT:  Subformat16,
}

// unsigned8Containers lists the containers whose 8-bit PCM is unsigned.
var unsigned8Containers = []Container{ContainerMAT, ContainerRF64, ContainerVOC, ContainerW64, ContainerWAV}

// Unsigned8 reports whether 8-bit samples are stored unsigned in the
// given container.
func Unsigned8(c Container) bool {
	return slices.Contains(unsigned8Containers, c)
}

// ContainerForExt maps an output extension to its container.
func ContainerForExt(ext string) (Container, error) {
	c, ok := containerByExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
	return c, nil
}

// SubformatValid reports whether the subformat is valid for the container.
func SubformatValid(c Container, subformat string) bool {
	return slices.Contains(validSubformats[c], subformat)
}

// ListSubformats returns the valid subformats for an output extension,
// sorted, for the --listsubformats query.
func ListSubformats(ext string) ([]string, error) {
	c, err := ContainerForExt(ext)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(validSubformats[c])
	sort.Strings(out)
	return out, nil
}

// Resolution is the outcome of output-format resolution.
type Resolution struct {
	Format FileFormat

	// Fallback is set when the requested or inherited subformat was not
	// valid for the container and the per-container default was used.
	Fallback bool
}

// ResolveOutput decides the output container and subformat:
//
//  1. The container comes from the output extension.
//  2. With no override, the input subformat is kept when valid for the
//     container; DSD inputs have no PCM subformat and take the default.
//  3. An invalid requested pair is recoverable: fall back to the
//     per-container default (Fallback is set so the caller can warn).
func ResolveOutput(input FileFormat, outExt, requested string) (Resolution, error) {
	container, err := ContainerForExt(outExt)
	if err != nil {
		return Resolution{}, err
	}

	want := requested
	if want == "" {
		want = input.Subformat
	}

	if want != "" && want != SubformatDSD && SubformatValid(container, want) {
		return Resolution{Format: FileFormat{Container: container, Subformat: want}}, nil
	}

	fallback := want != "" && want != SubformatDSD
	return Resolution{
		Format:   FileFormat{Container: container, Subformat: defaultSubformat[container]},
		Fallback: fallback,
	}, nil
}

// BytesPerSample returns the storage size of one sample for size
// prediction. Unknown subformats assume 2 bytes, the safe middle ground.
func BytesPerSample(subformat string) int {
	switch subformat {
	case Subformat8:
		return 1
	case Subformat16:
		return 2
	case Subformat24:
		return 3
	case Subformat32, SubformatFloat:
		return 4
	case SubformatDouble:
		return 8
	default:
		return 2
	}
}

// rf64Threshold is the 4 GiB RIFF size limit.
const rf64Threshold = uint64(1) << 32

// PredictedOutputBytes estimates the output data size for the RF64
// decision: inputSamples · bytesPerSample · L / M.
func PredictedOutputBytes(inputSamples int64, bytesPerSample, l, m int) uint64 {
	if inputSamples <= 0 {
		return 0
	}
	return uint64(inputSamples) * uint64(bytesPerSample) * uint64(l) / uint64(m)
}

// NeedsRF64 reports whether a WAV-family output must be written as RF64.
func NeedsRF64(predictedBytes uint64, force bool) bool {
	return force || predictedBytes >= rf64Threshold
}
