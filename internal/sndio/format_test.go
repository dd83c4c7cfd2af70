package sndio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutput_KeepsInputSubformat(t *testing.T) {
	in := FileFormat{Container: ContainerWAV, Subformat: Subformat24}

	res, err := ResolveOutput(in, "wav", "")
	require.NoError(t, err)
	assert.Equal(t, FileFormat{Container: ContainerWAV, Subformat: Subformat24}, res.Format)
	assert.False(t, res.Fallback)
}

func TestResolveOutput_Override(t *testing.T) {
	in := FileFormat{Container: ContainerWAV, Subformat: Subformat16}

	res, err := ResolveOutput(in, "wav", SubformatFloat)
	require.NoError(t, err)
	assert.Equal(t, SubformatFloat, res.Format.Subformat)
}

func TestResolveOutput_InvalidFallsBackToDefault(t *testing.T) {
	in := FileFormat{Container: ContainerWAV, Subformat: SubformatDouble}

	// FLAC cannot hold doubles; the per-container default takes over.
	res, err := ResolveOutput(in, "flac", "")
	require.NoError(t, err)
	assert.Equal(t, FileFormat{Container: ContainerFLAC, Subformat: Subformat16}, res.Format)
	assert.True(t, res.Fallback)
}

func TestResolveOutput_DSDInputTakesDefault(t *testing.T) {
	in := FileFormat{Container: ContainerDSF, Subformat: SubformatDSD}

	res, err := ResolveOutput(in, "wav", "")
	require.NoError(t, err)
	assert.Equal(t, Subformat16, res.Format.Subformat)
	assert.False(t, res.Fallback, "DSD inputs have no PCM subformat to miss")
}

func TestResolveOutput_UnknownExtension(t *testing.T) {
	_, err := ResolveOutput(FileFormat{}, "xyz", "")
	assert.ErrorIs(t, err, ErrUnknownExtension)
}

func TestUnsigned8_PerContainer(t *testing.T) {
	for _, c := range []Container{ContainerMAT, ContainerRF64, ContainerVOC, ContainerW64, ContainerWAV} {
		assert.True(t, Unsigned8(c), "%s should store 8-bit unsigned", c)
	}
	assert.False(t, Unsigned8(ContainerAIFF))
	assert.False(t, Unsigned8(ContainerFLAC))
}

func TestListSubformats(t *testing.T) {
	subs, err := ListSubformats("flac")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{Subformat8, Subformat16, Subformat24}, subs)

	_, err = ListSubformats("nope")
	assert.ErrorIs(t, err, ErrUnknownExtension)
}

func TestBytesPerSample(t *testing.T) {
	tests := []struct {
		sub  string
		want int
	}{
		{Subformat8, 1},
		{Subformat16, 2},
		{Subformat24, 3},
		{Subformat32, 4},
		{SubformatFloat, 4},
		{SubformatDouble, 8},
		{SubformatVorbis, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BytesPerSample(tt.sub), tt.sub)
	}
}

func TestNeedsRF64_Threshold(t *testing.T) {
	// 16-bit stereo at 1:1 needs 2^31 samples to hit the 4 GiB limit.
	atLimit := PredictedOutputBytes(1<<31, 2, 1, 1)
	assert.True(t, NeedsRF64(atLimit, false))

	below := PredictedOutputBytes(1<<31-1, 2, 1, 1)
	assert.False(t, NeedsRF64(below, false))

	// The ratio scales the prediction: upsampling 1 G samples by 4 crosses.
	upsampled := PredictedOutputBytes(1<<30, 2, 4, 1)
	assert.True(t, NeedsRF64(upsampled, false))

	// Force wins regardless of size.
	assert.True(t, NeedsRF64(0, true))
}

func TestFileFormat_Classification(t *testing.T) {
	assert.True(t, FileFormat{Container: ContainerDSF}.IsDSD())
	assert.True(t, FileFormat{Container: ContainerDFF}.IsDSD())
	assert.False(t, FileFormat{Container: ContainerWAV}.IsDSD())

	assert.True(t, FileFormat{Container: ContainerWAV}.IsWAVFamily())
	assert.True(t, FileFormat{Container: ContainerRF64}.IsWAVFamily())
	assert.False(t, FileFormat{Container: ContainerAIFF}.IsWAVFamily())
}

func TestExt(t *testing.T) {
	assert.Equal(t, "wav", Ext("/tmp/Music/Take.WAV"))
	assert.Equal(t, "dsf", Ext("album.dsf"))
	assert.Equal(t, "", Ext("noextension"))
}
