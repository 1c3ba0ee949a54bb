package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBuffer(t *testing.T) {
	t.Run("nil format", func(t *testing.T) {
		_, err := FromBuffer(&goaudio.IntBuffer{Data: []int{1}})
		assert.ErrorIs(t, err, ErrNoFormat)
	})

	t.Run("zero sample rate", func(t *testing.T) {
		_, err := FromBuffer(&goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: 1}})
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("valid", func(t *testing.T) {
		w, err := FromBuffer(&goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: 2, SampleRate: 44100},
			Data:   []int{1, 2, 3, 4},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, w.Channels())
		assert.Equal(t, 44100, w.SampleRate())
		assert.Equal(t, 2, w.FrameCount())
	})
}

func TestWaveform_LenAndDuration(t *testing.T) {
	w := NewWaveform(make([]int, 24000), testRate, 1)

	assert.Equal(t, 1500, w.Len())
	assert.Equal(t, 1500*time.Millisecond, w.Duration())
}

func TestWaveform_Len_HalfMillisecond(t *testing.T) {
	tests := []struct {
		frames int
		want   int
	}{
		{8, 0},
		{24, 2},
		{40, 2},
		{56, 4},
		{23, 1},
		{25, 2},
	}

	for _, tt := range tests {
		w := NewWaveform(make([]int, tt.frames), 16000, 1)
		assert.Equal(t, tt.want, w.Len(), "frames=%d", tt.frames)
	}
}

func TestWaveform_Slice(t *testing.T) {
	data := make([]int, 3*testRate)
	for i := range data {
		data[i] = i
	}
	w := NewWaveform(data, testRate, 1)

	s := w.Slice(1000, 2000)
	require.Equal(t, testRate, s.FrameCount())
	assert.Equal(t, testRate, s.Samples()[0])

	t.Run("bounds are clamped", func(t *testing.T) {
		s := w.Slice(-500, 10000)
		assert.Equal(t, w.FrameCount(), s.FrameCount())
	})

	t.Run("slice is a copy", func(t *testing.T) {
		s.Samples()[0] = -1
		assert.Equal(t, testRate, w.Samples()[testRate])
	})
}

func TestWaveform_Mono(t *testing.T) {
	stereo := NewWaveform([]int{100, 200, -100, -300}, testRate, 2)

	mono := stereo.Mono()
	assert.Equal(t, 1, mono.Channels())
	assert.Equal(t, []int{150, -200}, mono.Samples())

	t.Run("mono is unchanged", func(t *testing.T) {
		assert.Same(t, mono, mono.Mono())
	})
}

func TestWaveform_Levels(t *testing.T) {
	w := NewWaveform([]int{3, -4, 3, -4}, testRate, 1)

	assert.Equal(t, 4, w.Max())
	assert.Equal(t, 3, w.RMS())
	assert.InDelta(t, RatioToDB(3.0/MaxPossibleAmplitude), w.DBFS(), 1e-9)

	silent := NewWaveform([]int{0, 0}, testRate, 1)
	assert.True(t, math.IsInf(silent.DBFS(), -1))
}

func TestWaveform_ApplyGain(t *testing.T) {
	w := NewWaveform([]int{1000, -1000, 30000}, testRate, 1)

	boosted := w.ApplyGain(RatioToDB(2))
	assert.InDelta(t, 2000, boosted.Samples()[0], 1)
	assert.InDelta(t, -2000, boosted.Samples()[1], 1)
	assert.Equal(t, maxSample, boosted.Samples()[2], "gain clips at full scale")
}

func TestWaveform_Normalize(t *testing.T) {
	w := NewWaveform([]int{16384, -8192, 0}, testRate, 1)

	n := w.Normalize(0.1)
	target := MaxPossibleAmplitude * DBToFloat(-0.1)
	assert.InDelta(t, target, float64(n.Max()), 1)
	assert.InDelta(t, -target/2, float64(n.Samples()[1]), 1)
	assert.Equal(t, 0, n.Samples()[2])

	t.Run("silence is unchanged", func(t *testing.T) {
		silent := NewWaveform([]int{0, 0, 0}, testRate, 1)
		assert.Same(t, silent, silent.Normalize(0.1))
	})
}

func TestWaveform_PCM(t *testing.T) {
	w := NewWaveform([]int{1, -2}, testRate, 1)

	assert.Equal(t, []byte{0x00, 0x01, 0xff, 0xfe}, w.PCM(binary.BigEndian))
	assert.Equal(t, []byte{0x01, 0x00, 0xfe, 0xff}, w.PCM(binary.LittleEndian))
}

func TestWAVFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunk.wav")
	w := buildWave(tone(250), silence(250))

	require.NoError(t, WriteWAVFile(path, w))

	got, err := ReadWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, testRate, got.SampleRate())
	assert.Equal(t, 1, got.Channels())
	assert.Equal(t, w.Samples(), got.Samples())
}

func TestReadWAV_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not riff data"), 0o600))

	_, err := ReadWAVFile(path)
	assert.ErrorIs(t, err, ErrInvalidWAV)
}
