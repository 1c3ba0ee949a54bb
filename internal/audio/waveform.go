// Package audio provides the in-memory waveform model and the transforms the
// transcription pipeline applies to it: downmixing, gain, peak normalization
// and silence-based splitting.
package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
)

const (
	// BitDepth is the sample width of every Waveform.
	BitDepth = 16
	// MaxPossibleAmplitude is the magnitude of the most negative 16-bit sample.
	MaxPossibleAmplitude = 1 << (BitDepth - 1)

	minSample = -MaxPossibleAmplitude
	maxSample = MaxPossibleAmplitude - 1
)

// Static errors for waveform construction.
var (
	// ErrNoFormat is returned when a PCM buffer carries no sample format.
	ErrNoFormat = errors.New("audio: buffer has no format")
	// ErrInvalidFormat is returned when the channel count or sample rate is not positive.
	ErrInvalidFormat = errors.New("audio: channel count and sample rate must be positive")
)

// Waveform is interleaved 16-bit PCM audio held in memory.
// Transform methods return new waveforms and never modify the receiver.
type Waveform struct {
	buf *goaudio.IntBuffer
}

// NewWaveform wraps interleaved samples in a Waveform.
// The samples slice is owned by the returned waveform.
func NewWaveform(samples []int, sampleRate, channels int) *Waveform {
	return &Waveform{buf: &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}}
}

// FromBuffer wraps a decoded PCM buffer in a Waveform.
func FromBuffer(buf *goaudio.IntBuffer) (*Waveform, error) {
	if buf == nil || buf.Format == nil {
		return nil, ErrNoFormat
	}
	if buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, ErrInvalidFormat
	}
	return &Waveform{buf: buf}, nil
}

// Buffer returns the underlying PCM buffer.
func (w *Waveform) Buffer() *goaudio.IntBuffer {
	return w.buf
}

// Samples returns the interleaved samples.
func (w *Waveform) Samples() []int {
	return w.buf.Data
}

// SampleRate returns the number of frames per second.
func (w *Waveform) SampleRate() int {
	return w.buf.Format.SampleRate
}

// Channels returns the number of interleaved channels.
func (w *Waveform) Channels() int {
	return w.buf.Format.NumChannels
}

// FrameCount returns the number of frames (one sample per channel).
func (w *Waveform) FrameCount() int {
	return len(w.buf.Data) / w.Channels()
}

// Len returns the length of the waveform in whole milliseconds, rounded half
// to even.
func (w *Waveform) Len() int {
	return int(math.RoundToEven(1000 * float64(w.FrameCount()) / float64(w.SampleRate())))
}

// Duration returns the exact playback duration.
func (w *Waveform) Duration() time.Duration {
	return time.Duration(float64(w.FrameCount()) / float64(w.SampleRate()) * float64(time.Second))
}

// frameAt converts a millisecond position into a frame index, truncating.
func (w *Waveform) frameAt(ms int) int {
	f := int(float64(ms) * float64(w.SampleRate()) / 1000.0)
	if f > w.FrameCount() {
		return w.FrameCount()
	}
	if f < 0 {
		return 0
	}
	return f
}

// Slice returns a copy of the audio between startMs and endMs.
// Bounds are clamped to the waveform.
func (w *Waveform) Slice(startMs, endMs int) *Waveform {
	length := w.Len()
	startMs = min(max(startMs, 0), length)
	endMs = min(max(endMs, startMs), length)

	ch := w.Channels()
	from := w.frameAt(startMs) * ch
	to := w.frameAt(endMs) * ch

	data := make([]int, to-from)
	copy(data, w.buf.Data[from:to])
	return NewWaveform(data, w.SampleRate(), ch)
}

// Mono downmixes the waveform to a single channel by averaging the channels
// of each frame. A mono waveform is returned unchanged.
func (w *Waveform) Mono() *Waveform {
	ch := w.Channels()
	if ch == 1 {
		return w
	}

	frames := w.FrameCount()
	data := make([]int, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(w.buf.Data[i*ch+c])
		}
		data[i] = clampSample(sum / float64(ch))
	}
	return NewWaveform(data, w.SampleRate(), 1)
}

// Max returns the largest absolute sample value.
func (w *Waveform) Max() int {
	peak := 0
	for _, s := range w.buf.Data {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// RMS returns the root mean square of all samples, truncated to an integer.
func (w *Waveform) RMS() int {
	if len(w.buf.Data) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range w.buf.Data {
		sumSq += float64(s) * float64(s)
	}
	return int(math.Sqrt(sumSq / float64(len(w.buf.Data))))
}

// DBFS returns the loudness of the waveform relative to full scale.
// Digital silence yields negative infinity.
func (w *Waveform) DBFS() float64 {
	rms := w.RMS()
	if rms == 0 {
		return math.Inf(-1)
	}
	return RatioToDB(float64(rms) / MaxPossibleAmplitude)
}

// ApplyGain scales every sample by the given gain in decibels.
// Results are clamped to the 16-bit range.
func (w *Waveform) ApplyGain(db float64) *Waveform {
	return w.scale(DBToFloat(db))
}

// Normalize boosts or attenuates the waveform so its peak sits headroomDB
// below full scale. Digital silence is returned unchanged.
func (w *Waveform) Normalize(headroomDB float64) *Waveform {
	peak := w.Max()
	if peak == 0 {
		return w
	}
	target := MaxPossibleAmplitude * DBToFloat(-headroomDB)
	return w.scale(target / float64(peak))
}

func (w *Waveform) scale(factor float64) *Waveform {
	data := make([]int, len(w.buf.Data))
	for i, s := range w.buf.Data {
		data[i] = clampSample(float64(s) * factor)
	}
	return NewWaveform(data, w.SampleRate(), w.Channels())
}

// PCM encodes the samples as signed 16-bit integers in the given byte order.
func (w *Waveform) PCM(order binary.ByteOrder) []byte {
	out := make([]byte, 2*len(w.buf.Data))
	for i, s := range w.buf.Data {
		order.PutUint16(out[2*i:], uint16(int16(s)))
	}
	return out
}

// DBToFloat converts a decibel value to an amplitude ratio.
func DBToFloat(db float64) float64 {
	return math.Pow(10, db/20)
}

// RatioToDB converts an amplitude ratio to decibels.
func RatioToDB(ratio float64) float64 {
	return 20 * math.Log10(ratio)
}

func clampSample(v float64) int {
	if v > maxSample {
		v = maxSample
	}
	if v < minSample {
		v = minSample
	}
	return int(math.Floor(v))
}
