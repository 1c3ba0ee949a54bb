package audio

import (
	"context"
	"fmt"
	"math"
	"time"
)

// SplitOpts configures the behavior of silence-based splitting.
type SplitOpts struct {
	// MinSilenceMs is the minimum length in milliseconds of a quiet run
	// for it to count as silence.
	// Default: 700 milliseconds.
	MinSilenceMs int

	// SilenceThreshDB is the level in dBFS at or below which a run is quiet.
	// Default: -40 dBFS.
	SilenceThreshDB float64

	// KeepSilenceMs is how much of the surrounding silence is retained on
	// each side of a segment.
	// Default: 400 milliseconds.
	KeepSilenceMs int

	// SeekStepMs is the step between candidate silence windows.
	// Default: 1 millisecond.
	SeekStepMs int
}

// DefaultSplitOpts returns the default options for silence splitting.
func DefaultSplitOpts() SplitOpts {
	return SplitOpts{
		MinSilenceMs:    700,
		SilenceThreshDB: -40,
		KeepSilenceMs:   400,
		SeekStepMs:      1,
	}
}

// Range is a half-open span of a waveform in milliseconds.
type Range struct {
	StartMs int
	EndMs   int
}

// Segment is one speech-bearing sub-clip of a waveform.
type Segment struct {
	// Index is the zero-based position of the segment in the source.
	Index int
	// StartMs is where the segment begins in the source, padding included.
	StartMs int
	// EndMs is where the segment ends in the source, padding included.
	EndMs int
	// Wave holds the segment audio.
	Wave *Waveform
}

// Duration returns the length of the segment.
func (s Segment) Duration() time.Duration {
	return time.Duration(s.EndMs-s.StartMs) * time.Millisecond
}

// String returns a human-readable representation for logging.
func (s Segment) String() string {
	return fmt.Sprintf("segment %d: %dms-%dms", s.Index, s.StartMs, s.EndMs)
}

// Splitter divides a waveform into speech-bearing segments.
type Splitter interface {
	// Split returns the segments of w in temporal order. An empty result
	// means no speech was found and is not an error.
	Split(ctx context.Context, w *Waveform, opts SplitOpts) ([]Segment, error)
}

// SilenceSplitter implements Splitter by cutting at runs of low RMS level.
type SilenceSplitter struct{}

// NewSilenceSplitter creates a new SilenceSplitter.
func NewSilenceSplitter() *SilenceSplitter {
	return &SilenceSplitter{}
}

// Split implements Splitter.Split.
//
// Each non-silent span is widened by KeepSilenceMs on both sides. When two
// widened spans would overlap they meet at the midpoint of the overlap, and
// all bounds are clipped to the waveform.
func (s *SilenceSplitter) Split(ctx context.Context, w *Waveform, opts SplitOpts) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("split cancelled: %w", err)
	}

	spans := DetectNonsilent(w, opts.MinSilenceMs, opts.SilenceThreshDB, opts.SeekStepMs)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("split cancelled: %w", err)
	}

	ranges := make([]Range, len(spans))
	for i, sp := range spans {
		ranges[i] = Range{StartMs: sp.StartMs - opts.KeepSilenceMs, EndMs: sp.EndMs + opts.KeepSilenceMs}
	}
	for i := 0; i+1 < len(ranges); i++ {
		if ranges[i+1].StartMs < ranges[i].EndMs {
			mid := floorDiv(ranges[i].EndMs+ranges[i+1].StartMs, 2)
			ranges[i].EndMs = mid
			ranges[i+1].StartMs = mid
		}
	}

	length := w.Len()
	segments := make([]Segment, 0, len(ranges))
	for i, r := range ranges {
		start := max(r.StartMs, 0)
		end := min(r.EndMs, length)
		segments = append(segments, Segment{
			Index:   i,
			StartMs: start,
			EndMs:   end,
			Wave:    w.Slice(start, end),
		})
	}
	return segments, nil
}

// DetectSilence returns the silent ranges of w: runs of at least
// minSilenceMs whose RMS level is at or below threshDB.
func DetectSilence(w *Waveform, minSilenceMs int, threshDB float64, seekStepMs int) []Range {
	length := w.Len()
	if minSilenceMs <= 0 || length < minSilenceMs {
		return nil
	}
	if seekStepMs <= 0 {
		seekStepMs = 1
	}

	thresh := DBToFloat(threshDB) * MaxPossibleAmplitude
	env := newEnvelope(w, length)

	var starts []int
	last := length - minSilenceMs
	for i := 0; i <= last; i += seekStepMs {
		if float64(env.rms(i, i+minSilenceMs)) <= thresh {
			starts = append(starts, i)
		}
	}
	if last%seekStepMs != 0 && float64(env.rms(last, last+minSilenceMs)) <= thresh {
		starts = append(starts, last)
	}
	if len(starts) == 0 {
		return nil
	}

	var ranges []Range
	prev := starts[0]
	rangeStart := prev
	for _, st := range starts[1:] {
		contiguous := st == prev+seekStepMs
		gap := st > prev+minSilenceMs
		if !contiguous && gap {
			ranges = append(ranges, Range{StartMs: rangeStart, EndMs: prev + minSilenceMs})
			rangeStart = st
		}
		prev = st
	}
	ranges = append(ranges, Range{StartMs: rangeStart, EndMs: prev + minSilenceMs})
	return ranges
}

// DetectNonsilent returns the spans of w between its silent ranges.
// A waveform with no silence is one span; a waveform that is silent
// throughout has none.
func DetectNonsilent(w *Waveform, minSilenceMs int, threshDB float64, seekStepMs int) []Range {
	length := w.Len()
	silent := DetectSilence(w, minSilenceMs, threshDB, seekStepMs)
	if len(silent) == 0 {
		return []Range{{StartMs: 0, EndMs: length}}
	}
	if silent[0].StartMs == 0 && silent[0].EndMs == length {
		return nil
	}

	var spans []Range
	prevEnd := 0
	for _, r := range silent {
		spans = append(spans, Range{StartMs: prevEnd, EndMs: r.StartMs})
		prevEnd = r.EndMs
	}
	if prevEnd != length {
		spans = append(spans, Range{StartMs: prevEnd, EndMs: length})
	}
	if spans[0] == (Range{}) {
		spans = spans[1:]
	}
	return spans
}

// envelope answers RMS queries over millisecond windows in constant time
// using prefix sums of squared samples taken at millisecond boundaries.
type envelope struct {
	prefix   []int64
	frameIdx []int
	channels int
}

func newEnvelope(w *Waveform, lengthMs int) *envelope {
	ch := w.Channels()
	data := w.Samples()
	e := &envelope{
		prefix:   make([]int64, lengthMs+1),
		frameIdx: make([]int, lengthMs+1),
		channels: ch,
	}

	var acc int64
	pos := 0
	for ms := 0; ms <= lengthMs; ms++ {
		f := w.frameAt(ms)
		for ; pos < f*ch; pos++ {
			acc += int64(data[pos]) * int64(data[pos])
		}
		e.prefix[ms] = acc
		e.frameIdx[ms] = f
	}
	return e
}

// rms returns the truncated RMS of the samples in [startMs, endMs).
func (e *envelope) rms(startMs, endMs int) int {
	n := (e.frameIdx[endMs] - e.frameIdx[startMs]) * e.channels
	if n <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(e.prefix[endMs]-e.prefix[startMs]) / float64(n)))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Verify interface implementation at compile time.
var _ Splitter = (*SilenceSplitter)(nil)
