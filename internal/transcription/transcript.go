package transcription

import "strings"

// UnclearPlaceholder stands in for a chunk the recognizer could not understand.
const UnclearPlaceholder = "[Unclear audio] "

// Fragment is the result of one chunk.
type Fragment struct {
	Index int        `json:"index"`
	State ChunkState `json:"state"`
	Text  string     `json:"text"`
}

// Transcript is the ordered list of fragments of a session.
type Transcript struct {
	Fragments []Fragment
}

// Add appends a transcribed fragment.
func (t *Transcript) Add(index int, text string) {
	t.Fragments = append(t.Fragments, Fragment{Index: index, State: ChunkTranscribed, Text: text})
}

// AddUnclear appends the placeholder fragment for an unintelligible chunk.
func (t *Transcript) AddUnclear(index int) {
	t.Fragments = append(t.Fragments, Fragment{Index: index, State: ChunkUnclear, Text: UnclearPlaceholder})
}

// Len returns the number of fragments.
func (t *Transcript) Len() int {
	return len(t.Fragments)
}

// String renders the transcript. Each transcribed fragment is followed by a
// single space, the placeholder already carries its own, and the outer
// whitespace of the result is trimmed.
func (t *Transcript) String() string {
	var b strings.Builder
	for _, f := range t.Fragments {
		if f.State == ChunkUnclear {
			b.WriteString(UnclearPlaceholder)
			continue
		}
		b.WriteString(f.Text)
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}
