package transcription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mindscribe/internal/audio"
)

func TestNewSession(t *testing.T) {
	a := NewSession("talk.mp3")
	b := NewSession("talk.mp3")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "talk.mp3", a.FileName)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Empty(t, a.Chunks)
	assert.Zero(t, a.Transcript.Len())
}

func TestSession_SetSegments(t *testing.T) {
	sess := NewSession("x.wav")
	sess.SetSegments([]audio.Segment{
		{Index: 0, StartMs: 0, EndMs: 1400},
		{Index: 1, StartMs: 1600, EndMs: 3000},
	})

	require.Len(t, sess.Chunks, 2)
	assert.Equal(t, Chunk{Index: 1, StartMs: 1600, EndMs: 3000, State: ChunkPending}, sess.Chunks[1])
}

func TestChunk_ValidTransitions(t *testing.T) {
	tests := []struct {
		from    ChunkState
		to      ChunkState
		allowed bool
	}{
		{ChunkPending, ChunkTranscribing, true},
		{ChunkPending, ChunkTranscribed, false},
		{ChunkPending, ChunkAborted, false},
		{ChunkTranscribing, ChunkTranscribed, true},
		{ChunkTranscribing, ChunkUnclear, true},
		{ChunkTranscribing, ChunkAborted, true},
		{ChunkTranscribing, ChunkPending, false},
		{ChunkTranscribed, ChunkUnclear, false},
		{ChunkUnclear, ChunkTranscribing, false},
		{ChunkAborted, ChunkTranscribing, false},
		{ChunkState("UNKNOWN"), ChunkTranscribing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := Chunk{State: tt.from}
			err := c.TransitionTo(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, c.State)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, c.State)
		})
	}
}

func TestChunkState_IsTerminal(t *testing.T) {
	assert.False(t, ChunkPending.IsTerminal())
	assert.False(t, ChunkTranscribing.IsTerminal())
	assert.True(t, ChunkTranscribed.IsTerminal())
	assert.True(t, ChunkUnclear.IsTerminal())
	assert.True(t, ChunkAborted.IsTerminal())
}

func TestTranscript_String(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Transcript)
		want  string
	}{
		{
			name:  "empty",
			build: func(*Transcript) {},
			want:  "",
		},
		{
			name: "texts are space joined",
			build: func(tr *Transcript) {
				tr.Add(0, "good morning")
				tr.Add(1, "everyone")
			},
			want: "good morning everyone",
		},
		{
			name: "placeholder between texts",
			build: func(tr *Transcript) {
				tr.Add(0, "one")
				tr.AddUnclear(1)
				tr.Add(2, "three")
			},
			want: "one [Unclear audio] three",
		},
		{
			name: "consecutive placeholders",
			build: func(tr *Transcript) {
				tr.AddUnclear(0)
				tr.AddUnclear(1)
			},
			want: "[Unclear audio] [Unclear audio]",
		},
		{
			name: "outer whitespace is trimmed",
			build: func(tr *Transcript) {
				tr.Add(0, "  padded ")
			},
			want: "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr Transcript
			tt.build(&tr)
			assert.Equal(t, tt.want, tr.String())
		})
	}
}
