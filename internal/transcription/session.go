// Package transcription provides the Session aggregate for a single
// transcription request and the Service that runs the pipeline from an
// uploaded media file to a finished transcript.
package transcription

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/maauso/mindscribe/internal/audio"
)

// ChunkState represents the current state of one speech chunk.
type ChunkState string

const (
	// ChunkPending indicates the chunk has not been submitted yet.
	ChunkPending ChunkState = "PENDING"
	// ChunkTranscribing indicates the chunk is with the recognizer.
	ChunkTranscribing ChunkState = "TRANSCRIBING"
	// ChunkTranscribed indicates the recognizer returned text for the chunk.
	ChunkTranscribed ChunkState = "TRANSCRIBED"
	// ChunkUnclear indicates the recognizer could not make out any speech.
	ChunkUnclear ChunkState = "UNCLEAR"
	// ChunkAborted indicates the run stopped while this chunk was in flight.
	ChunkAborted ChunkState = "ABORTED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[ChunkState][]ChunkState{
	ChunkPending:      {ChunkTranscribing},
	ChunkTranscribing: {ChunkTranscribed, ChunkUnclear, ChunkAborted},
	ChunkTranscribed:  {},
	ChunkUnclear:      {},
	ChunkAborted:      {},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to ChunkState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

// IsTerminal returns true if no further transitions are allowed from s.
func (s ChunkState) IsTerminal() bool {
	switch s {
	case ChunkTranscribed, ChunkUnclear, ChunkAborted:
		return true
	default:
		return false
	}
}

// Chunk tracks one segment of the source audio through transcription.
type Chunk struct {
	// Index is the position of this chunk in the sequence.
	Index int
	// StartMs is where the chunk begins in the normalized audio.
	StartMs int
	// EndMs is where the chunk ends in the normalized audio.
	EndMs int
	// State is the current transcription state.
	State ChunkState
	// Error contains the failure reason if the chunk was aborted.
	Error string
}

// TransitionTo attempts to change the chunk state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (c *Chunk) TransitionTo(state ChunkState) error {
	if !canTransition(c.State, state) {
		return ErrInvalidTransition
	}
	c.State = state
	return nil
}

// Level classifies a user-facing message.
type Level string

// Message levels, from least to most severe.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a progress or status line shown to the user.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Session is the state of one transcription request. A Session is created
// per request and is never shared or stored.
type Session struct {
	// ID is the unique identifier for this session.
	ID string
	// FileName is the name of the uploaded file.
	FileName string
	// Messages holds user-facing progress messages in the order they were raised.
	Messages []Message
	// Chunks contains one entry per detected speech segment.
	Chunks []Chunk
	// Transcript holds the fragments produced so far.
	Transcript Transcript
	// Aborted is true when the recognizer became unavailable mid-run.
	Aborted bool
	// CreatedAt is when the session was created.
	CreatedAt time.Time
}

// NewSession creates a new Session with a generated ID.
func NewSession(fileName string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		CreatedAt: time.Now(),
	}
}

// SetSegments registers one pending chunk per segment.
func (s *Session) SetSegments(segments []audio.Segment) {
	s.Chunks = make([]Chunk, len(segments))
	for i, seg := range segments {
		s.Chunks[i] = Chunk{
			Index:   seg.Index,
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
			State:   ChunkPending,
		}
	}
}

func (s *Session) addMessage(level Level, text string) {
	s.Messages = append(s.Messages, Message{Level: level, Text: text})
}
