package marketagent

import "sync"

// Transcript is the append-only message list of one session.
type Transcript struct {
	mu        sync.Mutex
	sessionID string
	entries   []TranscriptEntry
}

// NewTranscript creates a transcript seeded with history.
func NewTranscript(sessionID string, history []TranscriptEntry) *Transcript {
	return &Transcript{
		sessionID: sessionID,
		entries:   append([]TranscriptEntry(nil), history...),
	}
}

// SessionID returns the session the transcript belongs to.
func (t *Transcript) SessionID() string {
	return t.sessionID
}

// Append adds entries at the end, in order and as one unit.
func (t *Transcript) Append(entries ...TranscriptEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entries...)
}

// Entries returns a copy of the transcript.
func (t *Transcript) Entries() []TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TranscriptEntry{}, t.entries...)
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sessions owns the transcript of the currently selected session. Selecting
// another session discards the previous transcript.
type Sessions struct {
	mu      sync.Mutex
	current *Transcript
}

// Select makes sessionID current with a fresh transcript seeded from history.
func (s *Sessions) Select(sessionID string, history []TranscriptEntry) *Transcript {
	t := NewTranscript(sessionID, history)
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	return t
}

// Current returns the selected transcript, or nil before the first Select.
func (s *Sessions) Current() *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
