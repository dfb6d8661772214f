// Package memory shapes the agent runtime's persisted memory records into a
// display-ready timeline.
//
// Records arrive from the remote memory store in a loosely typed form where
// every field is optional. The Normalizer is the only place that looks at
// that raw shape; everything downstream works with Record and Snapshot.
package memory

import (
	"time"
)

// Kind classifies a normalized memory record.
type Kind string

const (
	KindProfile      Kind = "profile"
	KindConversation Kind = "conversation"
)

// RawRecord is a memory record as returned by the remote memory store.
// Both fields may be absent.
type RawRecord struct {
	CreatedAt *string     `json:"createdAt,omitempty"`
	Content   *RawContent `json:"content,omitempty"`
}

// RawContent is the content envelope of a RawRecord.
type RawContent struct {
	Text *string `json:"text,omitempty"`
}

// Record is a normalized timeline entry.
type Record struct {
	Timestamp string `json:"timestamp"`
	Kind      Kind   `json:"type"`
	Content   string `json:"content"`
}

// Profile is the broker profile card shown next to the timeline.
type Profile struct {
	Name  string `json:"name"`
	Firm  string `json:"firm"`
	Focus string `json:"focus"`
}

// Snapshot is the full memory view of one actor at one point in time.
// Count always equals len(Records); use NewSnapshot or EmptySnapshot.
type Snapshot struct {
	ActorID     string   `json:"actor_id"`
	Profile     *Profile `json:"profile,omitempty"`
	Records     []Record `json:"memories"`
	Count       int      `json:"memory_count"`
	RetrievedAt string   `json:"last_updated"`
}

// NewSnapshot builds a snapshot whose count matches its records.
func NewSnapshot(actorID string, records []Record, retrievedAt time.Time) Snapshot {
	if records == nil {
		records = []Record{}
	}
	return Snapshot{
		ActorID:     actorID,
		Records:     records,
		Count:       len(records),
		RetrievedAt: FormatTimestamp(retrievedAt),
	}
}

// EmptySnapshot is the snapshot reported when the memory store is unavailable.
func EmptySnapshot(actorID string, retrievedAt time.Time) Snapshot {
	return NewSnapshot(actorID, nil, retrievedAt)
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with millisecond
// precision, e.g. 2025-08-01T09:30:00.000Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// String returns a pointer to s, for building RawRecords.
func String(s string) *string {
	return &s
}
