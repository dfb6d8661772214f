package memory

import (
	"strings"
	"time"
)

const (
	// PlaceholderContent stands in for records that carry no text.
	PlaceholderContent = "Memory content"

	profileMarker = "Profile"
)

// Normalizer converts raw memory records into timeline records.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer. A nil clock defaults to time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize maps raw records 1:1 and in order onto Records.
// A nil input yields an empty, non-nil slice.
func (n *Normalizer) Normalize(raw []RawRecord) []Record {
	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		records = append(records, n.normalizeOne(r))
	}
	return records
}

func (n *Normalizer) normalizeOne(r RawRecord) Record {
	rec := Record{
		Kind:    KindConversation,
		Content: PlaceholderContent,
	}

	// Each record missing a timestamp gets its own capture instant.
	if r.CreatedAt != nil && *r.CreatedAt != "" {
		rec.Timestamp = *r.CreatedAt
	} else {
		rec.Timestamp = FormatTimestamp(n.now())
	}

	if r.Content != nil && r.Content.Text != nil {
		rec.Content = *r.Content.Text
		if strings.Contains(*r.Content.Text, profileMarker) {
			rec.Kind = KindProfile
		}
	}

	return rec
}
