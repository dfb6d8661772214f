package marketagent

import (
	"fmt"
	"strings"
	"time"

	"github.com/market-agent-gateway/internal/memory"
)

// DefaultActorID is the demo actor used for unknown actors.
const DefaultActorID = "Sarah"

// Broker is one entry of the built-in demo directory.
type Broker struct {
	ID   string
	Name string
	Firm string
	// Focus is the phrasing used in chat answers.
	Focus string
	// ProfileFocus is the phrasing stored in the broker's memory profile.
	ProfileFocus string
	Sessions     []string
}

var brokers = []Broker{
	{
		ID:           "Sarah",
		Name:         "Sarah Chen",
		Firm:         "Goldman Sachs",
		Focus:        "tech stocks, AI, semiconductors",
		ProfileFocus: "Tech stocks, AI, semiconductors",
		Sessions:     []string{"session-sarah-1", "session-sarah-2", "session-sarah-3"},
	},
	{
		ID:           "Mike",
		Name:         "Mike Johnson",
		Firm:         "JP Morgan",
		Focus:        "healthcare, biotech",
		ProfileFocus: "Healthcare, biotech investments",
		Sessions:     []string{"session-mike-1", "session-mike-2"},
	},
	{
		ID:           "Lisa",
		Name:         "Lisa Wang",
		Firm:         "Morgan Stanley",
		Focus:        "energy, renewables",
		ProfileFocus: "Energy, renewable investments",
		Sessions:     []string{"session-lisa-1"},
	},
}

// DemoUsers returns a copy of the demo broker directory in display order.
func DemoUsers() []Broker {
	out := make([]Broker, len(brokers))
	for i, b := range brokers {
		b.Sessions = append([]string(nil), b.Sessions...)
		out[i] = b
	}
	return out
}

// LookupBroker returns the directory entry for actorID, or Sarah's entry
// when the actor is unknown.
func LookupBroker(actorID string) Broker {
	for _, b := range brokers {
		if b.ID == actorID {
			return b
		}
	}
	return brokers[0]
}

// MockAgentResponse is the offline answer to prompt for actorID. It is a
// pure function of its arguments.
func MockAgentResponse(prompt, actorID string) string {
	b := LookupBroker(actorID)
	p := strings.ToLower(prompt)

	switch {
	case strings.Contains(p, "nvda") || strings.Contains(p, "nvidia"):
		return fmt.Sprintf("Based on your focus on %s, NVDA is currently trading at $875.32, up 2.1%% today. "+
			"Given your investment strategy at %s, this aligns well with your portfolio objectives. "+
			"The AI chip demand continues to drive growth.", b.Focus, b.Firm)
	case strings.Contains(p, "profile") || strings.Contains(p, "remember"):
		return fmt.Sprintf("I remember you're %s from %s, focusing on %s. "+
			"Your profile is stored in my AgentCore Memory and I reference it for all our conversations.",
			b.Name, b.Firm, b.Focus)
	case strings.Contains(p, "news"):
		return fmt.Sprintf("Here are the latest news updates relevant to your %s focus: "+
			"Recent developments show strong growth potential. "+
			"This aligns with your investment strategy at %s.", b.Focus, b.Firm)
	default:
		return fmt.Sprintf("Thank you for your message, %s. As a %s broker focused on %s, "+
			"I'll provide analysis tailored to your investment approach. "+
			"How can I assist you with market intelligence today?", b.Name, b.Firm, b.Focus)
	}
}

// MockMemorySnapshot is the offline memory view of actorID: a profile
// record and one earlier conversation. The snapshot keeps the requested
// actor id even when the directory falls back to Sarah.
func MockMemorySnapshot(actorID string, now time.Time) MemorySnapshot {
	b := LookupBroker(actorID)

	records := []MemoryRecord{
		{
			Timestamp: memory.FormatTimestamp(now),
			Kind:      memory.KindProfile,
			Content:   fmt.Sprintf("Broker Profile: %s from %s, focuses on %s", b.Name, b.Firm, b.ProfileFocus),
		},
		{
			Timestamp: memory.FormatTimestamp(now.Add(-time.Hour)),
			Kind:      memory.KindConversation,
			Content:   "Previous conversation about market trends and investment strategies",
		},
	}

	snap := memory.NewSnapshot(actorID, records, now)
	snap.Profile = &Profile{Name: b.Name, Firm: b.Firm, Focus: b.ProfileFocus}
	return snap
}

// MockSessionHistory is the offline transcript returned for every session.
func MockSessionHistory(now time.Time) []TranscriptEntry {
	return []TranscriptEntry{
		{
			Role:      RoleUser,
			Content:   "Hi, I'm Sarah Chen from Goldman Sachs. I focus on tech stocks, especially AI and semiconductors.",
			Timestamp: memory.FormatTimestamp(now.Add(-7200 * time.Second)),
		},
		{
			Role: RoleAssistant,
			Content: "Welcome Sarah! I've saved your profile to AgentCore Memory. " +
				"Given your focus on tech stocks, AI, and semiconductors, I can provide tailored market analysis. " +
				"What specific information would be most valuable to you today?",
			Timestamp: memory.FormatTimestamp(now.Add(-7100 * time.Second)),
		},
	}
}
