// Package main demonstrates using the market agent Go SDK
package main

import (
	"context"
	"fmt"
	"os"

	marketagent "github.com/market-agent-gateway/sdk/go"
)

func main() {
	baseURL := os.Getenv("GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := marketagent.NewClient(marketagent.ClientConfig{BaseURL: baseURL})
	ctx := context.Background()

	broker := marketagent.DemoUsers()[0]
	sessionID := broker.Sessions[0]

	// Ask a question; falls back to a canned answer if the gateway is down
	outcome := client.Invoke(ctx, "What's the current price for NVDA?", broker.ID, sessionID)
	fmt.Printf("Agent (fallback=%v): %s\n", outcome.FallbackUsed, outcome.Text)

	// Inspect what the agent remembers
	snap := client.GetMemory(ctx, broker.ID)
	fmt.Printf("Memory for %s: %d records (updated %s)\n", snap.ActorID, snap.Count, snap.RetrievedAt)
	for _, rec := range snap.Records {
		fmt.Printf("  [%s] %s: %s\n", rec.Timestamp, rec.Kind, rec.Content)
	}

	// Session transcript
	for _, entry := range client.GetSessionHistory(ctx, sessionID) {
		fmt.Printf("%s: %s\n", entry.Role, entry.Content)
	}
}
