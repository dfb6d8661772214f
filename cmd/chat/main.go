// Terminal chat client for the market agent gateway
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/agentcore"
	"github.com/market-agent-gateway/internal/logging"
	marketagent "github.com/market-agent-gateway/sdk/go"
)

const help = `Commands:
  /users             list demo brokers
  /actor <id>        switch broker (selects the broker's first session)
  /session <id>      switch session
  /memory            show what the agent remembers about the broker
  /history           show the current session transcript
  /quit              exit
Anything else is sent to the agent.`

func main() {
	_ = godotenv.Load()

	gatewayURL := flag.String("gateway", getEnv("GATEWAY_URL", "http://localhost:8080"), "Gateway base URL")
	actorID := flag.String("actor", marketagent.DefaultActorID, "Broker to chat as")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", "warn"), "Log level")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *logLevel, Development: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client := marketagent.NewClient(marketagent.ClientConfig{
		BaseURL: *gatewayURL,
		Memory:  directMemory(logger),
		Logger:  logger,
	})

	app := &chat{
		client:   client,
		sessions: &marketagent.Sessions{},
		out:      os.Stdout,
	}
	app.conv = marketagent.NewConversation(client, app.sessions, *actorID)
	app.conv.OnStateChange = func(s marketagent.State) {
		if s == marketagent.Sending {
			fmt.Fprintln(app.out, "... thinking")
		}
	}

	ctx := context.Background()
	app.selectActor(ctx, *actorID)
	fmt.Fprintln(app.out, help)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprintf(app.out, "%s> ", app.conv.ActorID())
		if !scanner.Scan() {
			return
		}
		if !app.handle(ctx, scanner.Text()) {
			return
		}
	}
}

// directMemory returns a memory client when runtime credentials are
// present in the environment.
func directMemory(logger *zap.Logger) marketagent.MemoryRetriever {
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
		return agentcore.NewRedisMemory(rdb, os.Getenv("REDIS_KEY_PREFIX"), logger)
	}
	if url := os.Getenv("RUNTIME_URL"); url != "" {
		return agentcore.NewHTTPClient(agentcore.HTTPConfig{BaseURL: url}, logger.Named("runtime"))
	}
	return nil
}

type chat struct {
	client   *marketagent.Client
	sessions *marketagent.Sessions
	conv     *marketagent.Conversation
	out      io.Writer
}

// handle processes one input line and reports whether to continue.
func (c *chat) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		outcome, sent := c.conv.Send(ctx, line)
		if sent {
			tag := "agent"
			if outcome.FallbackUsed {
				tag = "agent (offline)"
			}
			fmt.Fprintf(c.out, "%s: %s\n", tag, outcome.Text)
		}
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return false
	case "/users":
		for _, b := range marketagent.DemoUsers() {
			fmt.Fprintf(c.out, "  %-6s %s, %s (%s) sessions: %s\n",
				b.ID, b.Name, b.Firm, b.ProfileFocus, strings.Join(b.Sessions, ", "))
		}
	case "/actor":
		if arg == "" {
			fmt.Fprintln(c.out, "usage: /actor <id>")
			break
		}
		c.selectActor(ctx, arg)
	case "/session":
		if arg == "" {
			fmt.Fprintln(c.out, "usage: /session <id>")
			break
		}
		c.selectSession(ctx, arg)
	case "/memory":
		c.printMemory(ctx)
	case "/history":
		c.printHistory()
	default:
		fmt.Fprintln(c.out, help)
	}
	return true
}

func (c *chat) selectActor(ctx context.Context, actorID string) {
	c.conv.SetActor(actorID)
	broker := marketagent.LookupBroker(actorID)
	fmt.Fprintf(c.out, "Chatting as %s (%s, %s)\n", actorID, broker.Name, broker.Firm)
	c.selectSession(ctx, broker.Sessions[0])
}

func (c *chat) selectSession(ctx context.Context, sessionID string) {
	history := c.client.GetSessionHistory(ctx, sessionID)
	c.sessions.Select(sessionID, history)
	fmt.Fprintf(c.out, "Session %s (%d messages)\n", sessionID, len(history))
}

func (c *chat) printMemory(ctx context.Context) {
	snap := c.client.GetMemory(ctx, c.conv.ActorID())
	fmt.Fprintf(c.out, "Memory for %s: %d records, updated %s\n", snap.ActorID, snap.Count, snap.RetrievedAt)
	if snap.Profile != nil {
		fmt.Fprintf(c.out, "  Profile: %s, %s, %s\n", snap.Profile.Name, snap.Profile.Firm, snap.Profile.Focus)
	}
	for _, rec := range snap.Records {
		fmt.Fprintf(c.out, "  %s  %-12s %s\n", shortTime(rec.Timestamp), rec.Kind, rec.Content)
	}
}

func (c *chat) printHistory() {
	t := c.sessions.Current()
	if t == nil {
		return
	}
	for _, e := range t.Entries() {
		fmt.Fprintf(c.out, "  %s  %-9s %s\n", shortTime(e.Timestamp), e.Role, e.Content)
	}
}

func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("Jan 2 15:04")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
