package gateway

import (
	"context"
	"fmt"

	"github.com/valyala/bytebufferpool"

	"github.com/market-agent-gateway/internal/agentcore"
)

// Assemble concatenates the payload bytes of every chunk in arrival order
// and decodes the result as UTF-8 text. Events without a payload are
// skipped. A stream with no chunks yields "". The stream is always closed.
func Assemble(ctx context.Context, stream agentcore.CompletionStream) (string, error) {
	defer stream.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("stream interrupted: %w", err)
		}
		ev := stream.Current()
		if ev.Chunk == nil {
			continue
		}
		buf.Write(ev.Chunk.Bytes)
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("stream failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("stream interrupted: %w", err)
	}

	return buf.String(), nil
}
