package marketagent

import (
	"bytes"

	"github.com/market-agent-gateway/internal/jsonx"
)

// ReplyKind tells which shape the gateway's "response" field had.
type ReplyKind int

const (
	// RawReply means "response" was absent, empty or falsy; the whole
	// payload is the answer.
	RawReply ReplyKind = iota
	// ArrayReply means "response" was a non-empty list.
	ArrayReply
	// ScalarReply means "response" was any other present value.
	ScalarReply
)

func (k ReplyKind) String() string {
	switch k {
	case ArrayReply:
		return "array"
	case ScalarReply:
		return "scalar"
	default:
		return "raw"
	}
}

// Reply is an /invoke response body resolved once into its shape.
type Reply struct {
	Kind ReplyKind
	// Items holds the list elements of an ArrayReply.
	Items []string
	// Scalar holds the value of a ScalarReply.
	Scalar string
	// Raw is the complete response body.
	Raw []byte
}

// ParseReply classifies an /invoke response body. It never fails: bodies
// that are not JSON objects become a RawReply.
func ParseReply(body []byte) Reply {
	reply := Reply{Kind: RawReply, Raw: body}

	var envelope struct {
		Response jsonx.RawMessage `json:"response"`
	}
	if err := jsonx.Unmarshal(body, &envelope); err != nil {
		return reply
	}

	resp := bytes.TrimSpace(envelope.Response)
	if len(resp) == 0 {
		return reply
	}

	switch resp[0] {
	case '[':
		var items []jsonx.RawMessage
		if err := jsonx.Unmarshal(resp, &items); err != nil || len(items) == 0 {
			return reply
		}
		reply.Kind = ArrayReply
		reply.Items = make([]string, len(items))
		for i, item := range items {
			reply.Items[i] = valueText(item)
		}
	default:
		if falsy(resp) {
			return reply
		}
		reply.Kind = ScalarReply
		reply.Scalar = valueText(resp)
	}
	return reply
}

// Text returns the answer text: the first list element, the scalar, or
// the raw payload.
func (r Reply) Text() string {
	switch r.Kind {
	case ArrayReply:
		return r.Items[0]
	case ScalarReply:
		return r.Scalar
	default:
		return string(bytes.TrimSpace(r.Raw))
	}
}

// valueText unquotes JSON strings and keeps any other value as JSON text.
func valueText(v jsonx.RawMessage) string {
	var s string
	if err := jsonx.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

func falsy(v jsonx.RawMessage) bool {
	switch string(v) {
	case "null", "false", `""`, "0":
		return true
	}
	var f float64
	if err := jsonx.Unmarshal(v, &f); err == nil && f == 0 {
		return true
	}
	return false
}
