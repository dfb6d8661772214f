package agentcore

// SliceStream is an in-memory CompletionStream over pre-built events.
type SliceStream struct {
	events []CompletionEvent
	pos    int
	cur    CompletionEvent
	err    error
	closed bool
}

// NewSliceStream returns a stream that yields one chunk per argument.
// A nil argument yields an event without payload.
func NewSliceStream(chunks ...[]byte) *SliceStream {
	events := make([]CompletionEvent, 0, len(chunks))
	for _, c := range chunks {
		if c == nil {
			events = append(events, CompletionEvent{})
			continue
		}
		events = append(events, CompletionEvent{Chunk: &PayloadPart{Bytes: c}})
	}
	return &SliceStream{events: events}
}

// NewEventStream returns a stream over the given events, ending with err.
func NewEventStream(err error, events ...CompletionEvent) *SliceStream {
	return &SliceStream{events: events, err: err}
}

func (s *SliceStream) Next() bool {
	if s.closed || s.pos >= len(s.events) {
		return false
	}
	s.cur = s.events[s.pos]
	s.pos++
	return true
}

func (s *SliceStream) Current() CompletionEvent { return s.cur }

// Err reports the terminal error once the events are exhausted.
func (s *SliceStream) Err() error {
	if s.pos < len(s.events) && !s.closed {
		return nil
	}
	return s.err
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool { return s.closed }
