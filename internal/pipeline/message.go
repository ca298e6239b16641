package pipeline

import (
	"context"
	"sync"
)

// Kind classifies a progress message
type Kind string

const (
	KindProgress  Kind = "progress"
	KindLog       Kind = "log"
	KindError     Kind = "error"
	KindCompleted Kind = "completed"
)

// Message is one progress event of a run
type Message struct {
	Kind       Kind   `json:"kind"`
	Percent    int    `json:"percent"`
	Text       string `json:"text"`
	OutputPath string `json:"output_path,omitempty"`
}

// Sink receives the messages of a run in order, on the run's goroutine
type Sink interface {
	Send(Message)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Message)

// Send calls f(m)
func (f SinkFunc) Send(m Message) { f(m) }

// Discard drops every message
var Discard Sink = SinkFunc(func(Message) {})

// ChannelSink forwards messages to a channel for consumers on another
// goroutine. Send blocks while the buffer is full and gives up once ctx is
// done, so a consumer that went away never stalls the run.
type ChannelSink struct {
	ctx  context.Context
	ch   chan Message
	once sync.Once
}

// NewChannelSink creates a channel sink with the given buffer size
func NewChannelSink(ctx context.Context, buffer int) *ChannelSink {
	return &ChannelSink{
		ctx: ctx,
		ch:  make(chan Message, buffer),
	}
}

// Send queues m
func (s *ChannelSink) Send(m Message) {
	select {
	case s.ch <- m:
	case <-s.ctx.Done():
	}
}

// Messages returns the receive side of the queue
func (s *ChannelSink) Messages() <-chan Message {
	return s.ch
}

// Close ends the stream. Only the producer calls it, after the run returned.
func (s *ChannelSink) Close() {
	s.once.Do(func() { close(s.ch) })
}

// Recorder keeps every message of a run
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send appends m
func (r *Recorder) Send(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Tee sends each message to every sink in order
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(m Message) {
		for _, s := range sinks {
			if s != nil {
				s.Send(m)
			}
		}
	})
}
