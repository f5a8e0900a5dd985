package stream

import (
	"context"
	"sync"
)

// receives the messages of one request in emission order
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// delivers messages over a channel. Send blocks until the reader takes the
// message or ctx is done
type ChannelSink struct {
	ch chan Message
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Message, buffer)}
}

func (s *ChannelSink) Send(ctx context.Context, msg Message) error {
	select {
	case s.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Messages() <-chan Message {
	return s.ch
}

// must be called by the producer once it is done sending
func (s *ChannelSink) Close() {
	close(s.ch)
}

// keeps every message in memory
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)

	return nil
}

// returns a copy of the recorded messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.messages))
	copy(out, r.messages)

	return out
}

// returns the recorded messages with the given label
func (r *Recorder) ByLabel(label Label) []Message {
	var out []Message

	for _, msg := range r.Messages() {
		if msg.Label == label {
			out = append(out, msg)
		}
	}

	return out
}

// fans a message out to several sinks
type MultiSink []Sink

// tries every sink and returns the first error
func (m MultiSink) Send(ctx context.Context, msg Message) error {
	var firstErr error

	for _, sink := range m {
		if sink == nil {
			continue
		}

		if err := sink.Send(ctx, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// discards everything
type Discard struct{}

func (Discard) Send(context.Context, Message) error {
	return nil
}
