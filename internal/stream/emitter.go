package stream

import (
	"context"
	"time"

	"codeberg.org/scribe/server/internal/logger"
)

// writes stamped messages to a sink. sink failures are logged and dropped so
// a disconnected caller never interrupts a run
type Emitter struct {
	sink Sink
	now  func() time.Time
}

func NewEmitter(sink Sink) *Emitter {
	if sink == nil {
		sink = Discard{}
	}

	return &Emitter{sink: sink, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, label Label, content string, meta *Metadata) {
	if meta == nil {
		meta = &Metadata{}
	}

	if meta.Timestamp == nil {
		ts := e.now().UTC()
		meta.Timestamp = &ts
	}

	msg := Message{Label: label, Content: content, Metadata: meta}

	if err := e.sink.Send(ctx, msg); err != nil {
		logger.FromContext(ctx).Warn("failed to deliver stream message",
			"label", string(label),
			"error", err,
		)
	}
}

// emits a message tagged with the tool that produced it
func (e *Emitter) Tool(ctx context.Context, label Label, tool, content string) {
	e.Emit(ctx, label, content, &Metadata{ToolName: tool})
}

// emits a message carrying section progress
func (e *Emitter) Progress(ctx context.Context, label Label, tool, content string, progress Progress) {
	e.Emit(ctx, label, content, &Metadata{ToolName: tool, Progress: &progress})
}
