package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	err   error
	calls int
}

func (f *failingSink) Send(context.Context, Message) error {
	f.calls++
	return f.err
}

func TestChannelSinkPreservesOrder(t *testing.T) {
	sink := NewChannelSink(0)

	go func() {
		defer sink.Close()

		for _, label := range []Label{LabelProcessing, LabelGenerating, LabelFinal} {
			_ = sink.Send(context.Background(), Message{Label: label}) //nolint:errcheck
		}
	}()

	var labels []Label
	for msg := range sink.Messages() {
		labels = append(labels, msg.Label)
	}

	assert.Equal(t, []Label{LabelProcessing, LabelGenerating, LabelFinal}, labels)
}

func TestChannelSinkRespectsContext(t *testing.T) {
	sink := NewChannelSink(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Send(ctx, Message{Label: LabelProcessing})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecorderByLabel(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()

	require.NoError(t, rec.Send(ctx, Message{Label: LabelProcessing, Content: "a"}))
	require.NoError(t, rec.Send(ctx, Message{Label: LabelError, Content: "b"}))
	require.NoError(t, rec.Send(ctx, Message{Label: LabelError, Content: "c"}))

	assert.Len(t, rec.Messages(), 3)

	errs := rec.ByLabel(LabelError)
	require.Len(t, errs, 2)
	assert.Equal(t, "b", errs[0].Content)
	assert.Equal(t, "c", errs[1].Content)
}

func TestMultiSinkTriesEverySink(t *testing.T) {
	boom := errors.New("boom")
	first := &failingSink{err: boom}
	rec := NewRecorder()

	err := MultiSink{first, nil, rec}.Send(context.Background(), Message{Label: LabelFinal})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.calls)
	assert.Len(t, rec.Messages(), 1)
}

func TestEmitterStampsAndSwallowsErrors(t *testing.T) {
	rec := NewRecorder()
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	e := NewEmitter(MultiSink{&failingSink{err: errors.New("client gone")}, rec})
	e.now = func() time.Time { return fixed }

	e.Progress(context.Background(), LabelGenerating, "generateDocument", "writing", Progress{Current: 2, Total: 5, Section: "## B"})

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Metadata)
	assert.Equal(t, fixed, *msgs[0].Metadata.Timestamp)
	assert.Equal(t, "generateDocument", msgs[0].Metadata.ToolName)
	assert.Equal(t, 2, msgs[0].Metadata.Progress.Current)
	assert.Equal(t, "## B", msgs[0].Metadata.Progress.Section)
}

func TestLabelIsContent(t *testing.T) {
	assert.True(t, LabelIndexContent.IsContent())
	assert.True(t, LabelDocumentContent.IsContent())
	assert.False(t, LabelFinal.IsContent())
}
