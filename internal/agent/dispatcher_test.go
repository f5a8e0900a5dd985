package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/scribe/server/internal/documents"
	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/stream"
)

// answers outline prompts with outline and section prompts like echoSectionGateway
func outlineAndSectionGateway(outline string) *mockGateway {
	return &mockGateway{
		completeFunc: func(_ context.Context, prompt string, opts llm.Options) (string, error) {
			if opts.System == indexSystemPrompt {
				return outline, nil
			}

			heading := targetHeading(prompt)

			return heading + "\n\nbody of " + heading, nil
		},
		streamFunc: func(_ context.Context, _ string, _ llm.Options, onToken func(string)) (string, error) {
			onToken("안녕하세요")
			return "안녕하세요", nil
		},
	}
}

func newTestDispatcher(gw llm.Gateway, store *documents.MemoryStore) *Dispatcher {
	return NewDispatcher(
		NewIndexGenerator(gw, store),
		newTestSectionGenerator(gw, store, quickRetry()),
		NewDirectResponder(gw),
		newTestWriter(store),
	)
}

func labels(msgs []stream.Message) []stream.Label {
	out := make([]stream.Label, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Label
	}

	return out
}

func indexThenDocumentPlan() ActionPlan {
	return ActionPlan{ToolsRequired: []ToolAction{
		{Tool: ToolGenerateDocument, Order: 2},
		{Tool: ToolGenerateIndex, Order: 1},
	}}
}

func TestDispatchIndexThenDocumentUsesSavedOutline(t *testing.T) {
	store := newTestStore(documents.Document{ID: "doc-1", UserID: "alice", Title: "가이드"})
	gw := outlineAndSectionGateway("# 가이드\n## 하나\n## 둘")
	rec := stream.NewRecorder()

	outcome := newTestDispatcher(gw, store).Execute(context.Background(), indexThenDocumentPlan(), Request{
		Message: "문서를 처음부터 작성해줘",
		Context: ConversationContext{UserID: "alice", DocumentID: "doc-1"},
	}, stream.NewEmitter(rec))

	assert.False(t, outcome.Aborted)
	require.Len(t, outcome.ToolsRun, 2)
	assert.Equal(t, ToolGenerateIndex, outcome.ToolsRun[0].Tool)
	assert.True(t, outcome.ToolsRun[0].Success)
	assert.True(t, outcome.ToolsRun[1].Success)
	assert.Len(t, outcome.ActionsTaken, 2)

	// the document step read the outline persisted by the index step
	doc, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "## 하나\n\nbody of ## 하나\n\n## 둘\n\nbody of ## 둘", doc.Content)

	outline, err := store.GetOutline(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "# 가이드\n## 하나\n## 둘", outline.Content)

	assert.Equal(t, []stream.Label{
		stream.LabelGenerating,
		stream.LabelIndexContent,
		stream.LabelSuccess,
		stream.LabelGenerating,
		stream.LabelGenerating,
		stream.LabelDocumentContent,
		stream.LabelGenerating,
		stream.LabelDocumentContent,
		stream.LabelSuccess,
	}, labels(rec.Messages()))

	docMsgs := rec.ByLabel(stream.LabelDocumentContent)
	require.Len(t, docMsgs, 2)
	assert.Equal(t, 2, docMsgs[1].Metadata.Progress.Current)
	assert.Equal(t, 2, docMsgs[1].Metadata.Progress.Total)
	assert.Equal(t, "## 둘", docMsgs[1].Metadata.Progress.Section)
	assert.Equal(t, string(ToolGenerateDocument), docMsgs[1].Metadata.ToolName)

	// nothing collected: the response falls back to the action notes
	assert.Equal(t, strings.Join(outcome.ActionsTaken, "\n"), outcome.Response())
}

func TestDispatchOwnershipMismatchFailsEveryTool(t *testing.T) {
	store := newTestStore(documents.Document{ID: "doc-1", UserID: "alice"})
	require.NoError(t, store.SaveOutline(context.Background(), "doc-1", "# T\n## A"))

	gw := outlineAndSectionGateway("# T\n## A")
	rec := stream.NewRecorder()
	d := newTestDispatcher(gw, store)

	plans := []ActionPlan{
		indexThenDocumentPlan(),
		{ToolsRequired: []ToolAction{{Tool: ToolGenerateIndex, Order: 1}}},
		{ToolsRequired: []ToolAction{{Tool: ToolGenerateDocument, Order: 1}}},
	}

	for _, plan := range plans {
		outcome := d.Execute(context.Background(), plan, Request{
			Message: "write",
			Context: ConversationContext{UserID: "mallory", DocumentID: "doc-1"},
		}, stream.NewEmitter(rec))

		for _, run := range outcome.ToolsRun {
			assert.False(t, run.Success)
		}

		assert.Empty(t, outcome.ActionsTaken)
	}

	assert.NotEmpty(t, rec.ByLabel(stream.LabelError))
	for _, msg := range rec.Messages() {
		assert.False(t, msg.Label.IsContent(), "unexpected %s message", msg.Label)
	}

	// the skipped document step reports the same authorization failure
	for _, msg := range rec.ByLabel(stream.LabelError) {
		assert.Contains(t, msg.Content, errMsgUnauthorized)
	}

	assert.Equal(t, 0, gw.calls())
}

func TestDispatchMissingDocumentIDAbortsIndexPlan(t *testing.T) {
	store := newTestStore()
	gw := outlineAndSectionGateway("# T\n## A")
	rec := stream.NewRecorder()

	plan := ActionPlan{ToolsRequired: []ToolAction{
		{Tool: ToolGenerateIndex, Order: 1},
		{Tool: ToolDirectResponse, Order: 2},
	}}

	outcome := newTestDispatcher(gw, store).Execute(context.Background(), plan, Request{
		Message: "hi",
		Context: ConversationContext{UserID: "alice"},
	}, stream.NewEmitter(rec))

	assert.True(t, outcome.Aborted)
	require.Len(t, outcome.ToolsRun, 1)
	assert.Empty(t, rec.ByLabel(stream.LabelFinal))
	assert.Contains(t, outcome.Response(), errMsgMissingDocumentID)
}

func TestDispatchMissingDocumentIDStopsOnlyDocumentTool(t *testing.T) {
	store := newTestStore()
	gw := outlineAndSectionGateway("# T\n## A")
	rec := stream.NewRecorder()

	plan := ActionPlan{ToolsRequired: []ToolAction{
		{Tool: ToolGenerateDocument, Order: 1},
		{Tool: ToolDirectResponse, Order: 2},
	}}

	outcome := newTestDispatcher(gw, store).Execute(context.Background(), plan, Request{
		Message: "hi",
		Context: ConversationContext{UserID: "alice"},
	}, stream.NewEmitter(rec))

	assert.False(t, outcome.Aborted)
	require.Len(t, outcome.ToolsRun, 2)
	assert.False(t, outcome.ToolsRun[0].Success)
	assert.True(t, outcome.ToolsRun[1].Success)

	final := rec.ByLabel(stream.LabelFinal)
	require.Len(t, final, 1)
	assert.Equal(t, "안녕하세요", final[0].Content)

	// errors and answers are both collected
	require.Len(t, outcome.Responses, 2)
	assert.Equal(t, strings.Join(outcome.Responses, "\n\n"), outcome.Response())
}

func TestDispatchSkipsDocumentAfterFailedIndex(t *testing.T) {
	store := newTestStore(documents.Document{ID: "doc-1", UserID: "alice"})
	require.NoError(t, store.SaveOutline(context.Background(), "doc-1", "# Old\n## Stale"))

	gw := outlineAndSectionGateway("no headings at all")
	rec := stream.NewRecorder()

	outcome := newTestDispatcher(gw, store).Execute(context.Background(), indexThenDocumentPlan(), Request{
		Message: "write",
		Context: ConversationContext{UserID: "alice", DocumentID: "doc-1"},
	}, stream.NewEmitter(rec))

	require.Len(t, outcome.ToolsRun, 2)
	assert.False(t, outcome.ToolsRun[0].Success)
	assert.False(t, outcome.ToolsRun[1].Success)
	assert.Empty(t, rec.ByLabel(stream.LabelDocumentContent))

	errs := rec.ByLabel(stream.LabelError)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Content, "no valid outline found")
	assert.True(t, strings.HasPrefix(errs[1].Content, errMsgIndexPrerequisite))
	assert.Contains(t, errs[1].Content, "no valid outline found")

	// only the index prompt reached the model
	assert.Equal(t, 1, gw.calls())
}

type failingOutlineStore struct {
	*documents.MemoryStore
}

func (s failingOutlineStore) SaveOutline(context.Context, string, string) error {
	return errors.New("db unavailable")
}

func TestDispatchOutlinePersistFailureIsReported(t *testing.T) {
	mem := newTestStore(documents.Document{ID: "doc-1", UserID: "alice"})
	gw := outlineAndSectionGateway("# T\n## A")
	rec := stream.NewRecorder()

	d := NewDispatcher(
		NewIndexGenerator(gw, mem),
		newTestSectionGenerator(gw, mem, quickRetry()),
		NewDirectResponder(gw),
		documents.NewPersister(failingOutlineStore{mem}, 0),
	)

	outcome := d.Execute(context.Background(), indexThenDocumentPlan(), Request{
		Message: "write",
		Context: ConversationContext{UserID: "alice", DocumentID: "doc-1"},
	}, stream.NewEmitter(rec))

	require.Len(t, outcome.ToolsRun, 2)
	assert.False(t, outcome.ToolsRun[0].Success)
	assert.False(t, outcome.ToolsRun[1].Success)

	errs := rec.ByLabel(stream.LabelError)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Content, "db unavailable")
}

func TestDispatchDirectResponseStreamsTokens(t *testing.T) {
	gw := streamingGateway("Go는 간결한 언어입니다")
	rec := stream.NewRecorder()

	plan := ActionPlan{ToolsRequired: []ToolAction{{Tool: ToolDirectResponse, Order: 1, Reasoning: "question"}}}

	outcome := newTestDispatcher(gw, newTestStore()).Execute(context.Background(), plan, Request{
		Message: "Go가 뭐야?",
		Context: ConversationContext{UserID: "alice"},
	}, stream.NewEmitter(rec))

	tokens := rec.ByLabel(stream.LabelGenerating)
	require.Len(t, tokens, 3)

	var streamed strings.Builder
	for _, tok := range tokens {
		assert.Equal(t, string(ToolDirectResponse), tok.Metadata.ToolName)
		streamed.WriteString(tok.Content)
	}

	assert.Equal(t, "Go는 간결한 언어입니다", streamed.String())
	assert.Equal(t, stream.LabelProcessing, rec.Messages()[0].Label)
	assert.Equal(t, "Go는 간결한 언어입니다", outcome.Response())
}

func TestDirectResponderFallsBackToApology(t *testing.T) {
	gw := &mockGateway{
		streamFunc: func(context.Context, string, llm.Options, func(string)) (string, error) {
			return "", llm.ErrCircuitOpen
		},
	}

	out := NewDirectResponder(gw).Respond(context.Background(), "hi", ConversationContext{}, "", nil)
	assert.Equal(t, FallbackApology, out)
}

func TestDirectResponderUsesConversationTail(t *testing.T) {
	gw := streamingGateway("ok")

	NewDirectResponder(gw).Respond(context.Background(), "그리고?", ConversationContext{
		ConversationHistory: []Message{
			{Role: "user", Content: "first question"},
			{Role: "assistant", Content: "first answer"},
			{Role: "user", Content: "second question"},
			{Role: "assistant", Content: "second answer"},
		},
	}, "", nil)

	require.Equal(t, 1, gw.calls())
	assert.NotContains(t, gw.prompts[0], "first question")
	assert.NotContains(t, gw.prompts[0], "first answer")
	assert.Contains(t, gw.prompts[0], "second question")
	assert.Contains(t, gw.prompts[0], "second answer")
}
