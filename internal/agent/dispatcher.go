package agent

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/scribe/server/internal/documents"
	"codeberg.org/scribe/server/internal/logger"
	"codeberg.org/scribe/server/internal/stream"
)

const (
	errMsgMissingDocumentID = "documentId is required for this tool"
	errMsgIndexPrerequisite = "skipped: outline generation failed earlier in this plan"
)

type indexTool interface {
	Generate(ctx context.Context, documentID, userRequest, userID string) ToolResult[IndexData]
}

type sectionTool interface {
	Generate(ctx context.Context, req SectionRequest, progress ProgressFunc) ToolResult[DocumentData]
}

type responderTool interface {
	Respond(ctx context.Context, message string, cc ConversationContext, reasoning string, onToken func(string)) string
}

// runs the tools of a plan in order and streams their output
type Dispatcher struct {
	index     indexTool
	sections  sectionTool
	responder responderTool
	writer    DocumentWriter
}

func NewDispatcher(index indexTool, sections sectionTool, responder responderTool, writer DocumentWriter) *Dispatcher {
	return &Dispatcher{
		index:     index,
		sections:  sections,
		responder: responder,
		writer:    writer,
	}
}

// per-plan bookkeeping
type dispatchRun struct {
	req         Request
	emit        *stream.Emitter
	outcome     DispatchOutcome
	indexErr    string // why generateIndex failed earlier in this plan
}

func (r *dispatchRun) record(tool ToolName, success bool, failed int) {
	r.outcome.ToolsRun = append(r.outcome.ToolsRun, ToolRun{Tool: tool, Success: success, Failed: failed})
}

// reports a tool failure on the stream and in the collected responses
func (r *dispatchRun) toolError(ctx context.Context, tool ToolName, msg string) {
	r.emit.Tool(ctx, stream.LabelError, string(tool), msg)
	r.outcome.Responses = append(r.outcome.Responses, fmt.Sprintf("%s 실패: %s", tool, msg))
	r.record(tool, false, 0)
}

func (d *Dispatcher) Execute(ctx context.Context, plan ActionPlan, req Request, emit *stream.Emitter) DispatchOutcome {
	run := &dispatchRun{
		req:  req,
		emit: emit,
		outcome: DispatchOutcome{
			ActionsTaken: []string{},
			Responses:    []string{},
		},
	}

	log := logger.FromContext(ctx)

	for _, action := range orderedTools(plan) {
		if err := ctx.Err(); err != nil {
			log.Warn("plan execution cancelled", "error", err)
			run.outcome.Aborted = true

			break
		}

		log.Info("executing tool", "tool", string(action.Tool), "order", action.Order)

		var proceed bool
		switch action.Tool {
		case ToolGenerateIndex:
			proceed = d.runIndex(ctx, run, action)
		case ToolGenerateDocument:
			proceed = d.runDocument(ctx, run, action)
		case ToolDirectResponse:
			proceed = d.runDirectResponse(ctx, run, action)
		default:
			run.toolError(ctx, action.Tool, fmt.Sprintf("unknown tool %q", action.Tool))
			proceed = true
		}

		if !proceed {
			run.outcome.Aborted = true
			break
		}
	}

	return run.outcome
}

// returns false when the rest of the plan must be skipped
func (d *Dispatcher) runIndex(ctx context.Context, run *dispatchRun, action ToolAction) bool {
	tool := string(ToolGenerateIndex)
	docID := run.req.Context.DocumentID

	run.emit.Tool(ctx, stream.LabelGenerating, tool, "문서 목차를 생성하고 있습니다")

	if docID == "" {
		run.toolError(ctx, ToolGenerateIndex, errMsgMissingDocumentID)
		run.indexErr = errMsgMissingDocumentID

		return false
	}

	res := d.index.Generate(ctx, docID, userRequest(action, run.req), run.req.Context.UserID)
	if !res.Success {
		run.toolError(ctx, ToolGenerateIndex, res.Error)
		run.indexErr = res.Error

		return true
	}

	outline := res.Data.GeneratedIndex
	run.emit.Tool(ctx, stream.LabelIndexContent, tool, outline)

	saved := documents.Await(ctx, d.writer.SaveOutline(ctx, docID, outline))
	if saved.Err != nil {
		logger.FromContext(ctx).Error("failed to save outline", "error", saved.Err)
		run.indexErr = "failed to save outline: " + saved.Err.Error()
		run.toolError(ctx, ToolGenerateIndex, run.indexErr)

		return true
	}

	sections := len(ParseSections(outline))
	run.emit.Tool(ctx, stream.LabelSuccess, tool, fmt.Sprintf("목차를 생성했습니다 (%d개 섹션)", sections))
	run.outcome.ActionsTaken = append(run.outcome.ActionsTaken, fmt.Sprintf("문서 목차 생성 (%d개 섹션)", sections))
	run.record(ToolGenerateIndex, true, 0)

	return true
}

func (d *Dispatcher) runDocument(ctx context.Context, run *dispatchRun, action ToolAction) bool {
	tool := string(ToolGenerateDocument)
	docID := run.req.Context.DocumentID

	run.emit.Tool(ctx, stream.LabelGenerating, tool, "문서 본문을 생성하고 있습니다")

	if docID == "" {
		run.toolError(ctx, ToolGenerateDocument, errMsgMissingDocumentID)
		return true
	}

	if run.indexErr != "" {
		run.toolError(ctx, ToolGenerateDocument, errMsgIndexPrerequisite+": "+run.indexErr)
		return true
	}

	progress := func(p SectionProgress) {
		pos := stream.Progress{Current: p.Current, Total: p.Total, Section: p.Section}

		switch p.Phase {
		case SectionStarted:
			run.emit.Progress(ctx, stream.LabelGenerating, tool,
				fmt.Sprintf("섹션 작성 중 (%d/%d): %s", p.Current, p.Total, strings.TrimPrefix(p.Section, "## ")), pos)
		case SectionCompleted:
			run.emit.Progress(ctx, stream.LabelDocumentContent, tool, p.Text, pos)
		}
	}

	res := d.sections.Generate(ctx, SectionRequest{
		DocumentID:   docID,
		UserID:       run.req.Context.UserID,
		UserRequest:  userRequest(action, run.req),
		ExtraContext: stringParam(action, "extraContext"),
	}, progress)
	if !res.Success {
		run.toolError(ctx, ToolGenerateDocument, res.Error)
		return true
	}

	data := res.Data

	saved := documents.Await(ctx, d.writer.SaveContent(ctx, docID, data.Content))
	if saved.Err != nil {
		logger.FromContext(ctx).Error("failed to save document content", "error", saved.Err)
		run.toolError(ctx, ToolGenerateDocument, "failed to save document content: "+saved.Err.Error())

		return true
	}

	summary := fmt.Sprintf("문서 본문을 생성했습니다 (%d개 섹션)", len(data.Sections))
	if data.Failed > 0 {
		summary = fmt.Sprintf("문서 본문을 생성했습니다 (%d개 섹션, %d개 실패)", len(data.Sections), data.Failed)
	}

	run.emit.Tool(ctx, stream.LabelSuccess, tool, summary)
	run.outcome.ActionsTaken = append(run.outcome.ActionsTaken, summary)
	run.record(ToolGenerateDocument, true, data.Failed)

	return true
}

func (d *Dispatcher) runDirectResponse(ctx context.Context, run *dispatchRun, action ToolAction) bool {
	tool := string(ToolDirectResponse)

	run.emit.Tool(ctx, stream.LabelProcessing, tool, "답변을 준비하고 있습니다")

	text := d.responder.Respond(ctx, run.req.Message, run.req.Context, action.Reasoning, func(token string) {
		run.emit.Tool(ctx, stream.LabelGenerating, tool, token)
	})

	run.emit.Tool(ctx, stream.LabelFinal, tool, text)
	run.outcome.Responses = append(run.outcome.Responses, text)
	run.outcome.ActionsTaken = append(run.outcome.ActionsTaken, "대화형 답변 제공")
	run.record(ToolDirectResponse, true, 0)

	return true
}

// the planner may narrow the request per tool through parameters.userRequest
func userRequest(action ToolAction, req Request) string {
	if v := stringParam(action, "userRequest"); v != "" {
		return v
	}

	return req.Message
}

func stringParam(action ToolAction, key string) string {
	if action.Parameters == nil {
		return ""
	}

	v, _ := action.Parameters[key].(string)

	return strings.TrimSpace(v)
}

// the synchronous response: collected answers and errors, or the action
// notes when nothing was collected
func (o DispatchOutcome) Response() string {
	if len(o.Responses) > 0 {
		return strings.Join(o.Responses, "\n\n")
	}

	return strings.Join(o.ActionsTaken, "\n")
}
