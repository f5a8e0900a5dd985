package agent

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"

	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/logger"
	"codeberg.org/scribe/server/internal/stream"
)

const errMsgInternal = "요청을 처리하는 중 오류가 발생했습니다"

type intentClassifier interface {
	Classify(ctx context.Context, message string, cc ConversationContext) IntentAnalysis
}

type actionPlanner interface {
	Plan(ctx context.Context, intent IntentAnalysis, cc ConversationContext) ActionPlan
}

type planExecutor interface {
	Execute(ctx context.Context, plan ActionPlan, req Request, emit *stream.Emitter) DispatchOutcome
}

// collaborators of the default pipeline
type Dependencies struct {
	Gateways llm.Gateways
	Reader   DocumentReader
	Writer   DocumentWriter
	Sections SectionConfig
}

// orchestrates classification, planning and tool dispatch for one request at
// a time. an Agent holds no per-request state and is safe for concurrent use
type Agent struct {
	classifier intentClassifier
	planner    actionPlanner
	dispatcher planExecutor
	newID      func() string
}

func New(deps Dependencies) *Agent {
	dispatcher := NewDispatcher(
		NewIndexGenerator(deps.Gateways.Generator, deps.Reader),
		NewSectionGenerator(deps.Gateways.Generator, deps.Reader, deps.Sections),
		NewDirectResponder(deps.Gateways.Generator),
		deps.Writer,
	)

	return newAgent(
		NewIntentClassifier(deps.Gateways.Analyzer),
		NewActionPlanner(deps.Gateways.Analyzer),
		dispatcher,
	)
}

func newAgent(classifier intentClassifier, planner actionPlanner, dispatcher planExecutor) *Agent {
	return &Agent{
		classifier: classifier,
		planner:    planner,
		dispatcher: dispatcher,
		newID:      uuid.NewString,
	}
}

// runs the whole pipeline, streaming progress to sink. a Result is always
// returned; Success is false only when a stage panicked or ctx was cancelled
func (a *Agent) ProcessUserRequest(ctx context.Context, req Request, sink stream.Sink) (result Result) {
	requestID := req.ID
	if requestID == "" {
		requestID = a.newID()
	}

	log := logger.FromContext(ctx).With(
		"request_id", requestID,
		"user_id", req.Context.UserID,
		"document_id", req.Context.DocumentID,
	)
	ctx = logger.WithContext(ctx, log)

	emit := stream.NewEmitter(sink)
	state := StateIdle

	transition := func(next State) {
		log.Info("agent state changed", "from", string(state), "to", string(next))
		state = next
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("agent pipeline panicked",
				"state", string(state),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)

			transition(StateFailed)
			emit.Emit(ctx, stream.LabelError, errMsgInternal, nil)

			result = Result{
				Success:      false,
				ActionsTaken: []string{},
				Error:        fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	transition(StateAnalyzingIntent)
	emit.Emit(ctx, stream.LabelProcessing, "요청을 분석하고 있습니다", nil)

	intent := a.classifier.Classify(ctx, req.Message, req.Context)
	log.Info("intent classified",
		"action", string(intent.DocumentAction),
		"confidence", intent.Confidence,
	)

	transition(StatePlanning)
	emit.Emit(ctx, stream.LabelProcessing, "작업 계획을 세우고 있습니다", nil)

	plan := a.planner.Plan(ctx, intent, req.Context)

	transition(StateExecutingPlan)
	emit.Emit(ctx, stream.LabelProcessing, fmt.Sprintf("%d개의 작업을 실행합니다", len(plan.ToolsRequired)), nil)

	outcome := a.dispatcher.Execute(ctx, plan, req, emit)

	if err := ctx.Err(); err != nil {
		transition(StateFailed)

		return Result{
			Success:      false,
			Response:     outcome.Response(),
			ActionsTaken: outcome.ActionsTaken,
			Error:        "request cancelled: " + err.Error(),
		}
	}

	transition(StateDone)
	emit.Emit(ctx, stream.LabelSuccess, "요청 처리를 완료했습니다", nil)

	return Result{
		Success:         true,
		Response:        outcome.Response(),
		ActionsTaken:    outcome.ActionsTaken,
		NextSuggestions: nextSuggestions(outcome, req.Context),
	}
}

func nextSuggestions(outcome DispatchOutcome, cc ConversationContext) []string {
	var (
		suggestions  []string
		indexDone    bool
		documentRun  bool
		failed       int
		anyMutations bool
	)

	for _, run := range outcome.ToolsRun {
		if !run.Tool.Mutating() {
			continue
		}

		anyMutations = true

		switch run.Tool {
		case ToolGenerateIndex:
			indexDone = indexDone || run.Success
		case ToolGenerateDocument:
			if run.Success {
				documentRun = true
				failed += run.Failed
			}
		}
	}

	switch {
	case failed > 0:
		suggestions = append(suggestions, fmt.Sprintf("실패한 %d개 섹션을 다시 생성해 보세요", failed))
	case documentRun:
		suggestions = append(suggestions, "작성된 본문을 검토하고 보완할 부분을 요청해 보세요")
	case indexDone:
		suggestions = append(suggestions, "생성된 목차로 본문 작성을 요청해 보세요")
	}

	if !anyMutations {
		switch {
		case cc.DocumentID == "":
			suggestions = append(suggestions, "문서를 선택하면 목차와 본문 작성을 요청할 수 있습니다")
		case cc.CurrentDocumentState == nil || !cc.CurrentDocumentState.HasIndex:
			suggestions = append(suggestions, "문서 목차 생성을 요청해 보세요")
		}
	}

	return suggestions
}
