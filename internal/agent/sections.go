package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/scribe/server/internal/llm"
	"codeberg.org/scribe/server/internal/logger"
)

// prefix of the placeholder written in place of a section that failed
const SectionErrorMarker = "> ⚠️ 섹션 생성 실패:"

const (
	errMsgNoOutline        = "no outline found: generate the index first"
	errMsgNoOutlineSection = "outline has no top-level sections"

	defaultPacingDelay = time.Second
)

var errEmptySection = errors.New("model returned an empty section")

type SectionConfig struct {
	PacingDelay time.Duration   // wait between consecutive section calls
	Retry       llm.RetryPolicy // per-section retry on rate limits
}

func DefaultSectionConfig() SectionConfig {
	return SectionConfig{
		PacingDelay: defaultPacingDelay,
		Retry:       llm.DefaultRetryPolicy(),
	}
}

// writes a document body section by section from its saved outline
type SectionGenerator struct {
	gateway llm.Gateway
	store   DocumentReader
	config  SectionConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewSectionGenerator(gateway llm.Gateway, store DocumentReader, config SectionConfig) *SectionGenerator {
	if config.PacingDelay < 0 {
		config.PacingDelay = 0
	}

	if config.Retry.MaxAttempts < 1 {
		config.Retry.MaxAttempts = 1
	}

	return &SectionGenerator{
		gateway: gateway,
		store:   store,
		config:  config,
		sleep:   sleepContext,
	}
}

// per-call batch state
type sectionRun struct {
	title       string
	outline     string
	accumulated strings.Builder
	sections    []string
	failed      int
	current     int
	total       int
}

func (r *sectionRun) append(text string) {
	if r.accumulated.Len() > 0 {
		r.accumulated.WriteString("\n\n")
	}

	r.accumulated.WriteString(text)
	r.sections = append(r.sections, text)
}

// always succeeds once the outline is loaded: failed sections are replaced by
// a placeholder and the batch continues
func (g *SectionGenerator) Generate(ctx context.Context, req SectionRequest, progress ProgressFunc) ToolResult[DocumentData] {
	if progress == nil {
		progress = func(SectionProgress) {}
	}

	doc, err := loadOwnedDocument(ctx, g.store, req.DocumentID, req.UserID)
	if err != nil {
		return fail[DocumentData](err.Error())
	}

	outline, err := loadOutline(ctx, g.store, req.DocumentID)
	if err != nil {
		return fail[DocumentData](err.Error())
	}

	if strings.TrimSpace(outline) == "" {
		return fail[DocumentData](errMsgNoOutline)
	}

	headings := ParseSections(outline)
	if len(headings) == 0 {
		return fail[DocumentData](errMsgNoOutlineSection)
	}

	run := &sectionRun{
		title:   doc.Title,
		outline: outline,
		total:   len(headings),
	}
	run.accumulated.WriteString(strings.TrimSpace(doc.Content))

	log := logger.FromContext(ctx).With("document_id", req.DocumentID, "sections", run.total)

	for i, heading := range headings {
		run.current = i + 1

		progress(SectionProgress{
			Phase:   SectionStarted,
			Current: run.current,
			Total:   run.total,
			Section: heading,
		})

		text, err := g.generateSection(ctx, run, heading, req, i > 0)
		failed := err != nil

		if failed {
			log.Warn("section generation failed",
				"section", heading,
				"index", run.current,
				"error", err,
			)

			text = sectionPlaceholder(heading, err)
			run.failed++
		}

		run.append(text)

		progress(SectionProgress{
			Phase:   SectionCompleted,
			Current: run.current,
			Total:   run.total,
			Section: heading,
			Text:    text,
			Failed:  failed,
		})
	}

	log.Info("section batch finished", "failed", run.failed)

	return ok(DocumentData{
		Content:  strings.Join(run.sections, "\n\n"),
		Sections: run.sections,
		Failed:   run.failed,
	})
}

func (g *SectionGenerator) generateSection(ctx context.Context, run *sectionRun, heading string, req SectionRequest, paced bool) (string, error) {
	if paced && g.config.PacingDelay > 0 {
		if err := g.sleep(ctx, g.config.PacingDelay); err != nil {
			return "", err
		}
	}

	prompt := buildSectionPrompt(sectionPromptInput{
		Title:        run.title,
		Accumulated:  run.accumulated.String(),
		Outline:      run.outline,
		Heading:      heading,
		UserRequest:  req.UserRequest,
		ExtraContext: req.ExtraContext,
	})

	policy := g.config.Retry
	log := logger.FromContext(ctx)
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Info("section rate limited, retrying",
			"section", heading,
			"attempt", attempt,
			"delay", delay.String(),
		)

		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	raw, err := llm.Retry(ctx, policy, func(ctx context.Context) (string, error) {
		return g.gateway.Complete(ctx, prompt, llm.Options{System: sectionSystemPrompt})
	})
	if err != nil {
		return "", err
	}

	text := cleanSection(raw)
	if text == "" {
		return "", errEmptySection
	}

	return text, nil
}

func sectionPlaceholder(heading string, err error) string {
	return fmt.Sprintf("%s\n\n%s %s", heading, SectionErrorMarker, err.Error())
}

// true when text contains a failed-section placeholder
func HasSectionErrors(text string) bool {
	return strings.Contains(text, SectionErrorMarker)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
