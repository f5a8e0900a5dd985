package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/scribe/server/internal/documents"
	"codeberg.org/scribe/server/internal/llm"
)

const threeSectionOutline = "# 가이드\n## 소개\n### 배경\n## 본론\n## 결론"

func newOutlinedStore(t *testing.T, outline string) *documents.MemoryStore {
	t.Helper()

	store := newTestStore(documents.Document{ID: "doc-1", UserID: "alice", Title: "가이드", Content: "기존 서문"})
	require.NoError(t, store.SaveOutline(context.Background(), "doc-1", outline))

	return store
}

// answers each section prompt with "<heading>\n\nbody of <heading>"
func echoSectionGateway(fail func(heading string) error) *mockGateway {
	return &mockGateway{
		completeFunc: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
			heading := targetHeading(prompt)
			if fail != nil {
				if err := fail(heading); err != nil {
					return "", err
				}
			}

			return "<section>\n" + heading + "\n\nbody of " + heading, nil
		},
	}
}

// extracts the heading from the SECTION TO WRITE block
func targetHeading(prompt string) string {
	_, after, found := strings.Cut(prompt, "SECTION TO WRITE\n"+promptRule)
	if !found {
		return ""
	}

	heading, _, _ := strings.Cut(after, "\n")

	return heading
}

func quickRetry() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Second}
}

func TestSectionsRequireOutline(t *testing.T) {
	store := newTestStore(documents.Document{ID: "doc-1", UserID: "alice"})
	gw := echoSectionGateway(nil)

	res := newTestSectionGenerator(gw, store, quickRetry()).Generate(context.Background(), SectionRequest{
		DocumentID: "doc-1",
		UserID:     "alice",
	}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "no outline found: generate the index first", res.Error)
	assert.Equal(t, 0, gw.calls())
}

func TestSectionsRequireTopLevelSections(t *testing.T) {
	store := newOutlinedStore(t, "# 제목만 있음\n### 깊은 제목")

	res := newTestSectionGenerator(echoSectionGateway(nil), store, quickRetry()).Generate(context.Background(), SectionRequest{
		DocumentID: "doc-1",
		UserID:     "alice",
	}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "outline has no top-level sections", res.Error)
}

func TestSectionsRejectOtherUsers(t *testing.T) {
	store := newOutlinedStore(t, threeSectionOutline)
	gw := echoSectionGateway(nil)

	res := newTestSectionGenerator(gw, store, quickRetry()).Generate(context.Background(), SectionRequest{
		DocumentID: "doc-1",
		UserID:     "mallory",
	}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, errMsgUnauthorized, res.Error)
	assert.Equal(t, 0, gw.calls())
}

func TestSectionsGenerateInOrderWithAccumulation(t *testing.T) {
	store := newOutlinedStore(t, threeSectionOutline)
	gw := echoSectionGateway(nil)
	gen := newTestSectionGenerator(gw, store, quickRetry())
	gen.config.PacingDelay = 5 * time.Millisecond

	var waits []time.Duration
	gen.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	var events []SectionProgress
	res := gen.Generate(context.Background(), SectionRequest{
		DocumentID:   "doc-1",
		UserID:       "alice",
		UserRequest:  "친절하게",
		ExtraContext: "초보자 대상",
	}, func(p SectionProgress) {
		events = append(events, p)
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{
		"## 소개\n\nbody of ## 소개",
		"## 본론\n\nbody of ## 본론",
		"## 결론\n\nbody of ## 결론",
	}, res.Data.Sections)
	assert.Equal(t, strings.Join(res.Data.Sections, "\n\n"), res.Data.Content)
	assert.Zero(t, res.Data.Failed)

	// pacing before every section but the first
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, waits)

	// each prompt sees the existing content and every earlier section
	require.Equal(t, 3, gw.calls())
	assert.Contains(t, gw.prompts[0], "기존 서문")
	assert.Contains(t, gw.prompts[0], "초보자 대상")
	assert.Contains(t, gw.prompts[0], "친절하게")
	assert.Contains(t, gw.prompts[2], "body of ## 소개")
	assert.Contains(t, gw.prompts[2], "body of ## 본론")
	assert.NotContains(t, gw.prompts[1], "body of ## 본론")

	require.Len(t, events, 6)
	assert.Equal(t, SectionStarted, events[0].Phase)
	assert.Equal(t, 1, events[0].Current)
	assert.Equal(t, 3, events[0].Total)
	assert.Equal(t, "## 소개", events[0].Section)
	assert.Equal(t, SectionCompleted, events[5].Phase)
	assert.Equal(t, "## 결론\n\nbody of ## 결론", events[5].Text)
}

func TestSectionsIsolateFailures(t *testing.T) {
	store := newOutlinedStore(t, threeSectionOutline)
	gw := echoSectionGateway(func(heading string) error {
		if heading == "## 본론" {
			return errors.New("model exploded")
		}

		return nil
	})

	var failedEvents int
	res := newTestSectionGenerator(gw, store, quickRetry()).Generate(context.Background(), SectionRequest{
		DocumentID: "doc-1",
		UserID:     "alice",
	}, func(p SectionProgress) {
		if p.Phase == SectionCompleted && p.Failed {
			failedEvents++
		}
	})

	require.True(t, res.Success)
	require.Len(t, res.Data.Sections, 3)
	assert.Equal(t, 1, res.Data.Failed)
	assert.Equal(t, 1, failedEvents)

	placeholders := 0
	for _, section := range res.Data.Sections {
		if HasSectionErrors(section) {
			placeholders++
		}
	}

	assert.Equal(t, 1, placeholders)
	assert.Equal(t, "## 본론\n\n> ⚠️ 섹션 생성 실패: model exploded", res.Data.Sections[1])
	assert.Equal(t, 1, strings.Count(res.Data.Content, SectionErrorMarker))

	// a non rate-limit error is not retried
	assert.Equal(t, 3, gw.calls())
}

func TestSectionsRetryRateLimits(t *testing.T) {
	store := newOutlinedStore(t, "# T\n## 유일한 섹션")

	attempts := 0
	gw := echoSectionGateway(func(string) error {
		attempts++
		if attempts <= 2 {
			return &llm.StatusError{Provider: llm.ProviderAnthropic, StatusCode: http.StatusTooManyRequests, Body: "slow down"}
		}

		return nil
	})

	var delays []time.Duration
	retry := quickRetry()
	retry.OnRetry = func(_ int, d time.Duration, err error) {
		assert.True(t, llm.IsRateLimited(err))
		delays = append(delays, d)
	}

	res := newTestSectionGenerator(gw, store, retry).Generate(context.Background(), SectionRequest{
		DocumentID: "doc-1",
		UserID:     "alice",
	}, nil)

	require.True(t, res.Success)
	assert.Zero(t, res.Data.Failed)
	assert.Equal(t, "## 유일한 섹션\n\nbody of ## 유일한 섹션", res.Data.Content)
	assert.Equal(t, 3, gw.calls())
	require.Len(t, delays, 2)
	assert.Less(t, delays[0], delays[1])
}

func TestSectionsExhaustedRetriesBecomePlaceholder(t *testing.T) {
	store := newOutlinedStore(t, "# T\n## A\n## B")
	gw := echoSectionGateway(func(heading string) error {
		if heading == "## A" {
			return llm.ErrRateLimited
		}

		return nil
	})

	res := newTestSectionGenerator(gw, store, quickRetry()).Generate(context.Background(), SectionRequest{
		DocumentID: "doc-1",
		UserID:     "alice",
	}, nil)

	require.True(t, res.Success)
	assert.Equal(t, 1, res.Data.Failed)
	assert.True(t, HasSectionErrors(res.Data.Sections[0]))
	assert.False(t, HasSectionErrors(res.Data.Sections[1]))
	assert.Equal(t, 4, gw.calls()) // 3 attempts for A, 1 for B
}

func TestSectionsEmptyOutputIsFailure(t *testing.T) {
	store := newOutlinedStore(t, "# T\n## A")

	res := newTestSectionGenerator(staticGateway("<meta>\n<empty>"), store, quickRetry()).Generate(context.Background(), SectionRequest{
		DocumentID: "doc-1",
		UserID:     "alice",
	}, nil)

	require.True(t, res.Success)
	assert.Equal(t, 1, res.Data.Failed)
	assert.Contains(t, res.Data.Content, errEmptySection.Error())
}
