package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"codeberg.org/scribe/server/internal/stream"
)

const (
	defaultEndpoint = "http://localhost:8080"
	minWrapWidth    = 20
)

// reads SCRIBE_ENV, SCRIBE_API_ENDPOINT, SCRIBE_TOKEN and SCRIBE_DOCUMENT_ID
func ConfigFromEnv() Config {
	cfg := Config{
		Mode:       os.Getenv("SCRIBE_ENV"),
		Endpoint:   os.Getenv("SCRIBE_API_ENDPOINT"),
		Token:      os.Getenv("SCRIBE_TOKEN"),
		DocumentID: os.Getenv("SCRIBE_DOCUMENT_ID"),
	}

	if cfg.Mode == "" {
		cfg.Mode = "development"
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}

	return cfg
}

// nil when glamour cannot build a renderer; callers fall back to plain text
func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(minWrapWidth, width)),
	)
	if err != nil {
		return nil
	}

	return r
}

func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md + "\n"
	}

	out, err := r.Render(md)
	if err != nil {
		return md + "\n"
	}

	return out
}

func progressLabel(p *stream.Progress) string {
	if p == nil || p.Total == 0 {
		return ""
	}

	return fmt.Sprintf(" [%d/%d]", p.Current, p.Total)
}

func withTool(tool, text string) string {
	if tool == "" {
		return text
	}

	return tool + ": " + text
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}

	return s
}
