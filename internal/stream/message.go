package stream

import "time"

// classifies a streamed message
type Label string

const (
	LabelProcessing      Label = "PROCESSING"
	LabelGenerating      Label = "GENERATING"
	LabelIndexContent    Label = "INDEX_CONTENT"
	LabelDocumentContent Label = "DOCUMENT_CONTENT"
	LabelSuccess         Label = "SUCCESS"
	LabelError           Label = "ERROR"
	LabelFinal           Label = "FINAL"
)

// one progress or content update sent to the caller while a request runs
type Message struct {
	Label    Label     `json:"label"`
	Content  string    `json:"content"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type Metadata struct {
	Progress  *Progress  `json:"progress,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	ToolName  string     `json:"toolName,omitempty"`
}

// position inside a section batch
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Section string `json:"section,omitempty"`
}

// true for labels that carry generated document text
func (l Label) IsContent() bool {
	return l == LabelIndexContent || l == LabelDocumentContent
}
