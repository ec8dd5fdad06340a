package model

// BaselineStatus is the ingestion backend's verdict on a source.
type BaselineStatus string

const (
	BaselineOK                  BaselineStatus = "ok"
	BaselineInsufficientContent BaselineStatus = "insufficient_content"
	BaselineError               BaselineStatus = "error"
)

// SourceType is the kind of source submitted for ingestion.
type SourceType string

const (
	SourceURL     SourceType = "URL"
	SourceYouTube SourceType = "YouTube"
	SourcePaste   SourceType = "Paste"
	SourceManual  SourceType = "Manual Entry"
)

// ParseSourceType maps the short CLI/API spellings onto a SourceType.
func ParseSourceType(s string) (SourceType, bool) {
	switch s {
	case "url", "URL":
		return SourceURL, true
	case "youtube", "YouTube":
		return SourceYouTube, true
	case "paste", "text", "Paste":
		return SourcePaste, true
	case "manual", "Manual Entry":
		return SourceManual, true
	default:
		return "", false
	}
}

// Provenance records where a piece of baseline content came from.
type Provenance struct {
	SourceType  string `json:"source_type,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	RetrievedAt string `json:"retrieved_at,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Baseline is the normalized ingested source used as generation input.
// A new ingestion replaces it wholesale.
type Baseline struct {
	Content      string         `json:"content"`
	Summary      string         `json:"summary"`
	KeyPoints    []string       `json:"key_points"`
	Themes       []string       `json:"themes"`
	Provenance   []Provenance   `json:"provenance"`
	Status       BaselineStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// SourceLabel returns the first provenance source type, or "content".
func (b *Baseline) SourceLabel() string {
	if b != nil && len(b.Provenance) > 0 && b.Provenance[0].SourceType != "" {
		return b.Provenance[0].SourceType
	}
	return "content"
}

// SummaryLength is how much of the content becomes the baseline summary.
const SummaryLength = 500

// Summarize returns the leading SummaryLength runes of content.
func Summarize(content string) string {
	r := []rune(content)
	if len(r) <= SummaryLength {
		return content
	}
	return string(r[:SummaryLength])
}

// Preview is a URL extraction held for confirmation before ingestion.
type Preview struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Length  int    `json:"length"`
}
