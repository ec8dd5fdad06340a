package model

import (
	"fmt"
	"strings"
	"time"
)

// OutputType identifies one kind of derived artifact.
type OutputType string

const (
	OutputNotes       OutputType = "NOTES"
	OutputReport      OutputType = "REPORT"
	OutputAudioReport OutputType = "AUDIO_REPORT"
	OutputInfographic OutputType = "INFOGRAPHIC"
	OutputSlideDeck   OutputType = "SLIDEDECK"
	OutputPodcast     OutputType = "PODCAST"
)

// OutputTypes lists every selectable output in a stable order.
var OutputTypes = []OutputType{
	OutputPodcast,
	OutputAudioReport,
	OutputNotes,
	OutputInfographic,
	OutputSlideDeck,
	OutputReport,
}

// Label returns the upper-case label used in diagnostics, e.g. "AUDIO REPORT".
func (t OutputType) Label() string {
	switch t {
	case OutputAudioReport:
		return "AUDIO REPORT"
	case OutputSlideDeck:
		return "SLIDE DECK"
	default:
		return string(t)
	}
}

// DisplayName returns the human-facing name, e.g. "Slide Deck".
func (t OutputType) DisplayName() string {
	switch t {
	case OutputNotes:
		return "Notes"
	case OutputReport:
		return "Report"
	case OutputAudioReport:
		return "Audio Report"
	case OutputInfographic:
		return "Infographic"
	case OutputSlideDeck:
		return "Slide Deck"
	case OutputPodcast:
		return "Podcast"
	default:
		return string(t)
	}
}

// IDPrefix is the prefix used when minting output ids.
func (t OutputType) IDPrefix() string {
	return strings.ReplaceAll(strings.ToLower(t.Label()), " ", "-")
}

// DerivedFromReport reports whether the output wraps an existing report.
func (t OutputType) DerivedFromReport() bool {
	switch t {
	case OutputAudioReport, OutputInfographic, OutputSlideDeck, OutputPodcast:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known output type.
func (t OutputType) Valid() bool {
	for _, known := range OutputTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseOutputType accepts the canonical name or a lower/kebab/space variant
// ("slide-deck", "audio report").
func ParseOutputType(s string) (OutputType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "SLIDE_DECK" {
		norm = string(OutputSlideDeck)
	}
	t := OutputType(norm)
	if !t.Valid() {
		return "", fmt.Errorf("unknown output type %q", s)
	}
	return t, nil
}

// GeneratedOutput is a finished artifact as stored in the vault.
// It is created once per successful generation and never mutated.
type GeneratedOutput struct {
	ID        string     `json:"id"`
	Type      OutputType `json:"type"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	AudioURL  string     `json:"audio_url,omitempty"`
	ImageURL  string     `json:"image_url,omitempty"`
	SlidePlan []Slide    `json:"slide_plan,omitempty"`
	Prompt    string     `json:"prompt,omitempty"`
	Analysis  any        `json:"analysis,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Slide is one entry of a slide plan or locally derived outline.
type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// ReportSection is a titled block of report prose.
type ReportSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NotesResult is the structured form of a NOTES generation.
type NotesResult struct {
	Title        string   `json:"title"`
	BulletNotes  []string `json:"bullet_notes"`
	KeyTakeaways []string `json:"key_takeaways"`
}

// ReportResult is the structured form of a REPORT generation. Derived
// outputs read it from memory.
type ReportResult struct {
	Title            string          `json:"title"`
	ExecutiveSummary string          `json:"executive_summary"`
	Sections         []ReportSection `json:"sections"`
	KeyFindings      []string        `json:"key_findings"`
	Body             string          `json:"body"`
	AudioURL         string          `json:"audio_url,omitempty"`
}

// AudioReportResult is the narrated rendition of a report.
type AudioReportResult struct {
	Title    string  `json:"title"`
	Script   string  `json:"script"`
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
}

// InfographicResult holds the rendered image reference.
type InfographicResult struct {
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
	Prompt   string `json:"prompt,omitempty"`
	Analysis any    `json:"analysis,omitempty"`
}

// SlideDeckResult combines the locally derived outline with whatever the
// slide renderer returned.
type SlideDeckResult struct {
	Title     string   `json:"title"`
	Outline   []Slide  `json:"outline"`
	ImageURLs []string `json:"slide_image_urls"`
	Plan      []Slide  `json:"slide_plan,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	Analysis  any      `json:"analysis,omitempty"`
}

// PodcastResult holds the stitched two-host script and its narration.
type PodcastResult struct {
	Title    string  `json:"title"`
	Script   string  `json:"script"`
	AudioURL string  `json:"audio_url,omitempty"`
	Duration float64 `json:"duration"`
}
