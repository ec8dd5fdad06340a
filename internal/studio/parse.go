package studio

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ashita-ai/kasane/internal/model"
)

const fallbackFinding = "Generated from baseline content"

var (
	takeawayLine = regexp.MustCompile(`(?i)^(?:Key|Important|Main|Takeaway|Summary)`)
	summaryLine  = regexp.MustCompile(`(?i)^(?:Executive Summary|Summary|Overview)`)
	summaryLabel = regexp.MustCompile(`(?i)^(?:Executive Summary|Summary|Overview):\s*`)
	headingLine  = regexp.MustCompile(`^#{2,3}\s+`)
	headingMarks = regexp.MustCompile(`^#+\s+`)
	findingLine  = regexp.MustCompile(`(?i)^(?:Key Finding|Finding|Conclusion|Insight)`)

	// pollinationsImage matches a baseline that is already a rendered image URL.
	pollinationsImage = regexp.MustCompile(`(?i)^https?://image\.pollinations\.ai/prompt/`)
)

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func leadingRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ParseNotes splits generated notes into bullets and key takeaways.
func ParseNotes(text string) model.NotesResult {
	var res model.NotesResult
	for _, line := range nonEmptyLines(text) {
		switch {
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"), strings.HasPrefix(line, "•"):
			_, size := utf8.DecodeRuneInString(line)
			res.BulletNotes = append(res.BulletNotes, strings.TrimSpace(line[size:]))
		case takeawayLine.MatchString(line):
			res.KeyTakeaways = append(res.KeyTakeaways, line)
		}
	}
	if len(res.BulletNotes) == 0 {
		res.BulletNotes = []string{leadingRunes(text, 200)}
	}
	if len(res.KeyTakeaways) == 0 {
		res.KeyTakeaways = []string{fallbackFinding}
	}
	return res
}

// ParseReport extracts the executive summary, markdown sections and key
// findings from a generated report. Lines outside any section are dropped.
func ParseReport(text string) model.ReportResult {
	var (
		summary  []string
		res      model.ReportResult
		current  *model.ReportSection
		sections []model.ReportSection
	)
	for _, line := range nonEmptyLines(text) {
		switch {
		case summaryLine.MatchString(line):
			summary = append(summary, summaryLabel.ReplaceAllString(line, ""))
		case headingLine.MatchString(line):
			if current != nil {
				sections = append(sections, *current)
			}
			current = &model.ReportSection{Title: headingMarks.ReplaceAllString(line, "")}
		case findingLine.MatchString(line):
			res.KeyFindings = append(res.KeyFindings, line)
		case current != nil:
			if current.Content != "" {
				current.Content += " "
			}
			current.Content += line
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}

	if len(summary) > 0 {
		res.ExecutiveSummary = strings.Join(summary, " ")
	} else {
		res.ExecutiveSummary = leadingRunes(text, 300)
	}
	if len(sections) > 0 {
		res.Sections = sections
	} else {
		res.Sections = []model.ReportSection{{Title: "Overview", Content: leadingRunes(text, 500)}}
	}
	if len(res.KeyFindings) == 0 {
		res.KeyFindings = []string{fallbackFinding}
	}
	res.Body = text
	return res
}

// sentences splits on '.', keeping at most n non-blank pieces.
func sentences(text string, n int) []string {
	var out []string
	for _, part := range strings.Split(text, ".") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	return append([]string(nil), items...)
}

// BuildOutline derives a slide outline from a report: a title slide, the
// executive summary, the key findings, then one slide per section.
func BuildOutline(r model.ReportResult) []model.Slide {
	slides := []model.Slide{
		{Title: r.Title, Bullets: []string{"Executive Summary", "Key Findings", "Detailed Analysis"}},
		{Title: "Executive Summary", Bullets: sentences(r.ExecutiveSummary, 5)},
		{Title: "Key Findings", Bullets: firstN(r.KeyFindings, 5)},
	}
	for _, sec := range r.Sections {
		slides = append(slides, model.Slide{Title: sec.Title, Bullets: sentences(sec.Content, 5)})
	}
	return slides
}

// AudioScript is the narration text for an audio report.
func AudioScript(r model.ReportResult) string {
	parts := make([]string, 0, len(r.Sections))
	for _, sec := range r.Sections {
		parts = append(parts, sec.Title+": "+sec.Content)
	}
	return fmt.Sprintf("Audio Report: %s. Executive Summary: %s. Key Findings: %s. Sections: %s",
		r.Title, r.ExecutiveSummary, strings.Join(r.KeyFindings, ". "), strings.Join(parts, ". "))
}

// InfographicPrompt is the image prompt for an infographic.
func InfographicPrompt(r model.ReportResult) string {
	return fmt.Sprintf("Create a single infographic image summarizing the following report. "+
		"Title: %s. Executive Summary: %s. Key Findings: %s. "+
		"Create a visual representation with clear sections for each key finding.",
		r.Title, r.ExecutiveSummary, strings.Join(r.KeyFindings, ". "))
}
