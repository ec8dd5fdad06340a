package longform

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Hosts is the fixed speaker pair of a dialogue script.
type Hosts struct {
	First  string `yaml:"first"`
	Second string `yaml:"second"`
}

// DefaultHosts are Maya and Alex.
var DefaultHosts = Hosts{First: "Maya", Second: "Alex"}

func (h Hosts) other(speaker string) string {
	if speaker == h.First {
		return h.Second
	}
	return h.First
}

// speakerOf returns the host that line is tagged with, or "".
func (h Hosts) speakerOf(line string) string {
	switch {
	case strings.HasPrefix(line, h.First+":"):
		return h.First
	case strings.HasPrefix(line, h.Second+":"):
		return h.Second
	default:
		return ""
	}
}

// EnforceTurns keeps only speaker-tagged lines and re-tags any line whose
// speaker repeats the previous one, so hosts strictly alternate. Text with
// no tagged lines is returned unchanged.
func (h Hosts) EnforceTurns(text string) string {
	tag := regexp.MustCompile(`(?i)^(?:` + regexp.QuoteMeta(h.First) + `|` + regexp.QuoteMeta(h.Second) + `):\s*`)

	var out []string
	last := ""
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		speaker := h.speakerOf(line)
		if speaker == "" {
			continue
		}
		if speaker == last {
			speaker = h.other(speaker)
			line = speaker + ": " + tag.ReplaceAllString(line, "")
		}
		out = append(out, line)
		last = speaker
	}
	if len(out) == 0 {
		return text
	}
	return strings.Join(out, "\n")
}

// Stitcher joins dialogue segments, stripping the re-introductions models
// like to open a continuation with. The speaker tag before an opener is
// optional; a run of closing punctuation ("...") ends the opener.
type Stitcher struct {
	opener *regexp.Regexp
	filler *regexp.Regexp
}

// NewStitcher builds a Stitcher for the given host pair.
func NewStitcher(h Hosts) *Stitcher {
	names := regexp.QuoteMeta(h.First) + `|` + regexp.QuoteMeta(h.Second)
	return &Stitcher{
		opener: regexp.MustCompile(`(?i)^(?:(?:` + names + `):\s*)?(?:Welcome back|Thanks for staying with us|In this next part|Let's move on to|Continuing our discussion).*?[.!?…]+\s*`),
		filler: regexp.MustCompile(`(?i)^(?:(?:` + names + `):\s*)?(?:So,|Right,|Anyway,)\s*`),
	}
}

// Stitch trims every segment, cleans the openers of all but the first,
// and joins them with blank lines.
func (s *Stitcher) Stitch(segments []string) string {
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if i > 0 {
			seg = s.opener.ReplaceAllString(seg, "")
			seg = strings.TrimSpace(s.filler.ReplaceAllString(seg, ""))
			seg = capitalize(seg)
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "\n\n")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// StripSpeakerTags removes "Host:" tags for narration.
func (h Hosts) StripSpeakerTags(text string) string {
	re := regexp.MustCompile(`\b(?:` + regexp.QuoteMeta(h.First) + `|` + regexp.QuoteMeta(h.Second) + `):`)
	return strings.TrimSpace(re.ReplaceAllString(text, ""))
}
