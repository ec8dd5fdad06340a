package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/longform"
	"github.com/ashita-ai/kasane/internal/model"
	"github.com/ashita-ai/kasane/internal/service/media"
)

const (
	// minSourceChars is the shortest baseline any text routine accepts.
	minSourceChars = 50
	// hydrateBelowChars triggers hydration for the segmented routines.
	hydrateBelowChars = 500
	notesMinWords     = 200
	slideCount        = 6

	mediaProvider = "1min.ai"
	mediaVoice    = "elevenlabs"
)

func runeLen(s string) int { return len([]rune(s)) }

// sourceText returns the trimmed baseline content (or summary), hydrating
// it when it is too short to generate from at all.
func (s *Service) sourceText(ctx context.Context, b model.Baseline) (string, error) {
	text := strings.TrimSpace(b.Content)
	if text == "" {
		text = strings.TrimSpace(b.Summary)
	}
	if runeLen(text) < minSourceChars {
		hydrated, err := s.media.Hydrate(ctx, text, "general")
		switch {
		case err != nil:
			s.trail.Add("hydration", "Hydration failed for very short input.", model.LevelWarning)
		case strings.TrimSpace(hydrated) != "":
			text = strings.TrimSpace(hydrated)
			s.trail.Add("hydration", fmt.Sprintf("Short input hydrated to %d chars", runeLen(text)), model.LevelInfo)
		}
	}
	if runeLen(text) < minSourceChars {
		s.trail.Add("prompt normalization", "Baseline content missing or too short for generation.", model.LevelError)
		return "", genfail.New(genfail.Validation, "studio.source", "Baseline content missing or too short for generation.")
	}
	s.trail.Add("prompt normalization", fmt.Sprintf("Normalized baseline content length %d.", runeLen(text)), model.LevelInfo)
	return text, nil
}

// hydrateIfLonger asks the backend to expand content and keeps the result
// only when it actually grew.
func (s *Service) hydrateIfLonger(ctx context.Context, content, contentType string) string {
	out, err := s.media.Hydrate(ctx, content, contentType)
	if err != nil {
		s.trail.Add("hydration", "Hydration failed, using original content", model.LevelWarning)
		return content
	}
	before, after := runeLen(content), runeLen(strings.TrimSpace(out))
	if after <= before {
		qe := genfail.New(genfail.ContentQuality, "studio.hydrate",
			"Hydration failed to expand content (%d -> %d). Using original.", before, after)
		s.trail.Add("hydration", qe.Msg, model.LevelWarning)
		return content
	}
	s.trail.Add("hydration", fmt.Sprintf("Content hydrated from %d to %d chars for %s", before, after, contentType), model.LevelInfo)
	return strings.TrimSpace(out)
}

// narrate synthesizes auxiliary audio. Failure is a warning, never fatal.
func (s *Service) narrate(ctx context.Context, text, prefix string) (media.Audio, bool) {
	s.trail.Add("tool / retrieval invocation", "Requesting TTS narration.", model.LevelInfo)
	audio, err := s.media.TTS(ctx, media.TTSRequest{Text: text, Prefix: prefix})
	if err != nil {
		s.trail.Add("response handling", "TTS narration failed: "+genfail.Message(err), model.LevelWarning)
		return media.Audio{}, false
	}
	s.trail.Add("response handling", "TTS narration ready.", model.LevelInfo)
	return audio, true
}

func (s *Service) generateNotes(ctx context.Context, src source) (outcome, error) {
	text, err := s.sourceText(ctx, src.baseline)
	if err != nil {
		return outcome{}, err
	}
	prompt := "Generate structured notes from the following content. Format as bullet points with key takeaways.\n\n" + text
	res, err := s.writer.Generate(ctx, prompt, longform.Options{
		Mode:     longform.ModeArticle,
		MinWords: notesMinWords,
		Provider: s.defaultProvider,
	})
	if err != nil {
		return outcome{}, err
	}

	notes := ParseNotes(res.Text)
	notes.Title = "Notes from " + src.baseline.SourceLabel()
	return outcome{
		output:        model.GeneratedOutput{Title: notes.Title, Content: res.Text},
		result:        notes,
		continuations: res.Continuations,
	}, nil
}

func (s *Service) generateReport(ctx context.Context, src source) (outcome, error) {
	text, err := s.sourceText(ctx, src.baseline)
	if err != nil {
		return outcome{}, err
	}
	short := runeLen(text) < hydrateBelowChars
	if short {
		text = s.hydrateIfLonger(ctx, text, "general")
	}

	s.trail.Add("model invocation", "Invoking longform article generation (sectioned with overlap).", model.LevelInfo)
	res, err := s.writer.Segmented(ctx, text, longform.SegmentOptions{
		Mode:      longform.ModeArticle,
		Provider:  s.defaultProvider,
		Hydrating: short,
	})
	if err != nil {
		return outcome{}, err
	}
	s.trail.Add("response handling", "Longform article response received.", model.LevelInfo)

	report := ParseReport(res.Text)
	report.Title = "Report on " + src.baseline.SourceLabel()
	out := model.GeneratedOutput{Title: report.Title, Content: res.Text}
	if audio, ok := s.narrate(ctx, res.Text, "report"); ok {
		report.AudioURL = audio.URL
		out.AudioURL = audio.URL
	}
	return outcome{output: out, result: report, continuations: res.Continuations}, nil
}

func (s *Service) generateAudioReport(ctx context.Context, src source) (outcome, error) {
	r := *src.report
	script := AudioScript(r)

	s.trail.Add("audio report generation", "Generating audio narration using TTS provider", model.LevelInfo)
	audio, err := s.media.TTS(ctx, media.TTSRequest{Text: script, Provider: mediaProvider, Voice: mediaVoice})
	if err != nil {
		return outcome{}, err
	}

	res := model.AudioReportResult{
		Title:    "Audio Report: " + r.Title,
		Script:   script,
		AudioURL: audio.URL,
		Duration: audio.Duration,
	}
	return outcome{
		output: model.GeneratedOutput{Title: res.Title, Content: script, AudioURL: audio.URL},
		result: res,
	}, nil
}

func (s *Service) generateInfographic(ctx context.Context, src source) (outcome, error) {
	r := *src.report
	res := model.InfographicResult{
		Title:   "Infographic: " + r.Title,
		Caption: "Visual summary of " + r.Title,
		Prompt:  InfographicPrompt(r),
	}

	if existing := strings.TrimSpace(src.baseline.Content); pollinationsImage.MatchString(existing) {
		s.trail.Add("model invocation", "Infographic URL provided. Skipping generation.", model.LevelInfo)
		res.ImageURL = existing
	} else {
		s.trail.Add("infographic generation", "Generating infographic image using image provider", model.LevelInfo)
		img, err := s.media.GenerateImage(ctx, media.ImageRequest{
			Prompt:   res.Prompt,
			Style:    "infographic",
			Provider: mediaProvider,
		})
		if err != nil {
			return outcome{}, err
		}
		res.ImageURL = img.URL
		if img.Prompt != "" {
			res.Prompt = img.Prompt
		}
		res.Analysis = img.Analysis
	}

	return outcome{
		output: model.GeneratedOutput{
			Title:    res.Title,
			Content:  res.ImageURL,
			ImageURL: res.ImageURL,
			Prompt:   res.Prompt,
			Analysis: res.Analysis,
		},
		result: res,
	}, nil
}

func (s *Service) generateSlideDeck(ctx context.Context, src source) (outcome, error) {
	r := *src.report
	b := src.baseline
	res := model.SlideDeckResult{
		Title:   "Slide Deck: " + r.Title,
		Outline: BuildOutline(r),
	}

	content := strings.TrimSpace(b.Content)
	if pollinationsImage.MatchString(content) {
		s.trail.Add("model invocation", "Slide deck derived from infographic URL. Skipping generation.", model.LevelInfo)
		res.ImageURLs = []string{content}
	} else {
		sb := media.SlidesBaseline{
			Content:      content,
			SourceType:   firstOr(b.Themes, "manual"),
			SourceRef:    firstOr(b.KeyPoints, "manual"),
			Status:       string(b.Status),
			ErrorMessage: b.ErrorMessage,
		}
		s.trail.Add("tool / retrieval invocation",
			"Requesting slide deck generation (this may take 60-90 seconds).", model.LevelInfo)
		deck, err := s.media.Slides(ctx, media.SlidesRequest{
			Baseline:      sb,
			SlideCount:    slideCount,
			ShouldHydrate: runeLen(content) < hydrateBelowChars,
		})
		if err != nil {
			return outcome{}, err
		}
		if media.IdenticalPlan(deck.Plan) {
			qe := genfail.New(genfail.ContentQuality, "studio.slides",
				"All slides have identical content - backend may need attention")
			s.trail.Add("slide validation", qe.Msg, model.LevelWarning)
		}
		s.trail.Add("response handling",
			fmt.Sprintf("Slide deck response received with %d slides.", len(deck.ImageURLs)), model.LevelInfo)
		res.ImageURLs = deck.ImageURLs
		res.Plan = deck.Plan
		res.Prompt = deck.Prompt
		res.Analysis = deck.Analysis
	}
	if res.ImageURLs == nil {
		res.ImageURLs = []string{}
	}

	images, err := json.Marshal(res.ImageURLs)
	if err != nil {
		return outcome{}, fmt.Errorf("encode slide images: %w", err)
	}
	plan := res.Plan
	if len(plan) == 0 {
		plan = res.Outline
	}
	out := model.GeneratedOutput{
		Title:     res.Title,
		Content:   string(images),
		SlidePlan: plan,
		Prompt:    res.Prompt,
		Analysis:  res.Analysis,
	}
	if len(res.ImageURLs) > 0 {
		out.ImageURL = res.ImageURLs[0]
	}
	return outcome{output: out, result: res}, nil
}

func (s *Service) generatePodcast(ctx context.Context, src source) (outcome, error) {
	r := *src.report
	text, err := s.sourceText(ctx, src.baseline)
	if err != nil {
		return outcome{}, err
	}
	if runeLen(text) < hydrateBelowChars {
		text = s.hydrateIfLonger(ctx, text, "podcast")
	}

	s.trail.Add("model invocation", "Invoking longform podcast generation (sectioned with overlap).", model.LevelInfo)
	gen, err := s.writer.Segmented(ctx, text, longform.SegmentOptions{
		Mode:     longform.ModePodcast,
		Provider: s.defaultProvider,
	})
	if err != nil {
		return outcome{}, err
	}
	s.trail.Add("response handling", "Longform podcast response received.", model.LevelInfo)

	res := model.PodcastResult{Title: "Podcast: " + r.Title, Script: gen.Text}
	out := model.GeneratedOutput{Title: res.Title, Content: gen.Text}
	if audio, ok := s.narrate(ctx, s.hosts.StripSpeakerTags(gen.Text), "podcast"); ok {
		res.AudioURL = audio.URL
		res.Duration = audio.Duration
		out.AudioURL = audio.URL
	}
	return outcome{output: out, result: res, continuations: gen.Continuations}, nil
}

func firstOr(items []string, fallback string) string {
	if len(items) > 0 && strings.TrimSpace(items[0]) != "" {
		return items[0]
	}
	return fallback
}
