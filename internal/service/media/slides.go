package media

import (
	"context"
	"regexp"
	"strings"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/model"
)

// SlidesBaseline is the baseline excerpt sent to the slide renderer.
type SlidesBaseline struct {
	Content      string `json:"content"`
	SourceType   string `json:"source_type"`
	SourceRef    string `json:"source_ref"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SlidesRequest is the body of POST /slides.
type SlidesRequest struct {
	Baseline      SlidesBaseline `json:"baseline"`
	SlideCount    int            `json:"slide_count"`
	ShouldHydrate bool           `json:"shouldHydrate"`
}

// slidesResponse is the renderer's result. Image lists carry strings
// only: http(s) URLs, data:image URLs or bare base64 PNG data. Any other
// item shape fails decoding.
type slidesResponse struct {
	SlideImageURLs []string      `json:"slide_image_urls"`
	Slides         []string      `json:"slides"`
	SlidePlan      []model.Slide `json:"slide_plan"`
	Prompt         string        `json:"prompt"`
	Analysis       any           `json:"analysis"`
	Error          string        `json:"error"`
}

// SlideDeck is the renderer's normalized output.
type SlideDeck struct {
	ImageURLs []string
	Plan      []model.Slide
	Prompt    string
	Analysis  any
}

// Slides renders a deck. It uses the slides retry policy and timeout.
func (c *Client) Slides(ctx context.Context, req SlidesRequest) (SlideDeck, error) {
	const op = "media.slides"
	if strings.TrimSpace(req.Baseline.Content) == "" {
		return SlideDeck{}, genfail.New(genfail.Validation, op, "Missing content in baseline data")
	}
	resp, err := post[slidesResponse](ctx, c, c.slidesPolicy, c.timeouts.Slides, op, "/slides", req)
	if err != nil {
		return SlideDeck{}, err
	}
	if resp.Error != "" {
		return SlideDeck{}, genfail.New(genfail.Provider, op, "%s", resp.Error)
	}
	return normalizeSlides(resp)
}

// normalizeSlides requires slide_image_urls or slides, plus slide_plan.
func normalizeSlides(resp slidesResponse) (SlideDeck, error) {
	images := resp.SlideImageURLs
	if images == nil {
		images = resp.Slides
	}
	if images == nil || resp.SlidePlan == nil {
		return SlideDeck{}, genfail.New(genfail.Provider, "media.slides", "unrecognized response shape")
	}
	return SlideDeck{
		ImageURLs: NormalizeImages(images),
		Plan:      resp.SlidePlan,
		Prompt:    resp.Prompt,
		Analysis:  resp.Analysis,
	}, nil
}

var (
	likelyImage = regexp.MustCompile(`(?i)^(https?://|data:image/)`)
	bareBase64  = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// NormalizeImage turns one renderer item into a displayable image URL.
// http(s) and data:image URLs pass through; bare base64 becomes a PNG
// data URL. Anything else is dropped.
func NormalizeImage(item string) (string, bool) {
	item = strings.TrimSpace(item)
	switch {
	case item == "":
		return "", false
	case likelyImage.MatchString(item):
		return item, true
	case bareBase64.MatchString(item):
		return "data:image/png;base64," + item, true
	default:
		return "", false
	}
}

// NormalizeImages normalizes every item and drops duplicates, keeping the
// first occurrence.
func NormalizeImages(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		u, ok := NormalizeImage(item)
		if !ok {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// IdenticalPlan reports whether a plan of two or more slides has the same
// summary (or title, when there is no summary) on every slide.
func IdenticalPlan(plan []model.Slide) bool {
	if len(plan) < 2 {
		return false
	}
	key := func(s model.Slide) string {
		if s.Summary != "" {
			return s.Summary
		}
		return s.Title
	}
	first := key(plan[0])
	for _, s := range plan[1:] {
		if key(s) != first {
			return false
		}
	}
	return true
}
