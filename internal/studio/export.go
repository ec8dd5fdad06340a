package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ashita-ai/kasane/internal/model"
)

// Export is a vault item rendered for download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

const exportFooter = "Created with kasane"

const htmlExportSource = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; background: #0a192f; color: #ccd6f6; }
        h1 { color: #64ffda; }
        img { max-width: 100%; height: auto; border: 1px solid #233554; border-radius: 8px; }
        .slide-container { margin: 20px 0; }
        .slide-number { color: #8892b0; font-size: 14px; margin-bottom: 5px; }
        .metadata { margin-top: 40px; padding-top: 20px; border-top: 1px solid #233554; font-size: 12px; color: #8892b0; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
{{- if .Single}}
    <img src="{{index .Images 0}}" alt="Infographic" />
{{- else}}
{{- range $i, $url := .Images}}
    <div class="slide-container">
        <div class="slide-number">Slide {{inc $i}}</div>
        <img src="{{$url}}" alt="Slide {{inc $i}}" />
    </div>
{{- end}}
{{- end}}
    <div class="metadata">
        <p><strong>Generated:</strong> {{.Generated}}</p>
        <p><strong>Type:</strong> {{.Type}}</p>
        <p>{{.Footer}}</p>
    </div>
</body>
</html>
`

var htmlExport = template.Must(template.New("export").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(htmlExportSource))

// ExportOutput renders vault item id. Image outputs become standalone
// HTML documents; everything else is markdown.
func (s *Service) ExportOutput(ctx context.Context, id string) (Export, error) {
	out, err := s.vault.Get(ctx, id)
	if err != nil {
		return Export{}, err
	}
	return RenderExport(out)
}

// RenderExport formats out for download.
func RenderExport(out model.GeneratedOutput) (Export, error) {
	generated := out.Timestamp.UTC().Format(time.RFC3339)
	date := out.Timestamp.UTC().Format("2006-01-02")
	base := fmt.Sprintf("kasane_%s_%s", strings.ToLower(string(out.Type)), date)

	switch out.Type {
	case model.OutputInfographic, model.OutputSlideDeck:
		images := exportImages(out)
		var buf bytes.Buffer
		err := htmlExport.Execute(&buf, map[string]any{
			"Title":     out.Title,
			"Single":    out.Type == model.OutputInfographic && len(images) > 0,
			"Images":    images,
			"Generated": generated,
			"Type":      string(out.Type),
			"Footer":    exportFooter,
		})
		if err != nil {
			return Export{}, fmt.Errorf("studio: render export %s: %w", out.ID, err)
		}
		return Export{Filename: base + ".html", ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n%s\n\n---\n**Metadata**\n- Generated: %s\n- Type: %s\n",
			strings.ToUpper(out.Title), out.Content, generated, out.Type)
		if out.AudioURL != "" {
			fmt.Fprintf(&b, "- Audio: %s\n", out.AudioURL)
		}
		b.WriteString("\n" + exportFooter + "\n")
		return Export{Filename: base + ".md", ContentType: "text/markdown; charset=utf-8", Body: []byte(b.String())}, nil
	}
}

// exportImages recovers image URLs from an output: slide decks store a
// JSON array in Content, infographics a single URL.
func exportImages(out model.GeneratedOutput) []string {
	if out.Type == model.OutputSlideDeck {
		var urls []string
		if json.Unmarshal([]byte(out.Content), &urls) == nil {
			return urls
		}
	}
	if out.ImageURL != "" {
		return []string{out.ImageURL}
	}
	if c := strings.TrimSpace(out.Content); c != "" {
		return []string{c}
	}
	return nil
}
