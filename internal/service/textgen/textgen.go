// Package textgen holds the clients for the text generation proxies. Each
// client satisfies longform.TextClient.
package textgen

import (
	"context"
	"net/http"
	"strings"

	"github.com/ashita-ai/kasane/internal/genfail"
	"github.com/ashita-ai/kasane/internal/longform"
	"github.com/ashita-ai/kasane/internal/service/httpcall"
)

// textResponse is the shape shared by every proxy.
type textResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (r textResponse) result(op string) (string, error) {
	if r.Error != "" {
		return "", genfail.New(genfail.Provider, op, "%s", r.Error)
	}
	return r.Text, nil
}

// Codex calls POST /api/codex.
type Codex struct {
	baseURL    string
	httpClient *http.Client
}

// NewCodex returns a Codex client. A nil httpClient uses httpcall.NewClient.
func NewCodex(baseURL string, httpClient *http.Client) *Codex {
	if httpClient == nil {
		httpClient = httpcall.NewClient()
	}
	return &Codex{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type codexRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"maxTokens"`
}

// Complete returns the proxy's text. An empty text is not an error here;
// the long-form engine decides what empty means.
func (c *Codex) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var resp textResponse
	if err := httpcall.PostJSON(ctx, c.httpClient, "textgen.codex", c.baseURL+"/api/codex",
		codexRequest{Prompt: prompt, MaxTokens: maxTokens}, &resp); err != nil {
		return "", err
	}
	return resp.result("textgen.codex")
}

// ZChat calls POST /api/zchat with a single-message chat body.
type ZChat struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// DefaultZChatModel is the chat model requested from the zchat proxy.
const DefaultZChatModel = "glm-4.7"

// NewZChat returns a ZChat client.
func NewZChat(baseURL string, httpClient *http.Client) *ZChat {
	if httpClient == nil {
		httpClient = httpcall.NewClient()
	}
	return &ZChat{baseURL: strings.TrimRight(baseURL, "/"), model: DefaultZChatModel, httpClient: httpClient}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type zchatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"maxTokens"`
}

// Complete returns the proxy's text.
func (z *ZChat) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var resp textResponse
	if err := httpcall.PostJSON(ctx, z.httpClient, "textgen.zchat", z.baseURL+"/api/zchat", zchatRequest{
		Model:       z.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 1.0,
		MaxTokens:   maxTokens,
	}, &resp); err != nil {
		return "", err
	}
	return resp.result("textgen.zchat")
}

// Pollinations calls POST /api/pollinations. It is the fallback provider,
// so an empty text is a provider error.
type Pollinations struct {
	baseURL    string
	httpClient *http.Client
}

// NewPollinations returns a Pollinations client.
func NewPollinations(baseURL string, httpClient *http.Client) *Pollinations {
	if httpClient == nil {
		httpClient = httpcall.NewClient()
	}
	return &Pollinations{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type pollinationsRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

// Complete ignores maxTokens; the proxy is always asked for 1500.
func (p *Pollinations) Complete(ctx context.Context, prompt string, _ int) (string, error) {
	var resp textResponse
	if err := httpcall.PostJSON(ctx, p.httpClient, "textgen.pollinations", p.baseURL+"/api/pollinations", pollinationsRequest{
		Prompt:      prompt,
		Model:       "openai",
		MaxTokens:   1500,
		Temperature: 0.7,
	}, &resp); err != nil {
		return "", err
	}
	text, err := resp.result("textgen.pollinations")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", genfail.New(genfail.Provider, "textgen.pollinations", "Pollinations returned empty content.")
	}
	return text, nil
}

// Clients returns every provider wired to the same proxy base URL.
func Clients(baseURL string, httpClient *http.Client) map[longform.Provider]longform.TextClient {
	return map[longform.Provider]longform.TextClient{
		longform.ProviderCodex:        NewCodex(baseURL, httpClient),
		longform.ProviderZChat:        NewZChat(baseURL, httpClient),
		longform.ProviderPollinations: NewPollinations(baseURL, httpClient),
	}
}
