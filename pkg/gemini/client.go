package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inlineData,omitempty"`
}

type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GeminiContent struct {
	Parts []*GeminiPart `json:"parts"`
	Role  string        `json:"role,omitempty"`
}

type GeminiRequest struct {
	Contents []*GeminiContent `json:"contents"`
}

type GeminiCandidate struct {
	Content      *GeminiContent `json:"content"`
	FinishReason string         `json:"finishReason,omitempty"`
}

type GeminiResponse struct {
	Candidates     []*GeminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	KeywordModel string
	Timeout      time.Duration
}

// Client calls the Gemini generateContent API. It implements content
// extraction, narration and keyword extraction.
type Client struct {
	cfg    Config
	client *http.Client
}

var (
	_ gateway.ContentExtractor = (*Client)(nil)
	_ gateway.Narrator         = (*Client)(nil)
	_ gateway.KeywordExtractor = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.KeywordModel == "" {
		cfg.KeywordModel = cfg.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// ExtractContent sends the PDF inline with the prompt and parses the reply as JSON.
func (c *Client) ExtractContent(ctx context.Context, document []byte, prompt string) (interface{}, error) {
	parts := []*GeminiPart{
		{InlineData: &GeminiInlineData{
			MimeType: "application/pdf",
			Data:     base64.StdEncoding.EncodeToString(document),
		}},
		{Text: prompt},
	}
	text, err := c.generate(ctx, c.cfg.Model, parts)
	if err != nil {
		return nil, err
	}

	var tree interface{}
	if err := json.Unmarshal([]byte(CleanJSON(text)), &tree); err != nil {
		return nil, gateway.New(gateway.Malformed, "content extraction reply is not valid JSON", err)
	}
	return tree, nil
}

func (c *Client) Narrate(ctx context.Context, doc lexical.Document) (string, error) {
	prompt := NarrationPrompt + lexical.ToMarkdown(doc)
	return c.generate(ctx, c.cfg.Model, []*GeminiPart{{Text: prompt}})
}

func (c *Client) ExtractKeywords(ctx context.Context, doc lexical.Document) ([]string, error) {
	prompt := KeywordsPrompt + lexical.ToMarkdown(doc)
	text, err := c.generate(ctx, c.cfg.KeywordModel, []*GeminiPart{{Text: prompt}})
	if err != nil {
		return nil, err
	}

	var keywords []string
	if err := json.Unmarshal([]byte(CleanJSON(text)), &keywords); err != nil {
		return nil, gateway.New(gateway.Malformed, "keyword reply is not a JSON string array", err)
	}
	return keywords, nil
}

func (c *Client) generate(ctx context.Context, model string, parts []*GeminiPart) (string, error) {
	payload, err := json.Marshal(GeminiRequest{
		Contents: []*GeminiContent{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", gateway.Wrap(gateway.Transient, fmt.Errorf("gemini request failed: %w", err))
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", gateway.Wrap(gateway.Transient, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", classifyStatus(res.StatusCode, body)
	}

	var out GeminiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", gateway.New(gateway.Malformed, "gemini returned an unreadable response", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", gateway.New(gateway.Malformed, "gemini blocked the request: "+out.PromptFeedback.BlockReason, nil)
	}
	if len(out.Candidates) == 0 || out.Candidates[0].Content == nil {
		return "", gateway.New(gateway.Malformed, "gemini returned no candidates", nil)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("status error, got status %d. with response body %s", status, string(body))
	switch {
	case status == http.StatusTooManyRequests:
		return gateway.New(gateway.Permanent, gateway.QuotaExceededMessage, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return gateway.Wrap(gateway.Permanent, errors.Join(gateway.ErrUnauthorized, err))
	case status >= 500:
		return gateway.Wrap(gateway.Transient, err)
	default:
		return gateway.Wrap(gateway.Permanent, err)
	}
}
