package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/prompt"
)

const (
	DefaultModel           = "gemini-2.5-flash"
	defaultTemperature     = 0.3
	defaultMaxOutputTokens = 2000
)

// Generator is the subset of the genai models API used here.
type Generator interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type modelsGenerator struct {
	client *genai.Client
	model  string
}

func (g *modelsGenerator) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.model))
	}
	return resp, nil
}

type Client struct {
	gen             Generator
	model           string
	temperature     float32
	maxOutputTokens int32
	timeout         time.Duration
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithTemperature(t float32) Option {
	return func(c *Client) { c.temperature = t }
}

func WithMaxOutputTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxOutputTokens = int32(n)
		}
	}
}

// WithTimeout bounds each Diagnose call. Zero means the caller's context only.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithGenerator replaces the genai client, used by tests.
func WithGenerator(g Generator) Option {
	return func(c *Client) { c.gen = g }
}

// New creates a Gemini Developer API backend authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		model:           DefaultModel,
		temperature:     defaultTemperature,
		maxOutputTokens: defaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gen != nil {
		return c, nil
	}

	if apiKey == "" {
		return nil, goerr.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	c.gen = &modelsGenerator{client: client, model: c.model}
	return c, nil
}

func (c *Client) Name() string { return "gemini:" + c.model }

func (c *Client) Diagnose(ctx context.Context, logText string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.SystemPrompt(), genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		MaxOutputTokens:   c.maxOutputTokens,
	}
	resp, err := c.gen.GenerateContent(ctx, genai.Text(prompt.UserPrompt(logText)), config)
	if err != nil {
		if isQuotaError(err) {
			return "", goerr.Wrap(domain.ErrQuotaExceeded, "gemini quota exceeded", goerr.V("cause", err.Error()))
		}
		return "", err
	}

	text := prompt.CleanResponse(responseText(resp))
	if text == "" {
		return "", domain.ErrEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func isQuotaError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	return false
}
