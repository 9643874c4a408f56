package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/diagnosis"
	"github.com/bryanwahyu/prodpulse/internal/infra/ai/prompt"
)

const (
	DefaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 2000
	defaultTemperature = 0.3
)

// Options configures an OpenAI-compatible endpoint. BaseURL points it at
// other providers such as Groq.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	*openai.Client
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	host        string
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, goerr.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	c := &Client{
		Client:      openai.NewClientWithConfig(cfg),
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Timeout:     opts.Timeout,
		host:        cfg.BaseURL,
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	return c, nil
}

func (c *Client) Name() string { return "openai:" + c.Model }

func (c *Client) Diagnose(ctx context.Context, logText string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.UserPrompt(logText)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = c.MaxTokens
	} else {
		req.MaxTokens = c.MaxTokens
		req.Temperature = c.Temperature
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if statusCode(err) == http.StatusTooManyRequests {
			return "", goerr.Wrap(domain.ErrQuotaExceeded, "chat completion rate limited", goerr.V("host", c.host), goerr.V("cause", err.Error()))
		}
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("model", c.Model))
	}
	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyResponse
	}

	text := prompt.CleanResponse(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.ErrEmptyResponse
	}
	return text, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
