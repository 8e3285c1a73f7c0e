// Package llm wraps an OpenAI-compatible chat completion API behind a small
// synchronous client. The default endpoint is DeepSeek, but any provider
// speaking the same wire protocol works via base_url.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zeromicro/go-zero/core/logx"
)

// Client performs chat completions against the configured endpoint.
type Client struct {
	config *Config
	oa     *openai.Client
	logger Logger
	retry  *retryer
}

// ClientOption configures optional client behaviour.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger     Logger
	httpClient *http.Client
	oa         *openai.Client
}

// WithLogger injects a custom logger.
func WithLogger(l Logger) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithOpenAIClient injects a pre-built SDK client, primarily for tests.
func WithOpenAIClient(c *openai.Client) ClientOption {
	return func(o *clientOptions) { o.oa = c }
}

// NewClient constructs a chat client from the given configuration.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm: config cannot be nil")
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var state clientOptions
	for _, opt := range opts {
		opt(&state)
	}

	logger := state.logger
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}

	oa := state.oa
	if oa == nil {
		reqOpts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
		}
		if state.httpClient != nil {
			reqOpts = append(reqOpts, option.WithHTTPClient(state.httpClient))
		}
		val := openai.NewClient(reqOpts...)
		oa = &val
	}

	return &Client{
		config: cfg,
		oa:     oa,
		logger: logger,
		retry:  newRetryer(cfg.MaxRetries),
	}, nil
}

// Chat runs a single synchronous completion request.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, errors.New("llm: request cannot be nil")
	}
	params, modelID, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	c.logger.Infow(ctx, "llm chat request",
		logx.Field("model", modelID),
		logx.Field("messages", len(req.Messages)),
	)

	start := time.Now()
	var completion *openai.ChatCompletion
	err = c.retry.do(ctx, func() error {
		resp, callErr := c.oa.Chat.Completions.New(ctx, params)
		if callErr != nil {
			c.logger.Errorw(ctx, fmt.Sprintf("chat completion failed: %v", callErr),
				logx.Field("model", modelID))
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := convertCompletion(completion)
	c.logger.Infow(ctx, "llm chat success",
		logx.Field("model", modelID),
		logx.Field("duration_ms", time.Since(start).Milliseconds()),
		logx.Field("prompt_tokens", result.Usage.PromptTokens),
		logx.Field("completion_tokens", result.Usage.CompletionTokens),
	)
	return result, nil
}

// GetConfig returns a copy of the client configuration.
func (c *Client) GetConfig() *Config {
	return c.config.Clone()
}

func (c *Client) buildParams(req *ChatRequest) (openai.ChatCompletionNewParams, string, error) {
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, "", errors.New("llm: request requires at least one message")
	}

	alias := strings.TrimSpace(req.Model)
	if alias == "" {
		alias = c.config.DefaultModel
	}
	modelCfg, ok := c.config.Model(alias)
	if !ok {
		modelCfg = ModelConfig{ModelName: alias}
	}
	modelID := modelCfg.ModelName
	if strings.TrimSpace(modelID) == "" {
		modelID = alias
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelID),
		Messages: buildMessageParams(req.Messages),
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if modelCfg.Temperature != nil {
		params.Temperature = openai.Float(*modelCfg.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	} else if modelCfg.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*modelCfg.MaxTokens))
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	} else if modelCfg.TopP != nil {
		params.TopP = openai.Float(*modelCfg.TopP)
	}

	return params, modelID, nil
}

func buildMessageParams(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func convertCompletion(resp *openai.ChatCompletion) *ChatResponse {
	result := &ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, choice := range resp.Choices {
		result.Choices = append(result.Choices, Choice{
			Index: int(choice.Index),
			Message: Message{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		})
	}
	return result
}
