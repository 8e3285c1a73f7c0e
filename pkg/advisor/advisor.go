// Package advisor turns retrieved OHLCV series into AI trading commentary.
// It prompts a chat model with a rendered bar table and supports follow-up
// questions that stay anchored to the initial analysis.
package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"advisor-api/pkg/llm"
	"advisor-api/pkg/market"
)

const defaultRecentBars = 24

// Chatter is the completion surface the advisor needs from an LLM client.
type Chatter interface {
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Advisor generates market analyses from OHLCV series.
type Advisor struct {
	chat       Chatter
	model      string
	recentBars int
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithModel overrides the model alias used for completions.
func WithModel(model string) Option {
	return func(a *Advisor) { a.model = model }
}

// WithRecentBars sets how many trailing bars are shown to the model.
func WithRecentBars(n int) Option {
	return func(a *Advisor) {
		if n > 0 {
			a.recentBars = n
		}
	}
}

// New constructs an Advisor on top of a chat client.
func New(chat Chatter, opts ...Option) (*Advisor, error) {
	if chat == nil {
		return nil, errors.New("advisor: chat client cannot be nil")
	}
	a := &Advisor{chat: chat, recentBars: defaultRecentBars}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analysis is the result of one Analyze call.
type Analysis struct {
	Symbol      market.Symbol `json:"symbol"`
	Provider    string        `json:"provider"`
	Text        string        `json:"text"`
	Model       string        `json:"model"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Analyze asks the model for a full read of the series: trend, support and
// resistance, volume sentiment and an actionable recommendation.
func (a *Advisor) Analyze(ctx context.Context, s *market.Series) (*Analysis, error) {
	if s == nil || len(s.Bars) == 0 {
		return nil, errors.New("advisor: series has no bars to analyse")
	}

	resp, err := a.chat.Chat(ctx, &llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			llm.SystemMessage(systemPromptFor(s)),
			llm.UserMessage(buildAnalysisPrompt(s, a.recentBars)),
		},
	})
	if err != nil {
		return nil, err
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.New("advisor: model returned an empty analysis")
	}

	return &Analysis{
		Symbol:      s.Symbol,
		Provider:    s.Provider,
		Text:        text,
		Model:       resp.Model,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Conversation carries follow-up questions about a prior analysis. The
// seed messages pin the model to the analysis it already produced.
type Conversation struct {
	advisor *Advisor
	seed    []llm.Message
	history []llm.Message
}

// Converse opens a follow-up conversation anchored to the given analysis.
func (a *Advisor) Converse(analysis *Analysis) (*Conversation, error) {
	if analysis == nil || strings.TrimSpace(analysis.Text) == "" {
		return nil, errors.New("advisor: conversation requires a prior analysis")
	}
	return &Conversation{
		advisor: a,
		seed: []llm.Message{
			llm.SystemMessage(followUpSystemPrompt),
			llm.UserMessage(buildFollowUpSeed(analysis.Symbol, analysis.Text)),
		},
	}, nil
}

// Ask sends a follow-up question and records both sides in the history.
func (c *Conversation) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("advisor: question cannot be empty")
	}

	msgs := make([]llm.Message, 0, len(c.seed)+len(c.history)+1)
	msgs = append(msgs, c.seed...)
	msgs = append(msgs, c.history...)
	msgs = append(msgs, llm.UserMessage(question))

	resp, err := c.advisor.chat.Chat(ctx, &llm.ChatRequest{
		Model:    c.advisor.model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	answer := resp.Text()
	if answer == "" {
		return "", errors.New("advisor: model returned an empty answer")
	}

	c.history = append(c.history,
		llm.UserMessage(question),
		llm.AssistantMessage(answer),
	)
	return answer, nil
}

// History returns the recorded follow-up exchanges.
func (c *Conversation) History() []llm.Message {
	out := make([]llm.Message, len(c.history))
	copy(out, c.history)
	return out
}
