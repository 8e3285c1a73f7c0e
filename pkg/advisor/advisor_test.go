package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-api/pkg/llm"
	"advisor-api/pkg/market"
)

type fakeChatter struct {
	requests []*llm.ChatRequest
	reply    string
	err      error
}

func (f *fakeChatter) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{
		Model: "deepseek-chat",
		Choices: []llm.Choice{
			{Message: llm.Message{Role: llm.RoleAssistant, Content: f.reply}},
		},
	}, nil
}

func cryptoSeries() *market.Series {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &market.Series{
		Symbol:    market.Symbol{Base: "BTC", Quote: "USDT"},
		Timeframe: market.Timeframe1h,
		Provider:  "binance",
		Bars: []market.Bar{
			{Timestamp: base, Open: 68000, High: 68500, Low: 67800, Close: 68200, Volume: 120},
			{Timestamp: base.Add(time.Hour), Open: 68200, High: 68900, Low: 68100, Close: 68750, Volume: 95},
		},
	}
}

func equitySeries() *market.Series {
	return &market.Series{
		Symbol:    market.Symbol{Code: "600519", Name: "贵州茅台"},
		Timeframe: market.Timeframe1d,
		Provider:  "eastmoney",
		Bars: []market.Bar{
			{Timestamp: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Open: 1680, High: 1695, Low: 1675, Close: 1690, Volume: 25000},
		},
	}
}

func TestAnalyzeCrypto(t *testing.T) {
	chat := &fakeChatter{reply: "Uptrend intact. LONG above 68100."}
	a, err := New(chat)
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), cryptoSeries())
	require.NoError(t, err)
	assert.Equal(t, "Uptrend intact. LONG above 68100.", analysis.Text)
	assert.Equal(t, "binance", analysis.Provider)
	assert.Equal(t, "deepseek-chat", analysis.Model)
	assert.Equal(t, "BTC/USDT", analysis.Symbol.String())
	assert.False(t, analysis.GeneratedAt.IsZero())

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, llm.RoleUser, req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "LONG, SHORT or WAIT")
	assert.Contains(t, req.Messages[1].Content, "BTC/USDT")
	// The rendered table rides along in the prompt.
	assert.Contains(t, req.Messages[1].Content, "2024-06-01 01:00")
}

func TestAnalyzeEquity(t *testing.T) {
	chat := &fakeChatter{reply: "HOLD."}
	a, err := New(chat)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), equitySeries())
	require.NoError(t, err)

	prompt := chat.requests[0].Messages[1].Content
	assert.Contains(t, prompt, "BUY, SELL, HOLD or STAY FLAT")
	assert.Contains(t, prompt, "T+1")
	assert.NotContains(t, prompt, "take-profit")
}

func TestAnalyzeModelOverride(t *testing.T) {
	chat := &fakeChatter{reply: "WAIT."}
	a, err := New(chat, WithModel("deepseek-reasoner"), WithRecentBars(1))
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), cryptoSeries())
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", chat.requests[0].Model)

	// Only the most recent bar is rendered.
	prompt := chat.requests[0].Messages[1].Content
	assert.NotContains(t, prompt, "2024-06-01 00:00")
	assert.Contains(t, prompt, "2024-06-01 01:00")
}

func TestAnalyzeErrors(t *testing.T) {
	a, err := New(&fakeChatter{reply: "x"})
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), nil)
	assert.Error(t, err)

	_, err = a.Analyze(context.Background(), &market.Series{})
	assert.Error(t, err)

	empty, err := New(&fakeChatter{reply: "   "})
	require.NoError(t, err)
	_, err = empty.Analyze(context.Background(), cryptoSeries())
	assert.Error(t, err)

	failing, err := New(&fakeChatter{err: errors.New("api down")})
	require.NoError(t, err)
	_, err = failing.Analyze(context.Background(), cryptoSeries())
	assert.Error(t, err)
}

func TestNewRequiresChatter(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestConverse(t *testing.T) {
	chat := &fakeChatter{reply: "Support sits at 68100."}
	a, err := New(chat)
	require.NoError(t, err)

	analysis := &Analysis{
		Symbol: market.Symbol{Base: "BTC", Quote: "USDT"},
		Text:   "Uptrend intact.",
	}
	conv, err := a.Converse(analysis)
	require.NoError(t, err)

	answer, err := conv.Ask(context.Background(), "Where is support?")
	require.NoError(t, err)
	assert.Equal(t, "Support sits at 68100.", answer)

	req := chat.requests[0]
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Uptrend intact.")
	assert.Equal(t, "Where is support?", req.Messages[2].Content)

	// The next question carries the prior exchange.
	_, err = conv.Ask(context.Background(), "And resistance?")
	require.NoError(t, err)
	second := chat.requests[1]
	require.Len(t, second.Messages, 5)
	assert.Equal(t, "Where is support?", second.Messages[2].Content)
	assert.Equal(t, llm.RoleAssistant, second.Messages[3].Role)
	assert.Equal(t, "And resistance?", second.Messages[4].Content)

	history := conv.History()
	require.Len(t, history, 4)
	// Mutating the returned history must not corrupt the conversation.
	history[0].Content = "tampered"
	assert.Equal(t, "Where is support?", conv.History()[0].Content)
}

func TestConverseRequiresAnalysis(t *testing.T) {
	a, err := New(&fakeChatter{reply: "x"})
	require.NoError(t, err)

	_, err = a.Converse(nil)
	assert.Error(t, err)
	_, err = a.Converse(&Analysis{Text: "  "})
	assert.Error(t, err)
}

func TestAskEmptyQuestion(t *testing.T) {
	a, err := New(&fakeChatter{reply: "x"})
	require.NoError(t, err)
	conv, err := a.Converse(&Analysis{Text: "prior"})
	require.NoError(t, err)

	_, err = conv.Ask(context.Background(), "  ")
	assert.Error(t, err)
}
