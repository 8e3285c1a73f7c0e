package advisor

import (
	"fmt"
	"strings"

	"advisor-api/pkg/market"
)

const (
	cryptoSystemPrompt = "You are a seasoned financial trading analyst specialising in " +
		"technical analysis and cryptocurrency markets."
	equitySystemPrompt = "You are a seasoned China A-share equity analyst skilled in " +
		"technical analysis and fundamental judgement."
	followUpSystemPrompt = "You are a seasoned market analyst. Answer follow-up questions " +
		"consistently with your earlier analysis and keep the reasoning coherent."
)

// buildAnalysisPrompt renders the user message asking for a full market
// read of the supplied series. The recent bars are included as a fixed-width
// table so the model sees actual OHLCV values rather than a narrative.
func buildAnalysisPrompt(s *market.Series, recentBars int) string {
	summary := market.RenderSummary(s, recentBars)

	var b strings.Builder
	if s.Symbol.IsPair() {
		fmt.Fprintf(&b, "Analyse the recent market data for %s (timeframe: %s).\n",
			s.Symbol, s.Timeframe)
	} else {
		fmt.Fprintf(&b, "Analyse the recent daily market data for %s (%s).\n",
			s.Symbol.DisplayName(), s.Symbol.Code)
	}
	fmt.Fprintf(&b, "Current price: %.6g\n\n", s.LatestClose())
	b.WriteString("Recent data (OHLCV):\n")
	b.WriteString(summary)
	b.WriteString("\n\nComplete the following tasks:\n")
	b.WriteString("1. Assess the current trend (uptrend, downtrend or ranging).\n")
	b.WriteString("2. Identify the key support and resistance levels.\n")
	b.WriteString("3. Read market sentiment from the volume changes.\n")
	if s.Symbol.IsPair() {
		b.WriteString("4. Give a clear recommendation: LONG, SHORT or WAIT.\n")
		b.WriteString("5. If you recommend a trade, state the entry, stop-loss and take-profit levels.\n\n")
		b.WriteString("Answer in concise, professional language.")
	} else {
		b.WriteString("4. Give a clear recommendation: BUY, SELL, HOLD or STAY FLAT.\n")
		b.WriteString("5. If you recommend action, state a reference price and a stop-loss level.\n\n")
		b.WriteString("Keep A-share market mechanics in mind (T+1 settlement, daily price limits) ")
		b.WriteString("and answer in concise, professional language.")
	}
	return b.String()
}

func systemPromptFor(s *market.Series) string {
	if s.Symbol.IsPair() {
		return cryptoSystemPrompt
	}
	return equitySystemPrompt
}

// buildFollowUpSeed frames a prior analysis so follow-up questions are
// answered against it rather than from scratch.
func buildFollowUpSeed(symbol market.Symbol, analysis string) string {
	return fmt.Sprintf("Here is the market analysis you just gave for %s:\n%s\n\n"+
		"The user's follow-up questions concern this analysis; answer accordingly.",
		symbol.DisplayName(), analysis)
}
