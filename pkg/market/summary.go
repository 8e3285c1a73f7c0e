package market

import (
	"fmt"
	"strings"
)

// RenderSummary renders the most recent n bars as a fixed-width table plus
// the latest close price. This is the only payload the advisory layer needs;
// it carries no provenance or resampling detail.
func RenderSummary(s *Series, n int) string {
	if s == nil || len(s.Bars) == 0 {
		return ""
	}
	bars := s.Bars
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "symbol: %s  timeframe: %s  latest close: %s\n\n",
		s.Symbol, s.Timeframe, formatPrice(s.LatestClose()))
	b.WriteString("timestamp            open        high        low         close       volume\n")
	for _, bar := range bars {
		fmt.Fprintf(&b, "%s  %-10s  %-10s  %-10s  %-10s  %s\n",
			bar.Timestamp.UTC().Format("2006-01-02 15:04"),
			formatPrice(bar.Open),
			formatPrice(bar.High),
			formatPrice(bar.Low),
			formatPrice(bar.Close),
			formatVolume(bar.Volume),
		)
	}
	return b.String()
}

func formatPrice(v float64) string {
	switch {
	case v == 0:
		return "0"
	case v < 0.01:
		return fmt.Sprintf("%.8f", v)
	case v < 10:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func formatVolume(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
