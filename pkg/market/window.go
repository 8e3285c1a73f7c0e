package market

import (
	"sort"
	"time"
)

// Window is an absolute [Start, End) retrieval interval in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// StartMillis returns the window start as milliseconds since epoch, the
// representation expected by exchange kline endpoints.
func (w Window) StartMillis() int64 {
	return w.Start.UnixMilli()
}

// EndMillis returns the window end as milliseconds since epoch.
func (w Window) EndMillis() int64 {
	return w.End.UnixMilli()
}

// Days returns the window width in whole days, rounded up, never below 1.
// Aggregator endpoints take a day count instead of absolute instants.
func (w Window) Days() int {
	d := w.End.Sub(w.Start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// BarWindow converts a lookback bar count at the given granularity into an
// absolute window ending at now. A small margin of extra bars is requested so
// the in-flight bucket and provider rounding cannot shorten the result.
func BarWindow(now time.Time, tf Timeframe, lookback int) Window {
	const marginBars = 2
	width := tf.Duration() * time.Duration(lookback+marginBars)
	end := now.UTC()
	return Window{Start: end.Add(-width), End: end}
}

// CalendarWindow converts a trading-day count into calendar-date bounds.
// Weekends and holidays mean N trading days span more than N calendar days,
// so twice the count is requested and the fetched series is trimmed to the
// most recent N bars afterwards.
func CalendarWindow(now time.Time, tradingDays int) (startDate, endDate string) {
	end := now.UTC()
	start := end.AddDate(0, 0, -2*tradingDays)
	return start.Format("20060102"), end.Format("20060102")
}

// TrimToLookback keeps the most recent n bars, re-sorted ascending by
// timestamp, with duplicate timestamps collapsed to the last occurrence.
func TrimToLookback(bars []Bar, n int) []Bar {
	if len(bars) == 0 || n <= 0 {
		return nil
	}
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	deduped := sorted[:0]
	for _, b := range sorted {
		if len(deduped) > 0 && deduped[len(deduped)-1].Timestamp.Equal(b.Timestamp) {
			deduped[len(deduped)-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	if len(deduped) > n {
		deduped = deduped[len(deduped)-n:]
	}
	out := make([]Bar, len(deduped))
	copy(out, deduped)
	return out
}
