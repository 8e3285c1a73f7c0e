package coingecko

import (
	"encoding/json"
	"fmt"
	"time"

	"advisor-api/pkg/market"
)

// coinListEntry is one row of the /coins/list catalog.
type coinListEntry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// marketChartResponse mirrors the /coins/{id}/market_chart payload: parallel
// irregular series of [epoch-ms, value] pairs.
type marketChartResponse struct {
	Prices       []samplePair `json:"prices"`
	TotalVolumes []samplePair `json:"total_volumes"`
}

// samplePair decodes a two-element [timestamp, value] array.
type samplePair struct {
	TimestampMS int64
	Value       float64
}

func (p *samplePair) UnmarshalJSON(data []byte) error {
	var raw [2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode sample pair: %w", err)
	}
	p.TimestampMS = int64(raw[0])
	p.Value = raw[1]
	return nil
}

func toTimedValues(pairs []samplePair) []market.TimedValue {
	out := make([]market.TimedValue, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, market.TimedValue{
			Timestamp: time.UnixMilli(p.TimestampMS).UTC(),
			Value:     p.Value,
		})
	}
	return out
}
