package binancefutures

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kline is one OHLCV row as returned by the futures kline endpoint.
type Kline struct {
	OpenTime  int64   // Open time in milliseconds
	Open      float64 // Open price
	High      float64 // High price
	Low       float64 // Low price
	Close     float64 // Close price
	Volume    float64 // Base-asset volume
	CloseTime int64   // Close time in milliseconds
}

// serverTimeResponse mirrors the /time payload.
type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

// apiError mirrors the error envelope returned on non-2xx responses.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// parseKlineRows decodes the kline payload, an array of heterogeneous
// arrays: open time and close time are numbers, prices and volume are
// strings. Any shape deviation is a protocol error.
func parseKlineRows(data []byte) ([]Kline, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	klines := make([]Kline, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("kline row %d has %d fields, want at least 7", i, len(row))
		}
		openTime, err := rawInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("kline row %d open time: %w", i, err)
		}
		closeTime, err := rawInt(row[6])
		if err != nil {
			return nil, fmt.Errorf("kline row %d close time: %w", i, err)
		}
		var prices [5]float64
		for j := 1; j <= 5; j++ {
			prices[j-1], err = rawFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
		}
		klines = append(klines, Kline{
			OpenTime:  openTime,
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
			Volume:    prices[4],
			CloseTime: closeTime,
		})
	}
	return klines, nil
}

func rawInt(raw json.RawMessage) (int64, error) {
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func rawFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}
