package types

type SeriesReq struct {
	Symbol    string `form:"symbol"`
	Timeframe string `form:"timeframe,default=1h"`
	Lookback  int    `form:"lookback,default=72"`
}

type BarView struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type SeriesResp struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Timeframe string    `json:"timeframe"`
	Provider  string    `json:"provider"`
	Role      string    `json:"role"`
	Bars      []BarView `json:"bars"`
	FetchedAt int64     `json:"fetched_at"`
}

type AnalyzeReq struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe,default=1h"`
	Lookback  int    `json:"lookback,default=72"`
}

type AnalyzeResp struct {
	Symbol      string `json:"symbol"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Analysis    string `json:"analysis"`
	GeneratedAt int64  `json:"generated_at"`
}

type ProviderStatus struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Reachable *bool  `json:"reachable,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ProvidersResp struct {
	Default   string           `json:"default"`
	Chain     []string         `json:"chain"`
	Providers []ProviderStatus `json:"providers"`
}
