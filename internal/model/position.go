package model

// AggregatedPosition is a derived view over one or more lots sharing a group key.
// It is never persisted.
//
// For a group whose live quantity is zero, Invested is rebuilt from the history
// (sum of quantity * cost basis) and Profit is RealizedValue - Invested, so fully
// exited positions keep a meaningful profit percentage. For live groups Profit is
// the unrealized CurrentValue - Invested.
type AggregatedPosition struct {
	Key           string     `json:"key"`
	Tickers       []string   `json:"tickers"`
	Class         AssetClass `json:"class"`
	Currency      string     `json:"currency"`
	Quantity      float64    `json:"quantity"`
	Invested      float64    `json:"invested"`
	CurrentValue  float64    `json:"currentValue"`
	RealizedValue float64    `json:"realizedValue"`
	Profit        float64    `json:"profit"`
	ProfitPercent float64    `json:"profitPercent"`
	Exhausted     bool       `json:"exhausted"`
	MaturityYear  int        `json:"maturityYear,omitempty"`
	SeriesYear    int        `json:"seriesYear,omitempty"`
	LotIDs        []RecordID `json:"lotIds"`
}

// PositionDetail is a single aggregated position together with its source records.
type PositionDetail struct {
	Position AggregatedPosition `json:"position"`
	Lots     []Lot              `json:"lots"`
	History  []HistoryEntry     `json:"history"`
}

// HealReport summarizes one healing pass over the history collection.
type HealReport struct {
	Scanned   int  `json:"scanned"`
	Repaired  int  `json:"repaired"`
	Persisted bool `json:"persisted"`
}
