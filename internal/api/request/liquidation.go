package request

// LiquidationRequest is the body of POST /api/position/{ticker}/liquidate.
// SalePrice is a pointer so a missing price can be told apart from a price of zero.
type LiquidationRequest struct {
	Quantity   float64  `json:"quantity"`
	SalePrice  *float64 `json:"salePrice"`
	TotalCosts float64  `json:"totalCosts"`
	Date       string   `json:"date,omitempty"`
}
