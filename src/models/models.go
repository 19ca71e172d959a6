package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// WatchlistItem is a single tracked symbol as persisted in the watchlist
// file. Symbols are stored uppercased and are unique (case-insensitive)
// within the store; uniqueness is enforced at insert time.
type WatchlistItem struct {
	Symbol      string     `json:"symbol"`
	CompanyName string     `json:"company_name"`
	EntryPrice  *float64   `json:"entry_price"`
	StopPrice   *float64   `json:"stop_price"`
	TargetPrice *float64   `json:"target_price"`
	Notes       string     `json:"notes"`
	AIAnalysis  string     `json:"ai_analysis"`
	AddedDate   time.Time  `json:"added_date"`
	UpdatedDate *time.Time `json:"updated_date,omitempty"`
}

// EnrichedWatchlistItem is a WatchlistItem with freshly fetched market data
// attached for a single response. CurrentPrice and DailyChange are nil when
// the market data gateway has no bars for the symbol or errored; that is the
// designed degraded state, not a failure.
type EnrichedWatchlistItem struct {
	WatchlistItem
	CurrentPrice *float64  `json:"current_price"`
	DailyChange  *float64  `json:"daily_change"`
	LastUpdated  time.Time `json:"last_updated"`
}

// AddWatchlistRequest is the body of POST /api/watchlist.
type AddWatchlistRequest struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"company_name"`
	EntryPrice  *float64 `json:"entry_price"`
	StopPrice   *float64 `json:"stop_price"`
	TargetPrice *float64 `json:"target_price"`
	Notes       string   `json:"notes"`
	AIAnalysis  string   `json:"ai_analysis"`
}

// UpdateWatchlistRequest is the body of PUT /api/watchlist/{symbol}.
// Fields left out of the payload are nil and retain their stored value.
type UpdateWatchlistRequest struct {
	EntryPrice  *float64 `json:"entry_price"`
	StopPrice   *float64 `json:"stop_price"`
	TargetPrice *float64 `json:"target_price"`
	Notes       *string  `json:"notes"`
	AIAnalysis  *string  `json:"ai_analysis"`
}

// PositionView is the derived, non-persisted per-position row of the
// portfolio response. Monetary fields are rounded to 2 decimal places at
// this boundary; internal computation uses full precision.
type PositionView struct {
	Symbol        string  `json:"symbol"`
	Company       string  `json:"company"`
	Quantity      float64 `json:"quantity"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	CostBasis     float64 `json:"cost_basis"`
	TodaysPL      float64 `json:"todays_pl"`
	TodaysPLPC    float64 `json:"todays_pl_pc"`
	TotalPL       float64 `json:"total_pl"`
	TotalPLPC     float64 `json:"total_pl_pc"`
}

// AccountSummary is the derived, non-persisted account header of the
// portfolio response.
type AccountSummary struct {
	TotalValue     float64 `json:"total_value"`
	Cash           float64 `json:"cash"`
	PositionsValue float64 `json:"positions_value"`
	BuyingPower    float64 `json:"buying_power"`
	DayTradeCount  int64   `json:"day_trade_count"`
	Status         string  `json:"status"`
	Currency       string  `json:"currency"`
}

// PortfolioSnapshot is the full GET /api/portfolio payload.
type PortfolioSnapshot struct {
	Account     AccountSummary `json:"account"`
	Positions   []PositionView `json:"positions"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Bar is a single period's aggregated price record for a symbol as returned
// by the market data gateway, oldest first.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    uint64
}

// BrokerAccount is the brokerage gateway's account snapshot.
type BrokerAccount struct {
	PortfolioValue decimal.Decimal
	Cash           decimal.Decimal
	BuyingPower    decimal.Decimal
	DaytradeCount  int64
	Status         string
	Currency       string
}

// BrokerPosition is the brokerage gateway's view of an open position.
// Qty carries the raw wire value; the brokerage has been observed to return
// non-numeric quantities, so parsing is deferred to the aggregator.
type BrokerPosition struct {
	Symbol                 string
	Qty                    string
	AvgEntryPrice          decimal.Decimal
	MarketValue            decimal.Decimal
	CostBasis              decimal.Decimal
	CurrentPrice           decimal.Decimal
	UnrealizedPL           decimal.Decimal
	UnrealizedPLPC         decimal.Decimal
	UnrealizedIntradayPL   decimal.Decimal
	UnrealizedIntradayPLPC decimal.Decimal
}

// AssetEntry is one row of the brokerage's bulk asset listing, used to build
// the symbol directory cache.
type AssetEntry struct {
	Symbol string
	Name   string
}

// ChatMessage is one entry of the conversation history, forwarded to the
// completions endpoint in the order given.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Prompt      string        `json:"prompt"`
	ChatHistory []ChatMessage `json:"chat_history"`
	Model       string        `json:"model"`
}

// ChatResult carries the assistant's reply plus the upstream search results
// and the portfolio context block that was interpolated into the prompt.
type ChatResult struct {
	Response         string
	SearchResults    json.RawMessage
	PortfolioContext string
}
