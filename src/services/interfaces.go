package services

import (
	"errors"
	"fmt"

	"github.com/username/insightai/backend/src/models"
)

var (
	// ErrSymbolExists is returned when adding a symbol already present in
	// the watchlist (case-insensitive match).
	ErrSymbolExists = errors.New("symbol already in watchlist")
	// ErrSymbolNotFound is returned when updating or removing a symbol that
	// is not in the watchlist.
	ErrSymbolNotFound = errors.New("symbol not found in watchlist")
	// ErrStoreSave is returned when the watchlist file could not be written.
	ErrStoreSave = errors.New("failed to save watchlist")
	// ErrGatewayNotConfigured is returned when a required external gateway
	// has no credentials.
	ErrGatewayNotConfigured = errors.New("brokerage gateway not configured")
)

// UpstreamError carries a non-success response from the completions
// endpoint so the caller can proxy status and body instead of swallowing
// them.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completions API error: status %d", e.StatusCode)
}

// TradingGateway is the brokerage service boundary: account, open positions
// and the bulk asset listing.
type TradingGateway interface {
	Configured() bool
	GetAccount() (*models.BrokerAccount, error)
	GetPositions() ([]models.BrokerPosition, error)
	// GetAssets returns the brokerage's active US equity listing.
	GetAssets() ([]models.AssetEntry, error)
}

// MarketDataGateway is the quote provider boundary.
type MarketDataGateway interface {
	Configured() bool
	// GetDailyBars returns up to limit most recent daily bars for symbol,
	// oldest first.
	GetDailyBars(symbol string, limit int) ([]models.Bar, error)
}

// WatchlistStore is the durable symbol-to-item mapping. All mutation is
// load-all, mutate in memory, save-all.
type WatchlistStore interface {
	LoadAll() []models.WatchlistItem
	SaveAll(items []models.WatchlistItem) bool
}

// AssetCacheService maps ticker symbols to display names, built lazily once
// per process from the trading gateway's bulk asset list.
type AssetCacheService interface {
	// Resolve never fails: unknown symbols get a formatted fallback name.
	Resolve(symbol string) string
	// Clear empties the cache and re-arms the lazy build. Returns the
	// number of entries removed.
	Clear() int
	Size() int
}

// WatchlistService owns watchlist CRUD and enrichment.
type WatchlistService interface {
	GetEnriched() []models.EnrichedWatchlistItem
	Add(req models.AddWatchlistRequest) (*models.WatchlistItem, error)
	Update(symbol string, req models.UpdateWatchlistRequest) (*models.WatchlistItem, error)
	Remove(symbol string) error
}

// PortfolioService aggregates the brokerage account and positions into the
// portfolio response.
type PortfolioService interface {
	GetPortfolio() (*models.PortfolioSnapshot, error)
}

// ChatService forwards a prompt bundle to the external completions endpoint.
type ChatService interface {
	Chat(req models.ChatRequest) (*models.ChatResult, error)
}
