package services

import (
	"fmt"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/username/insightai/backend/src/config"
	"github.com/username/insightai/backend/src/models"
)

// alpacaTradingGateway implements TradingGateway over the Alpaca trading
// API. Clients are built per call from the live configuration so that
// credentials saved through /api/connect take effect immediately.
type alpacaTradingGateway struct{}

func NewAlpacaTradingGateway() TradingGateway {
	return &alpacaTradingGateway{}
}

func (g *alpacaTradingGateway) Configured() bool {
	return config.Cfg != nil && config.Cfg.AlpacaConfigured()
}

func (g *alpacaTradingGateway) client() *alpacaapi.Client {
	return alpacaapi.NewClient(alpacaapi.ClientOpts{
		APIKey:    config.Cfg.AlpacaAPIKey,
		APISecret: config.Cfg.AlpacaSecretKey,
		BaseURL:   config.Cfg.AlpacaBaseURL,
	})
}

func (g *alpacaTradingGateway) GetAccount() (*models.BrokerAccount, error) {
	if !g.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	acct, err := g.client().GetAccount()
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	return &models.BrokerAccount{
		PortfolioValue: acct.PortfolioValue,
		Cash:           acct.Cash,
		BuyingPower:    acct.BuyingPower,
		DaytradeCount:  acct.DaytradeCount,
		Status:         string(acct.Status),
		Currency:       acct.Currency,
	}, nil
}

func (g *alpacaTradingGateway) GetPositions() ([]models.BrokerPosition, error) {
	if !g.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	positions, err := g.client().GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	out := make([]models.BrokerPosition, 0, len(positions))
	for _, p := range positions {
		out = append(out, models.BrokerPosition{
			Symbol:                 p.Symbol,
			Qty:                    p.Qty.String(),
			AvgEntryPrice:          p.AvgEntryPrice,
			MarketValue:            derefDecimal(p.MarketValue),
			CostBasis:              p.CostBasis,
			CurrentPrice:           derefDecimal(p.CurrentPrice),
			UnrealizedPL:           derefDecimal(p.UnrealizedPL),
			UnrealizedPLPC:         derefDecimal(p.UnrealizedPLPC),
			UnrealizedIntradayPL:   derefDecimal(p.UnrealizedIntradayPL),
			UnrealizedIntradayPLPC: derefDecimal(p.UnrealizedIntradayPLPC),
		})
	}
	return out, nil
}

func (g *alpacaTradingGateway) GetAssets() ([]models.AssetEntry, error) {
	if !g.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	assets, err := g.client().GetAssets(alpacaapi.GetAssetsRequest{
		Status:     "active",
		AssetClass: "us_equity",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching assets: %w", err)
	}

	out := make([]models.AssetEntry, 0, len(assets))
	for _, a := range assets {
		out = append(out, models.AssetEntry{Symbol: a.Symbol, Name: a.Name})
	}
	return out, nil
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// alpacaMarketDataGateway implements MarketDataGateway over the Alpaca
// market data API.
type alpacaMarketDataGateway struct{}

func NewAlpacaMarketDataGateway() MarketDataGateway {
	return &alpacaMarketDataGateway{}
}

func (g *alpacaMarketDataGateway) Configured() bool {
	return config.Cfg != nil && config.Cfg.AlpacaConfigured()
}

func (g *alpacaMarketDataGateway) client() *marketdata.Client {
	opts := marketdata.ClientOpts{
		APIKey:    config.Cfg.AlpacaAPIKey,
		APISecret: config.Cfg.AlpacaSecretKey,
	}
	if config.Cfg.AlpacaDataURL != "" {
		opts.BaseURL = config.Cfg.AlpacaDataURL
	}
	return marketdata.NewClient(opts)
}

// GetDailyBars fetches recent daily bars for symbol and returns the limit
// most recent ones, oldest first. The lookback window is sized to cover
// weekends and market holidays.
func (g *alpacaMarketDataGateway) GetDailyBars(symbol string, limit int) ([]models.Bar, error) {
	if !g.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	if limit <= 0 {
		return nil, nil
	}

	bars, err := g.client().GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     time.Now().AddDate(0, 0, -(limit*2 + 10)),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching daily bars for %s: %w", symbol, err)
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, models.Bar{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return out, nil
}
