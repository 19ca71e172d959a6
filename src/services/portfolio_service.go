package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/insightai/backend/src/logger"
	"github.com/username/insightai/backend/src/models"
)

var oneHundred = decimal.NewFromInt(100)

// portfolioServiceImpl aggregates the brokerage account and positions into
// the portfolio response. Unlike watchlist enrichment, the top-level account
// fetch fails loud: without an account object nothing downstream is
// meaningful.
type portfolioServiceImpl struct {
	trading    TradingGateway
	marketData MarketDataGateway
	assetCache AssetCacheService
}

func NewPortfolioService(trading TradingGateway, marketData MarketDataGateway, assetCache AssetCacheService) PortfolioService {
	return &portfolioServiceImpl{
		trading:    trading,
		marketData: marketData,
		assetCache: assetCache,
	}
}

func (s *portfolioServiceImpl) GetPortfolio() (*models.PortfolioSnapshot, error) {
	if s.trading == nil || !s.trading.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	account, err := s.trading.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	positions, err := s.trading.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	views := make([]models.PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, s.buildPositionView(p))
	}

	// Display convenience: highest market value first. The sort must be
	// stable so equal values keep their prior relative order.
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].MarketValue > views[j].MarketValue
	})

	positionsValue := account.PortfolioValue.Sub(account.Cash)
	return &models.PortfolioSnapshot{
		Account: models.AccountSummary{
			TotalValue:     round2(account.PortfolioValue),
			Cash:           round2(account.Cash),
			PositionsValue: round2(positionsValue),
			BuyingPower:    round2(account.BuyingPower),
			DayTradeCount:  account.DaytradeCount,
			Status:         account.Status,
			Currency:       account.Currency,
		},
		Positions:   views,
		LastUpdated: time.Now(),
	}, nil
}

// buildPositionView derives the display row for one position. Neither the
// price lookup nor quantity parsing may fail the position: the price falls
// back to the brokerage snapshot and a malformed quantity becomes zero.
func (s *portfolioServiceImpl) buildPositionView(p models.BrokerPosition) models.PositionView {
	currentPrice := s.currentPriceFor(p)

	quantity, err := decimal.NewFromString(p.Qty)
	if err != nil {
		logger.L.Warn("Could not parse position quantity, substituting zero",
			"symbol", p.Symbol, "qty", p.Qty, "error", err)
		quantity = decimal.Zero
	}

	company := p.Symbol
	if s.assetCache != nil {
		company = s.assetCache.Resolve(p.Symbol)
	}

	return models.PositionView{
		Symbol:        p.Symbol,
		Company:       company,
		Quantity:      quantity.InexactFloat64(),
		CurrentPrice:  round2(currentPrice),
		MarketValue:   round2(p.MarketValue),
		AvgEntryPrice: round2(p.AvgEntryPrice),
		CostBasis:     round2(p.CostBasis),
		TodaysPL:      round2(p.UnrealizedIntradayPL),
		TodaysPLPC:    round2(p.UnrealizedIntradayPLPC.Mul(oneHundred)),
		TotalPL:       round2(p.UnrealizedPL),
		TotalPLPC:     round2(p.UnrealizedPLPC.Mul(oneHundred)),
	}
}

// currentPriceFor prefers a fresh daily close from the market data gateway
// and falls back to the position's own brokerage snapshot on any failure.
func (s *portfolioServiceImpl) currentPriceFor(p models.BrokerPosition) decimal.Decimal {
	if s.marketData == nil || !s.marketData.Configured() {
		return p.CurrentPrice
	}
	bars, err := s.marketData.GetDailyBars(p.Symbol, 1)
	if err != nil {
		logger.L.Warn("Error fetching current price, using brokerage snapshot",
			"symbol", p.Symbol, "error", err)
		return p.CurrentPrice
	}
	if len(bars) == 0 {
		return p.CurrentPrice
	}
	return decimal.NewFromFloat(bars[len(bars)-1].Close)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
