package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/username/insightai/backend/src/logger"
	"github.com/username/insightai/backend/src/models"
	"github.com/username/insightai/backend/src/utils"
)

// watchlistServiceImpl owns watchlist CRUD and enrichment. A mutex
// serializes every load-mutate-save cycle, so concurrent writers queue up
// instead of racing on the backing file.
type watchlistServiceImpl struct {
	store      WatchlistStore
	marketData MarketDataGateway
	assetCache AssetCacheService

	mu sync.Mutex
}

func NewWatchlistService(store WatchlistStore, marketData MarketDataGateway, assetCache AssetCacheService) WatchlistService {
	return &watchlistServiceImpl{
		store:      store,
		marketData: marketData,
		assetCache: assetCache,
	}
}

// GetEnriched merges the stored watchlist with fresh market data, one item
// at a time. A failed lookup degrades that item to nil price/change and
// never aborts the rest. Output preserves the store's insertion order.
func (s *watchlistServiceImpl) GetEnriched() []models.EnrichedWatchlistItem {
	items := s.store.LoadAll()
	enriched := make([]models.EnrichedWatchlistItem, 0, len(items))
	now := time.Now()

	for _, item := range items {
		e := models.EnrichedWatchlistItem{WatchlistItem: item, LastUpdated: now}
		s.attachMarketData(&e)
		enriched = append(enriched, e)
	}
	return enriched
}

// attachMarketData fills CurrentPrice and DailyChange from the two most
// recent daily bars. No gateway, a gateway error, or an empty bar set all
// leave both fields nil; that is the designed degraded path.
func (s *watchlistServiceImpl) attachMarketData(e *models.EnrichedWatchlistItem) {
	if s.marketData == nil || !s.marketData.Configured() {
		return
	}

	symbol := strings.ToUpper(e.Symbol)
	bars, err := s.marketData.GetDailyBars(symbol, 2)
	if err != nil {
		logger.L.Warn("Error fetching market data for watchlist item", "symbol", symbol, "error", err)
		return
	}
	if len(bars) == 0 {
		return
	}

	currentPrice := bars[len(bars)-1].Close
	e.CurrentPrice = &currentPrice

	// A single bar means there is no prior close to diff against; the
	// change is defined as numeric zero, not null.
	dailyChange := 0.0
	if len(bars) >= 2 {
		previousClose := bars[len(bars)-2].Close
		dailyChange = utils.RoundFloat((currentPrice-previousClose)/previousClose*100, 2)
	}
	e.DailyChange = &dailyChange
}

// Add appends a new item. Symbols are uppercased and must be unique in the
// store (case-insensitive); a missing company name is resolved through the
// asset cache.
func (s *watchlistServiceImpl) Add(req models.AddWatchlistRequest) (*models.WatchlistItem, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.LoadAll()
	for _, item := range items {
		if strings.EqualFold(item.Symbol, symbol) {
			return nil, ErrSymbolExists
		}
	}

	companyName := req.CompanyName
	if companyName == "" && s.assetCache != nil {
		companyName = s.assetCache.Resolve(symbol)
	}

	newItem := models.WatchlistItem{
		Symbol:      symbol,
		CompanyName: companyName,
		EntryPrice:  req.EntryPrice,
		StopPrice:   req.StopPrice,
		TargetPrice: req.TargetPrice,
		Notes:       req.Notes,
		AIAnalysis:  req.AIAnalysis,
		AddedDate:   time.Now(),
	}

	items = append(items, newItem)
	if !s.store.SaveAll(items) {
		return nil, ErrStoreSave
	}
	return &newItem, nil
}

// Update applies a partial merge: fields absent from the payload retain
// their stored value, present fields are overwritten.
func (s *watchlistServiceImpl) Update(symbol string, req models.UpdateWatchlistRequest) (*models.WatchlistItem, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.LoadAll()
	idx := -1
	for i, item := range items {
		if strings.EqualFold(item.Symbol, symbol) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrSymbolNotFound
	}

	item := &items[idx]
	if req.EntryPrice != nil {
		item.EntryPrice = req.EntryPrice
	}
	if req.StopPrice != nil {
		item.StopPrice = req.StopPrice
	}
	if req.TargetPrice != nil {
		item.TargetPrice = req.TargetPrice
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.AIAnalysis != nil {
		item.AIAnalysis = *req.AIAnalysis
	}
	now := time.Now()
	item.UpdatedDate = &now

	if !s.store.SaveAll(items) {
		return nil, ErrStoreSave
	}
	return item, nil
}

// Remove deletes the item for symbol, if present.
func (s *watchlistServiceImpl) Remove(symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.LoadAll()
	remaining := make([]models.WatchlistItem, 0, len(items))
	for _, item := range items {
		if !strings.EqualFold(item.Symbol, symbol) {
			remaining = append(remaining, item)
		}
	}
	if len(remaining) == len(items) {
		return ErrSymbolNotFound
	}

	if !s.store.SaveAll(remaining) {
		return ErrStoreSave
	}
	return nil
}
