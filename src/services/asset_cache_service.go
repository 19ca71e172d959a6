package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/username/insightai/backend/src/logger"
)

// assetCacheServiceImpl is the symbol directory cache: a process-lifetime
// symbol -> company name mapping built once from the trading gateway's bulk
// asset listing. A failed build leaves the built flag unset so the next
// Resolve retries; there is no negative caching of a failed build.
type assetCacheServiceImpl struct {
	trading TradingGateway

	mu    sync.Mutex
	names *cache.Cache
	built bool
}

func NewAssetCacheService(trading TradingGateway) AssetCacheService {
	return &assetCacheServiceImpl{
		trading: trading,
		names:   cache.New(cache.NoExpiration, 0),
	}
}

// Resolve returns the company name for symbol, triggering a one-time build
// of the cache on first use. Symbols absent from the cache (unknown, or the
// build failed) resolve to a deterministic fallback name; Resolve never
// fails.
func (s *assetCacheServiceImpl) Resolve(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	if !s.built {
		s.build()
	}
	s.mu.Unlock()

	if name, found := s.names.Get(symbol); found {
		return name.(string)
	}
	return fmt.Sprintf("%s Corporation", symbol)
}

// build fetches the bulk asset list and populates the cache. Callers must
// hold s.mu.
func (s *assetCacheServiceImpl) build() {
	if s.trading == nil || !s.trading.Configured() {
		return
	}
	assets, err := s.trading.GetAssets()
	if err != nil {
		logger.L.Error("Error building asset name cache", "error", err)
		return
	}
	for _, a := range assets {
		if a.Name == "" {
			continue
		}
		s.names.Set(strings.ToUpper(a.Symbol), a.Name, cache.NoExpiration)
	}
	s.built = true
	logger.L.Info("Asset name cache built", "companies", s.names.ItemCount())
}

// Clear empties the cache and re-arms the lazy build, so the next Resolve
// rebuilds from the gateway. Returns the number of entries removed.
func (s *assetCacheServiceImpl) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.names.ItemCount()
	s.names.Flush()
	s.built = false
	return removed
}

func (s *assetCacheServiceImpl) Size() int {
	return s.names.ItemCount()
}
