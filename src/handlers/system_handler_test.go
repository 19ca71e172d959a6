package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/insightai/backend/src/config"
	"github.com/username/insightai/backend/src/models"
	"github.com/username/insightai/backend/src/services"
)

type offlineTrading struct{}

func (offlineTrading) Configured() bool { return false }
func (offlineTrading) GetAccount() (*models.BrokerAccount, error) {
	return nil, services.ErrGatewayNotConfigured
}
func (offlineTrading) GetPositions() ([]models.BrokerPosition, error) {
	return nil, services.ErrGatewayNotConfigured
}
func (offlineTrading) GetAssets() ([]models.AssetEntry, error) {
	return nil, services.ErrGatewayNotConfigured
}

type countingCache struct {
	size int
}

func (c *countingCache) Resolve(symbol string) string { return symbol + " Corporation" }
func (c *countingCache) Size() int                    { return c.size }
func (c *countingCache) Clear() int {
	removed := c.size
	c.size = 0
	return removed
}

func newSystemMux(cache services.AssetCacheService) *http.ServeMux {
	h := NewSystemHandler(offlineTrading{}, cache)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/connect", h.HandleConnect)
	mux.HandleFunc("GET /api/status", h.HandleGetStatus)
	mux.HandleFunc("POST /api/clear-cache", h.HandleClearCache)
	return mux
}

func TestStatusUnconfigured(t *testing.T) {
	config.Cfg = &config.AppConfig{}
	mux := newSystemMux(&countingCache{size: 3})

	rec := doJSON(t, mux, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

	var body struct {
		Alpaca struct {
			Configured bool   `json:"configured"`
			Status     string `json:"status"`
		} `json:"alpaca"`
		Perplexity struct {
			Configured bool   `json:"configured"`
			Status     string `json:"status"`
		} `json:"perplexity"`
		Cache struct {
			CompanyNamesCached int `json:"company_names_cached"`
		} `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Alpaca.Configured)
	assert.Equal(t, "not_configured", body.Alpaca.Status)
	assert.Equal(t, "not_configured", body.Perplexity.Status)
	assert.Equal(t, 3, body.Cache.CompanyNamesCached)
}

func TestClearCacheReportsRemovedCount(t *testing.T) {
	config.Cfg = &config.AppConfig{}
	cache := &countingCache{size: 7}
	mux := newSystemMux(cache)

	rec := doJSON(t, mux, http.MethodPost, "/api/clear-cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Removed 7 cached company names")
	assert.Equal(t, 0, cache.size)
}

func TestConnectMissingKeysRejected(t *testing.T) {
	config.Cfg = &config.AppConfig{}
	mux := newSystemMux(&countingCache{})

	rec := doJSON(t, mux, http.MethodPost, "/api/connect",
		`{"alpaca_key":"k","alpaca_secret":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "All API keys are required")
}
