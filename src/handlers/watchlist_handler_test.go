package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/insightai/backend/src/logger"
	"github.com/username/insightai/backend/src/models"
	"github.com/username/insightai/backend/src/services"
	"github.com/username/insightai/backend/src/storage"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// offlineMarketData is a MarketDataGateway with no credentials; enrichment
// takes the degraded path.
type offlineMarketData struct{}

func (offlineMarketData) Configured() bool { return false }
func (offlineMarketData) GetDailyBars(string, int) ([]models.Bar, error) {
	return nil, services.ErrGatewayNotConfigured
}

// newWatchlistMux wires a real watchlist service over a temp file store,
// registered with the same route patterns as main.
func newWatchlistMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store := storage.NewWatchlistStore(filepath.Join(t.TempDir(), "watchlist.json"))
	svc := services.NewWatchlistService(store, offlineMarketData{}, nil)
	h := NewWatchlistHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/watchlist", h.HandleGetWatchlist)
	mux.HandleFunc("POST /api/watchlist", h.HandleAddToWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{symbol}", h.HandleUpdateWatchlistItem)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", h.HandleRemoveFromWatchlist)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetWatchlistEmpty(t *testing.T) {
	mux := newWatchlistMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/watchlist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "watchlist": []}`, rec.Body.String())
}

func TestAddMissingSymbolRejected(t *testing.T) {
	mux := newWatchlistMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/watchlist", `{"notes":"no symbol"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Symbol is required")
}

func TestAddThenDuplicateCaseInsensitive(t *testing.T) {
	mux := newWatchlistMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/watchlist", `{"symbol":"aapl","notes":"swing"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var added struct {
		Success bool                 `json:"success"`
		Item    models.WatchlistItem `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.True(t, added.Success)
	assert.Equal(t, "AAPL", added.Item.Symbol)

	// "AAPL" and "aapl" are the same entity for duplicate detection.
	rec = doJSON(t, mux, http.MethodPost, "/api/watchlist", `{"symbol":"AAPL"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in your watchlist")

	rec = doJSON(t, mux, http.MethodGet, "/api/watchlist", "")
	var listed struct {
		Watchlist []models.EnrichedWatchlistItem `json:"watchlist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Watchlist, 1)
}

func TestUpdatePartialPayloadRetainsFields(t *testing.T) {
	mux := newWatchlistMux(t)

	body := `{"symbol":"TSLA","entry_price":250.5,"stop_price":230,"notes":"original"}`
	rec := doJSON(t, mux, http.MethodPost, "/api/watchlist", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/watchlist/tsla", `{"target_price":320}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated struct {
		Item models.WatchlistItem `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.NotNil(t, updated.Item.TargetPrice)
	assert.Equal(t, 320.0, *updated.Item.TargetPrice)
	require.NotNil(t, updated.Item.EntryPrice)
	assert.Equal(t, 250.5, *updated.Item.EntryPrice)
	require.NotNil(t, updated.Item.StopPrice)
	assert.Equal(t, 230.0, *updated.Item.StopPrice)
	assert.Equal(t, "original", updated.Item.Notes)
	assert.NotNil(t, updated.Item.UpdatedDate)
}

func TestUpdateMissingSymbol404(t *testing.T) {
	mux := newWatchlistMux(t)

	rec := doJSON(t, mux, http.MethodPut, "/api/watchlist/NVDA", `{"notes":"x"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NVDA not found")
}

func TestDeleteMissingSymbol404(t *testing.T) {
	mux := newWatchlistMux(t)

	rec := doJSON(t, mux, http.MethodDelete, "/api/watchlist/NVDA", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/watchlist", "")
	assert.JSONEq(t, `{"success": true, "watchlist": []}`, rec.Body.String())
}

func TestDeleteExistingSymbol(t *testing.T) {
	mux := newWatchlistMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/watchlist", `{"symbol":"MSFT"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/api/watchlist/msft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MSFT removed from watchlist")

	rec = doJSON(t, mux, http.MethodGet, "/api/watchlist", "")
	assert.JSONEq(t, `{"success": true, "watchlist": []}`, rec.Body.String())
}

func TestAddedItemsListedInInsertionOrder(t *testing.T) {
	mux := newWatchlistMux(t)

	for _, sym := range []string{"TSLA", "AAPL", "MSFT"} {
		rec := doJSON(t, mux, http.MethodPost, "/api/watchlist", fmt.Sprintf(`{"symbol":%q}`, sym))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/watchlist", "")
	var listed struct {
		Watchlist []models.EnrichedWatchlistItem `json:"watchlist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Watchlist, 3)
	assert.Equal(t, "TSLA", listed.Watchlist[0].Symbol)
	assert.Equal(t, "AAPL", listed.Watchlist[1].Symbol)
	assert.Equal(t, "MSFT", listed.Watchlist[2].Symbol)
	// Offline gateway: every item takes the degraded nil/nil path.
	for _, item := range listed.Watchlist {
		assert.Nil(t, item.CurrentPrice)
		assert.Nil(t, item.DailyChange)
	}
}
