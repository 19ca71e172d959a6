package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/insightai/backend/src/models"
	"github.com/username/insightai/backend/src/services"
	"github.com/username/insightai/backend/src/utils"
)

type WatchlistHandler struct {
	watchlistService services.WatchlistService
}

func NewWatchlistHandler(watchlistService services.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService}
}

// HandleGetWatchlist serves GET /api/watchlist: the stored items enriched
// with fresh market data, in insertion order.
func (h *WatchlistHandler) HandleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	enriched := h.watchlistService.GetEnriched()
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"watchlist": enriched,
	})
}

// HandleAddToWatchlist serves POST /api/watchlist.
func (h *WatchlistHandler) HandleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req models.AddWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		utils.SendJSONError(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	item, err := h.watchlistService.Add(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSymbolExists):
			utils.SendJSONError(w, fmt.Sprintf("%s is already in your watchlist", symbol), http.StatusBadRequest)
		case errors.Is(err, services.ErrStoreSave):
			utils.SendJSONError(w, "Failed to save watchlist", http.StatusInternalServerError)
		default:
			utils.SendJSONError(w, fmt.Sprintf("Failed to add to watchlist: %v", err), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s added to watchlist", item.Symbol),
		"item":    item,
	})
}

// HandleUpdateWatchlistItem serves PUT /api/watchlist/{symbol}. Fields
// absent from the payload retain their stored value.
func (h *WatchlistHandler) HandleUpdateWatchlistItem(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	var req models.UpdateWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.watchlistService.Update(symbol, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSymbolNotFound):
			utils.SendJSONError(w, fmt.Sprintf("%s not found in watchlist", symbol), http.StatusNotFound)
		case errors.Is(err, services.ErrStoreSave):
			utils.SendJSONError(w, "Failed to save watchlist", http.StatusInternalServerError)
		default:
			utils.SendJSONError(w, fmt.Sprintf("Failed to update watchlist item: %v", err), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s updated in watchlist", symbol),
		"item":    item,
	})
}

// HandleRemoveFromWatchlist serves DELETE /api/watchlist/{symbol}.
func (h *WatchlistHandler) HandleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	if err := h.watchlistService.Remove(symbol); err != nil {
		switch {
		case errors.Is(err, services.ErrSymbolNotFound):
			utils.SendJSONError(w, fmt.Sprintf("%s not found in watchlist", symbol), http.StatusNotFound)
		case errors.Is(err, services.ErrStoreSave):
			utils.SendJSONError(w, "Failed to save watchlist", http.StatusInternalServerError)
		default:
			utils.SendJSONError(w, fmt.Sprintf("Failed to remove from watchlist: %v", err), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s removed from watchlist", symbol),
	})
}
