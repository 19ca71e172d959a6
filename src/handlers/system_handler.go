package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/insightai/backend/src/config"
	"github.com/username/insightai/backend/src/logger"
	"github.com/username/insightai/backend/src/services"
	"github.com/username/insightai/backend/src/utils"
)

// SystemHandler owns the credential, status and cache maintenance
// endpoints.
type SystemHandler struct {
	trading    services.TradingGateway
	assetCache services.AssetCacheService
}

func NewSystemHandler(trading services.TradingGateway, assetCache services.AssetCacheService) *SystemHandler {
	return &SystemHandler{trading: trading, assetCache: assetCache}
}

type connectRequest struct {
	AlpacaKey     string `json:"alpaca_key"`
	AlpacaSecret  string `json:"alpaca_secret"`
	PerplexityKey string `json:"perplexity_key"`
}

// HandleConnect serves POST /api/connect: persists the three credential
// strings and probes brokerage connectivity. A failed probe is still a 200;
// only a failed credential write is a 500.
func (h *SystemHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AlpacaKey == "" || req.AlpacaSecret == "" || req.PerplexityKey == "" {
		utils.SendJSONError(w, "All API keys are required", http.StatusBadRequest)
		return
	}

	if err := config.SaveCredentials(req.AlpacaKey, req.AlpacaSecret, req.PerplexityKey); err != nil {
		logger.L.Error("Failed to persist API credentials", "error", err)
		utils.SendJSONError(w, "Failed to save API keys", http.StatusInternalServerError)
		return
	}

	if _, err := h.trading.GetAccount(); err != nil {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "API keys saved, but Alpaca connection failed",
			"error":   err.Error(),
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        "API keys saved successfully",
		"account_status": "connected",
	})
}

// HandleGetStatus serves GET /api/status: configuration and connectivity
// booleans for both gateways plus the cache size.
func (h *SystemHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	alpacaConfigured := config.Cfg.AlpacaConfigured()
	alpacaStatus := "not_configured"
	if alpacaConfigured {
		if _, err := h.trading.GetAccount(); err != nil {
			alpacaStatus = "error"
		} else {
			alpacaStatus = "connected"
		}
	}

	perplexityConfigured := config.Cfg.PerplexityConfigured()
	perplexityStatus := "not_configured"
	if perplexityConfigured {
		perplexityStatus = "configured"
	}

	utils.NoCache(w)
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alpaca": map[string]interface{}{
			"configured": alpacaConfigured,
			"status":     alpacaStatus,
		},
		"perplexity": map[string]interface{}{
			"configured": perplexityConfigured,
			"status":     perplexityStatus,
		},
		"cache": map[string]interface{}{
			"company_names_cached": h.assetCache.Size(),
		},
	})
}

// HandleClearCache serves POST /api/clear-cache: empties the symbol
// directory cache and reports how many names were dropped.
func (h *SystemHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	removed := h.assetCache.Clear()
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Cache cleared. Removed %d cached company names.", removed),
		"removed": removed,
	})
}
