package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/insightai/backend/src/config"
	"github.com/username/insightai/backend/src/models"
	"github.com/username/insightai/backend/src/services"
	"github.com/username/insightai/backend/src/utils"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// HandleChat serves POST /api/chat. Upstream failures are proxied with the
// endpoint's status code and body attached, not swallowed.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Prompt == "" {
		utils.SendJSONError(w, "Message is required", http.StatusBadRequest)
		return
	}
	if !config.Cfg.PerplexityConfigured() {
		utils.SendJSONError(w, "Perplexity API key not configured", http.StatusBadRequest)
		return
	}

	result, err := h.chatService.Chat(req)
	if err != nil {
		var upstream *services.UpstreamError
		if errors.As(err, &upstream) {
			utils.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":   fmt.Sprintf("Perplexity API error: %d", upstream.StatusCode),
				"details": upstream.Body,
			})
			return
		}
		utils.SendJSONError(w, "Failed to process chat message: "+err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"response":          result.Response,
		"search_results":    result.SearchResults,
		"portfolio_context": result.PortfolioContext,
	})
}
