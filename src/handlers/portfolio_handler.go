package handlers

import (
	"errors"
	"net/http"

	"github.com/username/insightai/backend/src/services"
	"github.com/username/insightai/backend/src/utils"
)

type PortfolioHandler struct {
	portfolioService services.PortfolioService
}

func NewPortfolioHandler(portfolioService services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// HandleGetPortfolio serves GET /api/portfolio. The account fetch fails
// wholesale: 400 when the brokerage gateway is unconfigured, 500 when
// aggregation fails.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.portfolioService.GetPortfolio()
	if err != nil {
		if errors.Is(err, services.ErrGatewayNotConfigured) {
			utils.SendJSONError(w, "Alpaca API not configured", http.StatusBadRequest)
			return
		}
		utils.SendJSONError(w, "Failed to fetch portfolio data: "+err.Error(), http.StatusInternalServerError)
		return
	}

	utils.NoCache(w)
	utils.WriteJSON(w, http.StatusOK, snapshot)
}
