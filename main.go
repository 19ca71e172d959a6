package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/username/insightai/backend/src/config"
	"github.com/username/insightai/backend/src/handlers"
	"github.com/username/insightai/backend/src/logger"
	"github.com/username/insightai/backend/src/services"
	"github.com/username/insightai/backend/src/storage"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Portfolio InsightAI backend server starting...")

	logger.L.Info("Initializing watchlist store...", "path", config.Cfg.WatchlistPath)
	watchlistStore := storage.NewWatchlistStore(config.Cfg.WatchlistPath)

	logger.L.Info("Initializing gateways, services and handlers...")
	tradingGateway := services.NewAlpacaTradingGateway()
	marketDataGateway := services.NewAlpacaMarketDataGateway()

	assetCache := services.NewAssetCacheService(tradingGateway)
	watchlistService := services.NewWatchlistService(watchlistStore, marketDataGateway, assetCache)
	portfolioService := services.NewPortfolioService(tradingGateway, marketDataGateway, assetCache)
	chatService := services.NewChatService(tradingGateway)

	watchlistHandler := handlers.NewWatchlistHandler(watchlistService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	chatHandler := handlers.NewChatHandler(chatService)
	systemHandler := handlers.NewSystemHandler(tradingGateway, assetCache)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/connect", systemHandler.HandleConnect)
	apiRouter.HandleFunc("GET /api/status", systemHandler.HandleGetStatus)
	apiRouter.HandleFunc("POST /api/clear-cache", systemHandler.HandleClearCache)

	apiRouter.HandleFunc("GET /api/portfolio", portfolioHandler.HandleGetPortfolio)
	apiRouter.HandleFunc("POST /api/chat", chatHandler.HandleChat)

	apiRouter.HandleFunc("GET /api/watchlist", watchlistHandler.HandleGetWatchlist)
	apiRouter.HandleFunc("POST /api/watchlist", watchlistHandler.HandleAddToWatchlist)
	apiRouter.HandleFunc("PUT /api/watchlist/{symbol}", watchlistHandler.HandleUpdateWatchlistItem)
	apiRouter.HandleFunc("DELETE /api/watchlist/{symbol}", watchlistHandler.HandleRemoveFromWatchlist)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Portfolio InsightAI backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(handlers.RequestLogMiddleware(rootMux)))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     finalHandler,
		ReadTimeout: 15 * time.Second,
		// The chat proxy holds the response open for up to the completions
		// timeout, so the write deadline must exceed it.
		WriteTimeout: config.Cfg.ChatTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
