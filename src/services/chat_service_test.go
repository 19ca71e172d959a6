package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/insightai/backend/src/config"
	"github.com/username/insightai/backend/src/models"
)

// newCompletionsServer stands in for the completions endpoint and records
// the last payload it received.
func newCompletionsServer(t *testing.T, status int, body string, captured *completionsPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func chatTestConfig(baseURL string) {
	config.Cfg = &config.AppConfig{
		PerplexityAPIKey:  "test-key",
		PerplexityBaseURL: baseURL,
		ChatTimeout:       5 * time.Second,
		ChatMaxTokens:     2000,
	}
}

const completionsOK = `{
	"choices": [{"message": {"content": "**AAPL** looks steady."}}],
	"search_results": [{"title": "Apple earnings", "url": "https://example.com/a"}]
}`

func TestChatUnknownModelCoercedToDefault(t *testing.T) {
	var captured completionsPayload
	srv := newCompletionsServer(t, http.StatusOK, completionsOK, &captured)
	defer srv.Close()
	chatTestConfig(srv.URL)

	svc := NewChatService(&fakeTradingGateway{configured: false})
	_, err := svc.Chat(models.ChatRequest{Prompt: "hi", Model: "not-a-real-model"})
	require.NoError(t, err)
	assert.Equal(t, "sonar-deep-research", captured.Model)
}

func TestChatAllowedModelPassedThrough(t *testing.T) {
	var captured completionsPayload
	srv := newCompletionsServer(t, http.StatusOK, completionsOK, &captured)
	defer srv.Close()
	chatTestConfig(srv.URL)

	svc := NewChatService(&fakeTradingGateway{configured: false})
	_, err := svc.Chat(models.ChatRequest{Prompt: "hi", Model: "sonar-pro"})
	require.NoError(t, err)
	assert.Equal(t, "sonar-pro", captured.Model)
}

func TestChatMessageAssembly(t *testing.T) {
	var captured completionsPayload
	srv := newCompletionsServer(t, http.StatusOK, completionsOK, &captured)
	defer srv.Close()
	chatTestConfig(srv.URL)

	trading := &fakeTradingGateway{
		configured: true,
		account: &models.BrokerAccount{
			PortfolioValue: decimal.NewFromFloat(12345.67),
			Cash:           decimal.NewFromFloat(1000),
		},
		positions: []models.BrokerPosition{{Symbol: "AAPL"}, {Symbol: "MSFT"}},
	}
	svc := NewChatService(trading)

	history := []models.ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	result, err := svc.Chat(models.ChatRequest{Prompt: "how are my stocks doing?", ChatHistory: history})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, history[0], captured.Messages[1])
	assert.Equal(t, history[1], captured.Messages[2])

	last := captured.Messages[3]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "how are my stocks doing?")
	assert.Contains(t, last.Content, "AAPL, MSFT")
	assert.Contains(t, last.Content, "12345.67")

	assert.Contains(t, result.PortfolioContext, "Number of Positions: 2")
	assert.Equal(t, 2000, captured.MaxTokens)
	assert.False(t, captured.Stream)
}

func TestChatPortfolioContextUnavailable(t *testing.T) {
	var captured completionsPayload
	srv := newCompletionsServer(t, http.StatusOK, completionsOK, &captured)
	defer srv.Close()
	chatTestConfig(srv.URL)

	trading := &fakeTradingGateway{configured: true, accountErr: errors.New("broker down")}
	svc := NewChatService(trading)

	result, err := svc.Chat(models.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Portfolio data unavailable.", result.PortfolioContext)
	assert.Contains(t, captured.Messages[len(captured.Messages)-1].Content, "Portfolio data unavailable.")
}

func TestChatUpstreamErrorProxied(t *testing.T) {
	srv := newCompletionsServer(t, http.StatusTooManyRequests, `{"error":"rate limited"}`, nil)
	defer srv.Close()
	chatTestConfig(srv.URL)

	svc := NewChatService(&fakeTradingGateway{configured: false})
	_, err := svc.Chat(models.ChatRequest{Prompt: "hi"})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "rate limited")
}

func TestChatResponseAndSearchResults(t *testing.T) {
	srv := newCompletionsServer(t, http.StatusOK, completionsOK, nil)
	defer srv.Close()
	chatTestConfig(srv.URL)

	svc := NewChatService(&fakeTradingGateway{configured: false})
	result, err := svc.Chat(models.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "**AAPL** looks steady.", result.Response)
	assert.Contains(t, string(result.SearchResults), "Apple earnings")
}

func TestChatMissingSearchResultsDefaultsEmpty(t *testing.T) {
	srv := newCompletionsServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"ok"}}]}`, nil)
	defer srv.Close()
	chatTestConfig(srv.URL)

	svc := NewChatService(&fakeTradingGateway{configured: false})
	result, err := svc.Chat(models.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("[]"), result.SearchResults)
}
