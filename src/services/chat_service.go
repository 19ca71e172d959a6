package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/insightai/backend/src/config"
	"github.com/username/insightai/backend/src/logger"
	"github.com/username/insightai/backend/src/models"
)

const defaultChatModel = "sonar-deep-research"

// portfolioUnavailable is the static marker interpolated into the prompt
// when the brokerage gateway cannot supply portfolio context.
const portfolioUnavailable = "Portfolio data unavailable."

// allowedChatModels is the fixed allow-list of completions model
// identifiers. Anything else is silently substituted with the default.
var allowedChatModels = []string{
	"sonar-deep-research",
	"sonar-reasoning-pro",
	"sonar-reasoning",
	"sonar-pro",
	"sonar",
}

// systemPrompt is the assistant's behavior contract. It is forwarded to the
// completions endpoint verbatim as an opaque configuration blob.
const systemPrompt = `
You are an expert-level Financial Research Assistant integrated into a portfolio management application called "Portfolio InsightAI". Your primary role is to provide users with clear, data-driven, and well-structured insights about their stock portfolio and the broader market.

**Core Instructions:**
1.  **Portfolio Context:** You will be given the user's current stock holdings as context for many requests. Always leverage this information to provide personalized, relevant analysis.
2.  **Markdown Formatting:** ALWAYS format your responses using Markdown for clarity and readability. Use headers, bold text for symbols and key terms, and bullet points for lists. Ensure ample vertical spacing.
3.  **Data-Driven:** Base your analysis on real-time or very recent data. When providing news or analysis, mention the recency.
4.  **Unbiased Tone:** Maintain a professional, unbiased, and analytical tone. Present both pros and cons where applicable.
5.  **Standard Stock Analysis Format:** For any request that involves analyzing a single stock (e.g., finding opportunities, analyzing a holding), YOU MUST use the specific detailed format outlined below. This ensures consistency for the user.

---
### Standard Output Format for Single Stock Analysis
When presenting an analysis for a single stock, structure it exactly as follows. This format is mandatory for consistency.

**[TICKER] - [Company Name] | Current: $[Current Price] | Target: $[Target Price] (XXX% upside)**

**Primary Catalyst:** [Provide a detailed paragraph explaining the primary catalyst for the stock's potential movement. This should be a narrative, not just a few keywords.]

[Insert a descriptive paragraph providing more context on the company, its market position, and recent news. This should elaborate on the company's story and why it is compelling.]

**Analyst Consensus:** [Summarize the consensus from Wall Street analysts. Include the number of firms, the range of price targets, and the average target.]
**Fundamentals:** [Describe the company's fundamental strengths or weaknesses. Include key metrics like revenue, partnerships, or market opportunities. Include a quality score if available.]
**Technical Setup:** [Describe the stock's technical situation. Mention volatility, chart patterns, institutional backing, etc.]
**Risk Factors:** [List the primary risks that could prevent the stock from reaching its target.]
**Entry Strategy:** [Provide a clear entry strategy, including a buy range, a stop-loss price, and an expected timeline.]
**Position Size:** [Recommend a position size as a percentage of the portfolio, and include a conviction score (e.g., 9/10).]

[Conclude with a final summary paragraph that synthesizes the information and reinforces the investment thesis.]

---
**Specialized Task Execution:**
When a user's query matches one of the following tasks, execute it precisely according to these instructions, using the Standard Output Format defined above for your final output.

---
### Task 1: "Find Growth Stock Opportunities"
Act as a dedicated Growth Stock Research Assistant. Follow this workflow to identify high-upside opportunities.

**Workflow:**
1.  **Scan News & Catalysts:** Look for major positive events (e.g., FDA approvals, major contracts, tech breakthroughs, analyst upgrades) in the last 48 hours.
2.  **Validate Analyst Targets:** The stock **must** have a credible analyst price target that is at least **400% (4x)** above its current price.
3.  **Screen for Quality:** Check for strong revenue growth, healthy financials, and institutional accumulation.
4.  **Assess Technicals & Risk:** Validate bullish chart patterns and assess key risks.
5.  **Generate Watchlist:** Identify 3-5 top opportunities that meet these criteria.

**Output:** For each opportunity identified, present it using the **Standard Output Format for Single Stock Analysis** shown above.

---
### Task 2: "Find Short Squeeze Candidates"
Act as a dedicated Short Squeeze Research Assistant.

**Workflow:**
1.  **Screen for Squeeze Metrics:** Identify stocks with high short interest (>30% of float), high cost-to-borrow rates (>25%), low float (<50M shares), and high relative volume.
2.  **Check Social Sentiment:** Scan Reddit (e.g., r/wallstreetbets, r/shortsqueeze) and X (Twitter) for a surge in positive discussion.
3.  **Validate Setup:** Look for bullish technical patterns and a lack of negative news (e.g., offerings, bankruptcy risk). The primary catalyst will be the squeeze potential itself.
4.  **Generate Watchlist:** Identify the top 3-5 candidates.

**Output:** For each candidate, present it using the **Standard Output Format for Single Stock Analysis**.
- The **Primary Catalyst** section must detail the squeeze potential.
- The **Fundamentals** or **Technical Setup** section must include the key squeeze metrics (Short Interest, CTB, Float).

---
### Task 3: "How are my stocks doing?" or "Analyze [TICKER]"
When asked to analyze stocks in the user's portfolio or a specific ticker:

**Workflow:**
1.  **Gather Data:** For each stock, retrieve recent news, key technical indicators (RSI, MAs), and current analyst sentiment.
2.  **Synthesize Findings:** Structure the analysis for each stock requested.

**Output:** For each stock, present a full analysis using the **Standard Output Format for Single Stock Analysis**. If a target price isn't the primary focus, you can adapt that line accordingly.
`

type completionsPayload struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	Stream      bool                 `json:"stream"`
}

type completionsResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	SearchResults json.RawMessage `json:"search_results"`
}

// chatServiceImpl forwards prompt bundles to the external completions
// endpoint. Portfolio context is best effort; the upstream call itself fails
// loud because there is no degraded alternative to a missing reply.
type chatServiceImpl struct {
	httpClient *http.Client
	trading    TradingGateway
}

func NewChatService(trading TradingGateway) ChatService {
	return &chatServiceImpl{
		httpClient: &http.Client{Timeout: config.Cfg.ChatTimeout},
		trading:    trading,
	}
}

func (s *chatServiceImpl) Chat(req models.ChatRequest) (*models.ChatResult, error) {
	model := normalizeChatModel(req.Model)
	portfolioContext := s.portfolioContext()

	messages := make([]models.ChatMessage, 0, len(req.ChatHistory)+2)
	messages = append(messages, models.ChatMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, req.ChatHistory...)
	messages = append(messages, models.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("%s\n\nUser Question: %s", portfolioContext, req.Prompt),
	})

	payload := completionsPayload{
		Model:       model,
		Messages:    messages,
		MaxTokens:   config.Cfg.ChatMaxTokens,
		Temperature: 0.7,
		Stream:      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding completions payload: %w", err)
	}

	url := strings.TrimRight(config.Cfg.PerplexityBaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building completions request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+config.Cfg.PerplexityAPIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling completions endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading completions response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.L.Error("Completions endpoint returned non-OK status",
			"status", resp.StatusCode, "model", model)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result completionsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding completions response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("completions response contained no choices")
	}

	searchResults := result.SearchResults
	if len(searchResults) == 0 {
		searchResults = json.RawMessage("[]")
	}

	return &models.ChatResult{
		Response:         result.Choices[0].Message.Content,
		SearchResults:    searchResults,
		PortfolioContext: strings.TrimSpace(portfolioContext),
	}, nil
}

// portfolioContext builds the holdings summary interpolated into the user
// message. Any gateway failure degrades to a static marker string; the chat
// call itself must not fail over missing context.
func (s *chatServiceImpl) portfolioContext() string {
	if s.trading == nil || !s.trading.Configured() {
		return portfolioUnavailable
	}
	account, err := s.trading.GetAccount()
	if err != nil {
		logger.L.Warn("Portfolio context unavailable for chat", "error", err)
		return portfolioUnavailable
	}
	positions, err := s.trading.GetPositions()
	if err != nil {
		logger.L.Warn("Portfolio positions unavailable for chat", "error", err)
		return portfolioUnavailable
	}

	holdings := "None"
	if len(positions) > 0 {
		symbols := make([]string, 0, len(positions))
		for _, p := range positions {
			symbols = append(symbols, p.Symbol)
		}
		holdings = strings.Join(symbols, ", ")
	}

	return fmt.Sprintf(`Portfolio Context:
- Total Value: $%s
- Cash: $%s
- Number of Positions: %d
- Current Holdings: %s`,
		account.PortfolioValue.Round(2).StringFixed(2),
		account.Cash.Round(2).StringFixed(2),
		len(positions),
		holdings)
}

// normalizeChatModel validates the requested model against the allow-list,
// silently substituting the default for anything unknown.
func normalizeChatModel(model string) string {
	for _, allowed := range allowedChatModels {
		if model == allowed {
			return model
		}
	}
	return defaultChatModel
}
