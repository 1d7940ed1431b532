// Package market provides read-only market data: token snapshots and the
// large-transaction feed.
package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"encoding/json"
)

// ErrNotFound reports that the market source knows nothing about the token.
var ErrNotFound = errors.New("token not found")

// Snapshot is one token's current market picture.
type Snapshot struct {
	Name              string
	PriceUSD          float64
	MarketCapUSD      float64
	Change1h          float64
	Change24h         float64
	Change7d          float64
	Volume24hUSD      float64
	ATHUSD            float64
	ATLUSD            float64
	CirculatingSupply float64
	MaxSupply         float64
	SentimentUp       float64
	SentimentDown     float64
}

// Source serves token snapshots.
type Source interface {
	TokenSnapshot(ctx context.Context, idOrName string) (*Snapshot, error)
}

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient fetches snapshots from the CoinGecko coins API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoClient creates the client. baseURL is overridable for tests;
// empty selects the public API.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type coinGeckoCoin struct {
	Name       string `json:"name"`
	MarketData struct {
		CurrentPrice struct {
			USD float64 `json:"usd"`
		} `json:"current_price"`
		MarketCap struct {
			USD float64 `json:"usd"`
		} `json:"market_cap"`
		Change1h struct {
			USD float64 `json:"usd"`
		} `json:"price_change_percentage_1h_in_currency"`
		Change24h struct {
			USD float64 `json:"usd"`
		} `json:"price_change_percentage_24h_in_currency"`
		Change7d struct {
			USD float64 `json:"usd"`
		} `json:"price_change_percentage_7d_in_currency"`
		TotalVolume struct {
			USD float64 `json:"usd"`
		} `json:"total_volume"`
		ATH struct {
			USD float64 `json:"usd"`
		} `json:"ath"`
		ATL struct {
			USD float64 `json:"usd"`
		} `json:"atl"`
		CirculatingSupply float64 `json:"circulating_supply"`
		MaxSupply         float64 `json:"max_supply"`
	} `json:"market_data"`
	SentimentUp   float64 `json:"sentiment_votes_up_percentage"`
	SentimentDown float64 `json:"sentiment_votes_down_percentage"`
}

// TokenSnapshot looks a token up by CoinGecko id or plain name.
func (c *CoinGeckoClient) TokenSnapshot(ctx context.Context, idOrName string) (*Snapshot, error) {
	id := strings.ToLower(strings.Join(strings.Fields(idOrName), "-"))
	url := fmt.Sprintf("%s/coins/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var coin coinGeckoCoin
	if err := json.NewDecoder(resp.Body).Decode(&coin); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	md := coin.MarketData
	return &Snapshot{
		Name:              coin.Name,
		PriceUSD:          md.CurrentPrice.USD,
		MarketCapUSD:      md.MarketCap.USD,
		Change1h:          md.Change1h.USD,
		Change24h:         md.Change24h.USD,
		Change7d:          md.Change7d.USD,
		Volume24hUSD:      md.TotalVolume.USD,
		ATHUSD:            md.ATH.USD,
		ATLUSD:            md.ATL.USD,
		CirculatingSupply: md.CirculatingSupply,
		MaxSupply:         md.MaxSupply,
		SentimentUp:       coin.SentimentUp,
		SentimentDown:     coin.SentimentDown,
	}, nil
}
