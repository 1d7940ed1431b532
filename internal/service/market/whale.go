package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transfer is one large on-chain transfer reported by the feed.
type Transfer struct {
	Blockchain string
	Symbol     string
	Amount     float64
	AmountUSD  float64
	FromOwner  string
	ToOwner    string
	Hash       string
	Timestamp  time.Time
}

// WhaleSource serves recent large transfers.
type WhaleSource interface {
	RecentLargeTransfers(ctx context.Context, minValueUSD int64, since time.Time) ([]Transfer, error)
}

const defaultWhaleAlertURL = "https://api.whale-alert.io/v1"

// WhaleAlertClient polls the Whale Alert transactions API.
type WhaleAlertClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewWhaleAlertClient creates the client. baseURL is overridable for tests.
func NewWhaleAlertClient(baseURL, apiKey string) *WhaleAlertClient {
	if baseURL == "" {
		baseURL = defaultWhaleAlertURL
	}
	return &WhaleAlertClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type whaleAlertResponse struct {
	Transactions []struct {
		Blockchain string  `json:"blockchain"`
		Symbol     string  `json:"symbol"`
		Amount     float64 `json:"amount"`
		AmountUSD  float64 `json:"amount_usd"`
		Hash       string  `json:"hash"`
		Timestamp  int64   `json:"timestamp"`
		From       struct {
			Owner string `json:"owner"`
		} `json:"from"`
		To struct {
			Owner string `json:"owner"`
		} `json:"to"`
	} `json:"transactions"`
}

// RecentLargeTransfers returns transfers at or above minValueUSD since the
// given time.
func (c *WhaleAlertClient) RecentLargeTransfers(ctx context.Context, minValueUSD int64, since time.Time) ([]Transfer, error) {
	query := url.Values{}
	query.Set("api_key", c.apiKey)
	query.Set("min_value", fmt.Sprintf("%d", minValueUSD))
	query.Set("start", fmt.Sprintf("%d", since.Unix()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transactions?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whale alert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whale alert returned status %d", resp.StatusCode)
	}

	var payload whaleAlertResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	transfers := make([]Transfer, 0, len(payload.Transactions))
	for _, tx := range payload.Transactions {
		transfers = append(transfers, Transfer{
			Blockchain: tx.Blockchain,
			Symbol:     tx.Symbol,
			Amount:     tx.Amount,
			AmountUSD:  tx.AmountUSD,
			FromOwner:  orUnknown(tx.From.Owner),
			ToOwner:    orUnknown(tx.To.Owner),
			Hash:       tx.Hash,
			Timestamp:  time.Unix(tx.Timestamp, 0).UTC(),
		})
	}
	return transfers, nil
}

func orUnknown(owner string) string {
	if owner == "" {
		return "Unknown"
	}
	return owner
}
