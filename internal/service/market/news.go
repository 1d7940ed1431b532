package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoNews reports an empty feed.
var ErrNoNews = errors.New("no news available")

// NewsItem is one trending headline.
type NewsItem struct {
	Title string
	URL   string
}

// NewsSource serves the latest trending headline.
type NewsSource interface {
	LatestNews(ctx context.Context) (*NewsItem, error)
}

const defaultCryptoPanicURL = "https://cryptopanic.com/api/v1"

// CryptoPanicClient fetches headlines from the CryptoPanic posts API.
type CryptoPanicClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewCryptoPanicClient creates the client. baseURL is overridable for tests.
func NewCryptoPanicClient(baseURL, authToken string) *CryptoPanicClient {
	if baseURL == "" {
		baseURL = defaultCryptoPanicURL
	}
	return &CryptoPanicClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type cryptoPanicResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"results"`
}

// LatestNews returns the most recent post from the feed.
func (c *CryptoPanicClient) LatestNews(ctx context.Context) (*NewsItem, error) {
	query := url.Values{}
	query.Set("auth_token", c.authToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/posts/?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cryptopanic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cryptopanic returned status %d", resp.StatusCode)
	}

	var payload cryptoPanicResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Results) == 0 {
		return nil, ErrNoNews
	}

	latest := payload.Results[0]
	return &NewsItem{Title: latest.Title, URL: latest.URL}, nil
}

// FormatNews renders one headline as a chat message.
func FormatNews(item *NewsItem) string {
	return fmt.Sprintf("📰 Latest trending news: %s\n🔗 %s", item.Title, item.URL)
}
