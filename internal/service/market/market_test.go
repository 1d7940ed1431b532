package market_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chainvalet/chainvalet/internal/service/market"
)

const coinGeckoBody = `{
	"name": "Bitcoin",
	"market_data": {
		"current_price": {"usd": 65000.5},
		"market_cap": {"usd": 1280000000000},
		"price_change_percentage_1h_in_currency": {"usd": 0.2},
		"price_change_percentage_24h_in_currency": {"usd": -1.4},
		"price_change_percentage_7d_in_currency": {"usd": 3.1},
		"total_volume": {"usd": 32000000000},
		"ath": {"usd": 73000},
		"atl": {"usd": 67.81},
		"circulating_supply": 19700000,
		"max_supply": 21000000
	},
	"sentiment_votes_up_percentage": 82.5,
	"sentiment_votes_down_percentage": 17.5
}`

func TestTokenSnapshot(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(coinGeckoBody))
	}))
	defer srv.Close()

	c := market.NewCoinGeckoClient(srv.URL)
	snap, err := c.TokenSnapshot(context.Background(), "Bitcoin")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if gotPath != "/coins/bitcoin" {
		t.Fatalf("requested %q, want /coins/bitcoin", gotPath)
	}
	if snap.Name != "Bitcoin" || snap.PriceUSD != 65000.5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Change24h != -1.4 || snap.SentimentUp != 82.5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestTokenSnapshotNameNormalization(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(coinGeckoBody))
	}))
	defer srv.Close()

	c := market.NewCoinGeckoClient(srv.URL)
	if _, err := c.TokenSnapshot(context.Background(), "Shiba  Inu"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if gotPath != "/coins/shiba-inu" {
		t.Fatalf("requested %q, want /coins/shiba-inu", gotPath)
	}
}

func TestTokenSnapshotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := market.NewCoinGeckoClient(srv.URL)
	_, err := c.TokenSnapshot(context.Background(), "nope")
	if !errors.Is(err, market.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTokenSnapshotServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := market.NewCoinGeckoClient(srv.URL)
	if _, err := c.TokenSnapshot(context.Background(), "bitcoin"); err == nil {
		t.Fatal("expected an error on 502")
	}
}

func TestRecentLargeTransfers(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"transactions": [
			{"blockchain": "ethereum", "symbol": "eth", "amount": 12000,
			 "amount_usd": 31000000, "hash": "abc123", "timestamp": 1700000000,
			 "from": {"owner": "binance"}, "to": {"owner": ""}}
		]}`))
	}))
	defer srv.Close()

	c := market.NewWhaleAlertClient(srv.URL, "test-key")
	since := time.Unix(1699990000, 0)
	transfers, err := c.RecentLargeTransfers(context.Background(), 500000, since)
	if err != nil {
		t.Fatalf("transfers: %v", err)
	}

	if !strings.Contains(gotQuery, "api_key=test-key") ||
		!strings.Contains(gotQuery, "min_value=500000") ||
		!strings.Contains(gotQuery, "start=1699990000") {
		t.Fatalf("unexpected query %q", gotQuery)
	}

	if len(transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(transfers))
	}
	tr := transfers[0]
	if tr.Symbol != "eth" || tr.AmountUSD != 31000000 || tr.FromOwner != "binance" {
		t.Fatalf("unexpected transfer %+v", tr)
	}
	if tr.ToOwner != "Unknown" {
		t.Fatalf("empty owner rendered as %q, want Unknown", tr.ToOwner)
	}
}

func TestRecentLargeTransfersServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := market.NewWhaleAlertClient(srv.URL, "bad-key")
	if _, err := c.RecentLargeTransfers(context.Background(), 1, time.Now()); err == nil {
		t.Fatal("expected an error on 401")
	}
}

func TestLatestNews(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"results": [
			{"title": "Exchange reserves hit a two-year low", "url": "https://example.com/news/1"},
			{"title": "Older story", "url": "https://example.com/news/2"}
		]}`))
	}))
	defer srv.Close()

	c := market.NewCryptoPanicClient(srv.URL, "news-key")
	item, err := c.LatestNews(context.Background())
	if err != nil {
		t.Fatalf("news: %v", err)
	}

	if !strings.Contains(gotQuery, "auth_token=news-key") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if item.Title != "Exchange reserves hit a two-year low" || item.URL != "https://example.com/news/1" {
		t.Fatalf("unexpected item %+v, want the first result", item)
	}
}

func TestLatestNewsEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := market.NewCryptoPanicClient(srv.URL, "news-key")
	if _, err := c.LatestNews(context.Background()); !errors.Is(err, market.ErrNoNews) {
		t.Fatalf("got %v, want ErrNoNews", err)
	}
}

func TestLatestNewsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := market.NewCryptoPanicClient(srv.URL, "bad-key")
	if _, err := c.LatestNews(context.Background()); err == nil {
		t.Fatal("expected an error on 403")
	}
}

func TestFormatNews(t *testing.T) {
	text := market.FormatNews(&market.NewsItem{
		Title: "Gas fees drop",
		URL:   "https://example.com/news/3",
	})
	for _, want := range []string{"📰", "Gas fees drop", "https://example.com/news/3"} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted news missing %q:\n%s", want, text)
		}
	}
}

func TestFormatTransfer(t *testing.T) {
	text := market.FormatTransfer(market.Transfer{
		Blockchain: "ethereum",
		Symbol:     "usdt",
		Amount:     5000000,
		AmountUSD:  5000000,
		FromOwner:  "unknown wallet",
		ToOwner:    "kraken",
		Hash:       "deadbeef",
	})

	for _, want := range []string{"🐳", "ethereum", "usdt", "kraken", "deadbeef"} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted transfer missing %q:\n%s", want, text)
		}
	}
}

func TestFormatSnapshot(t *testing.T) {
	text := market.FormatSnapshot(&market.Snapshot{
		Name:      "Bitcoin",
		PriceUSD:  65000.5,
		Change24h: -1.4,
	})
	for _, want := range []string{"Bitcoin", "65000.5", "-1.40%"} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted snapshot missing %q:\n%s", want, text)
		}
	}
}
