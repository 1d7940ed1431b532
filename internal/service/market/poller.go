package market

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chainvalet/chainvalet/internal/channel"
)

// Poller periodically checks the whale feed and pushes fresh alerts to
// subscribed conversations.
type Poller struct {
	source      WhaleSource
	ch          channel.Channel
	interval    time.Duration
	minValueUSD int64

	mu          sync.Mutex
	subscribers map[string]struct{}
	lastHash    string
}

// NewPoller creates the background whale-alert poller.
func NewPoller(source WhaleSource, ch channel.Channel, interval time.Duration, minValueUSD int64) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		source:      source,
		ch:          ch,
		interval:    interval,
		minValueUSD: minValueUSD,
		subscribers: make(map[string]struct{}),
	}
}

// Subscribe adds a conversation to the alert push list and reports whether it
// was newly added.
func (p *Poller) Subscribe(conversationID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subscribers[conversationID]; ok {
		return false
	}
	p.subscribers[conversationID] = struct{}{}
	return true
}

// Unsubscribe removes a conversation from the push list.
func (p *Poller) Unsubscribe(conversationID string) {
	p.mu.Lock()
	delete(p.subscribers, conversationID)
	p.mu.Unlock()
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	subscribers := make([]string, 0, len(p.subscribers))
	for id := range p.subscribers {
		subscribers = append(subscribers, id)
	}
	p.mu.Unlock()
	if len(subscribers) == 0 {
		return
	}

	transfers, err := p.source.RecentLargeTransfers(ctx, p.minValueUSD, time.Now().Add(-p.interval))
	if err != nil {
		log.Printf("[whale] poll failed: %v", err)
		return
	}
	if len(transfers) == 0 {
		return
	}

	// Skip anything already announced in the previous cycle.
	latest := transfers[0]
	p.mu.Lock()
	if latest.Hash == p.lastHash {
		p.mu.Unlock()
		return
	}
	p.lastHash = latest.Hash
	p.mu.Unlock()

	text := FormatTransfer(latest)
	for _, id := range subscribers {
		if _, err := p.ch.SendText(ctx, id, text); err != nil {
			log.Printf("[whale] push to %s failed: %v", id, err)
		}
	}
}

// FormatTransfer renders one transfer as a chat message.
func FormatTransfer(t Transfer) string {
	return fmt.Sprintf(
		"🐳 Whale Alert\n🌐 Blockchain: %s\n🪙 Token: %s\n💵 Amount: %.2f ($%.0f)\n📤 From: %s\n📥 To: %s\n🔗 Tx Hash: %s",
		t.Blockchain, t.Symbol, t.Amount, t.AmountUSD, t.FromOwner, t.ToOwner, t.Hash)
}

// FormatSnapshot renders a token snapshot as a chat message.
func FormatSnapshot(s *Snapshot) string {
	return fmt.Sprintf(
		"%s Analysis\n------------------------------\n"+
			"💵 Price: $%.4f\n📈 Market Cap: $%.0f\n"+
			"1H Change: %.2f%%\n24H Change: %.2f%%\n7D Change: %.2f%%\n"+
			"24H Volume: $%.0f\nAll-Time High: $%.4f\nAll-Time Low: $%.4f\n"+
			"Circulating Supply: %.0f\nMax Supply: %.0f\n\n"+
			"Sentiment: 👍 %.1f%% | 👎 %.1f%%",
		s.Name, s.PriceUSD, s.MarketCapUSD,
		s.Change1h, s.Change24h, s.Change7d,
		s.Volume24hUSD, s.ATHUSD, s.ATLUSD,
		s.CirculatingSupply, s.MaxSupply,
		s.SentimentUp, s.SentimentDown)
}
