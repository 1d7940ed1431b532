package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chainvalet/chainvalet/internal/channel"
	"github.com/chainvalet/chainvalet/internal/ledger"
	"github.com/chainvalet/chainvalet/internal/model/wallet"
	"github.com/chainvalet/chainvalet/internal/service/ens"
	"github.com/chainvalet/chainvalet/internal/service/flow"
	"github.com/chainvalet/chainvalet/internal/service/market"
	"github.com/chainvalet/chainvalet/internal/store"
)

// Deps collects the services commands dispatch to.
type Deps struct {
	Engine   *flow.Engine
	Sessions *wallet.Store
	Channel  channel.Channel
	Market   market.Source
	Whales   market.WhaleSource
	News     market.NewsSource
	Poller   *market.Poller
	Names    ens.NameService
	Tokens   store.TokenRegistry

	// WhaleMinUSD is the floor for one-shot /whalealerts queries.
	WhaleMinUSD int64
}

// Router maps decoded commands onto flow starts and read-only queries.
type Router struct {
	engine   *flow.Engine
	sessions *wallet.Store
	ch       channel.Channel
	market   market.Source
	whales   market.WhaleSource
	news     market.NewsSource
	poller   *market.Poller
	names    ens.NameService
	tokens   store.TokenRegistry

	whaleMinUSD int64
}

// New creates the router.
func New(deps Deps) *Router {
	minUSD := deps.WhaleMinUSD
	if minUSD <= 0 {
		minUSD = 1_000_000
	}
	return &Router{
		engine:      deps.Engine,
		sessions:    deps.Sessions,
		ch:          deps.Channel,
		market:      deps.Market,
		whales:      deps.Whales,
		news:        deps.News,
		poller:      deps.Poller,
		names:       deps.Names,
		tokens:      deps.Tokens,
		whaleMinUSD: minUSD,
	}
}

// Dispatch executes one decoded command for the conversation. Every outcome,
// including a rejected flow start, produces exactly one reply.
func (r *Router) Dispatch(ctx context.Context, conversationID string, cmd Command) {
	switch c := cmd.(type) {
	case Start:
		r.sendMainMenu(ctx, conversationID, "👋 Welcome to ChainValet, your wallet assistant.")
	case Help:
		r.send(ctx, conversationID, helpText)
	case WalletMenu:
		r.sendWalletMenu(ctx, conversationID)
	case ChangeWallet:
		r.sendMenu(ctx, conversationID, "🔑 Choose how to connect a wallet:", changeWalletRows())
	case TokensMenu:
		r.sendMenu(ctx, conversationID, "🪙 Token options:", tokenMenuRows())
	case NetworkSettings:
		r.sendNetworkMenu(ctx, conversationID)
	case ConfirmKeySaved:
		r.sendMainMenu(ctx, conversationID, "✅ Great. Keep that key safe; it will not be shown again.")

	case CreateWallet:
		r.startFlow(ctx, conversationID, flow.FlowCreateWallet, nil)
	case ImportWallet:
		var args map[string]string
		if c.Secret != "" {
			args = map[string]string{"privateKey": c.Secret}
		}
		r.startFlow(ctx, conversationID, flow.FlowImportWallet, args)
	case DisconnectWallet:
		r.startFlow(ctx, conversationID, flow.FlowDisconnect, nil)
	case SwitchNetwork:
		r.startFlow(ctx, conversationID, flow.FlowSwitchNetwork, nil)
	case SwitchToChain:
		r.startFlow(ctx, conversationID, flow.FlowSwitchNetwork, map[string]string{"chain": c.Chain})
	case CreateToken:
		r.startFlow(ctx, conversationID, flow.FlowCreateToken, nil)
	case DeployToken:
		r.startFlow(ctx, conversationID, flow.FlowCreateToken, map[string]string{
			"chain":  c.Chain,
			"name":   c.Name,
			"symbol": c.Symbol,
			"supply": c.Supply,
		})
	case TransferToken:
		r.startFlow(ctx, conversationID, flow.FlowTransferToken, nil)
	case SendFunds:
		r.startFlow(ctx, conversationID, flow.FlowSendFunds, nil)
	case RegisterName:
		r.startFlow(ctx, conversationID, flow.FlowRegisterName, nil)

	case MyTokens:
		r.listTokens(ctx, conversationID)
	case TokenInfo:
		r.tokenInfo(ctx, conversationID, c.Token)
	case WhaleAlerts:
		r.whaleAlerts(ctx, conversationID)
	case NewsReport:
		r.newsReport(ctx, conversationID)
	case SubscribeWhales:
		if r.poller.Subscribe(conversationID) {
			r.send(ctx, conversationID, "🐳 Subscribed. You'll be notified about large transfers.")
		} else {
			r.send(ctx, conversationID, "🐳 You are already subscribed.")
		}
	case UnsubscribeWhales:
		r.poller.Unsubscribe(conversationID)
		r.send(ctx, conversationID, "🐳 Unsubscribed from whale alerts.")
	case ResolveName:
		r.resolveName(ctx, conversationID, c.Name)
	case ExpiringNames:
		r.expiringNames(ctx, conversationID, c.Length)

	default:
		r.send(ctx, conversationID, "❓ I didn't understand that. Send /help for the command list.")
	}
}

// startFlow starts a flow and translates gating errors into one chat message.
func (r *Router) startFlow(ctx context.Context, conversationID, flowID string, args map[string]string) {
	err := r.engine.Start(ctx, conversationID, flowID, args)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, flow.ErrNotConnected):
		r.send(ctx, conversationID, "❌ Wallet not connected. Please create or import a wallet first.")
	case errors.Is(err, flow.ErrFlowAlreadyActive):
		r.send(ctx, conversationID, "⚠️ Another operation is in progress. Finish or cancel it first.")
	case errors.Is(err, flow.ErrInsufficientBalance):
		r.send(ctx, conversationID, "⚠️ Insufficient balance. Top up your wallet before deploying.")
	case errors.Is(err, flow.ErrUnknownFlow):
		r.send(ctx, conversationID, "❌ Unknown operation.")
	default:
		log.Printf("[router] start %s for conversation=%s failed: %v", flowID, conversationID, err)
		r.send(ctx, conversationID, "❌ Sorry, something went wrong. Please try again later.")
	}
}

func (r *Router) listTokens(ctx context.Context, conversationID string) {
	tokens, err := r.tokens.TokensByConversation(ctx, conversationID)
	if err != nil {
		log.Printf("[router] token list for conversation=%s failed: %v", conversationID, err)
		r.send(ctx, conversationID, "❌ Couldn't load your tokens right now.")
		return
	}
	if len(tokens) == 0 {
		r.send(ctx, conversationID, "🪙 You haven't deployed any tokens yet.")
		return
	}

	var b strings.Builder
	b.WriteString("🪙 Your deployed tokens:\n")
	for _, t := range tokens {
		chainLabel := t.ChainName
		if chain, err := ledger.ChainByName(t.ChainName); err == nil {
			chainLabel = chain.DisplayName
		}
		fmt.Fprintf(&b, "\n%s (%s)\n🌐 %s\n📦 Supply: %s\n📍 %s\n", t.Name, t.Symbol, chainLabel, t.Supply, t.Address)
	}
	r.send(ctx, conversationID, b.String())
}

func (r *Router) tokenInfo(ctx context.Context, conversationID, token string) {
	snapshot, err := r.market.TokenSnapshot(ctx, token)
	switch {
	case errors.Is(err, market.ErrNotFound):
		r.send(ctx, conversationID, fmt.Sprintf("❌ No market data found for %q.", token))
	case err != nil:
		log.Printf("[router] token info %q failed: %v", token, err)
		r.send(ctx, conversationID, "❌ Market data is unavailable right now.")
	default:
		r.send(ctx, conversationID, market.FormatSnapshot(snapshot))
	}
}

func (r *Router) whaleAlerts(ctx context.Context, conversationID string) {
	transfers, err := r.whales.RecentLargeTransfers(ctx, r.whaleMinUSD, time.Now().Add(-time.Hour))
	if err != nil {
		log.Printf("[router] whale alerts failed: %v", err)
		r.send(ctx, conversationID, "❌ The whale feed is unavailable right now.")
		return
	}
	if len(transfers) == 0 {
		r.send(ctx, conversationID, "🐳 No recent whale transactions found.")
		return
	}

	if len(transfers) > 5 {
		transfers = transfers[:5]
	}
	for _, t := range transfers {
		r.send(ctx, conversationID, market.FormatTransfer(t))
	}
}

func (r *Router) newsReport(ctx context.Context, conversationID string) {
	item, err := r.news.LatestNews(ctx)
	switch {
	case errors.Is(err, market.ErrNoNews):
		r.send(ctx, conversationID, "📰 Nothing is trending right now.")
	case err != nil:
		log.Printf("[router] news report failed: %v", err)
		r.send(ctx, conversationID, "❌ The news feed is unavailable right now.")
	default:
		r.send(ctx, conversationID, market.FormatNews(item))
	}
}

func (r *Router) resolveName(ctx context.Context, conversationID, name string) {
	if ledger.IsHexAddress(name) {
		resolved, ok, err := r.names.ResolveAddress(ctx, strings.ToLower(name))
		if err != nil {
			log.Printf("[router] reverse lookup %q failed: %v", name, err)
			r.send(ctx, conversationID, "❌ Name lookups are unavailable right now.")
			return
		}
		if !ok {
			r.send(ctx, conversationID, fmt.Sprintf("🔍 No name points at %s.", name))
			return
		}
		r.send(ctx, conversationID, fmt.Sprintf("🔍 %s resolves to %s", name, resolved))
		return
	}

	address, ok, err := r.names.ResolveName(ctx, strings.ToLower(name))
	if err != nil {
		log.Printf("[router] resolve %q failed: %v", name, err)
		r.send(ctx, conversationID, "❌ Name lookups are unavailable right now.")
		return
	}
	if !ok {
		r.send(ctx, conversationID, fmt.Sprintf("🔍 %s is not registered.", name))
		return
	}

	text := fmt.Sprintf("🔍 %s → %s", name, address)
	if expiry, ok, err := r.names.GetExpiry(ctx, strings.ToLower(name)); err == nil && ok {
		text += fmt.Sprintf("\n⏳ Expires %s", expiry.Format("2006-01-02"))
	}
	r.send(ctx, conversationID, text)
}

func (r *Router) expiringNames(ctx context.Context, conversationID string, length int) {
	names, err := r.names.FindExpiringSoon(ctx, length)
	if err != nil {
		log.Printf("[router] expiring names failed: %v", err)
		r.send(ctx, conversationID, "❌ Name lookups are unavailable right now.")
		return
	}
	if len(names) == 0 {
		r.send(ctx, conversationID, "🔍 No matching names are expiring soon.")
		return
	}

	var b strings.Builder
	b.WriteString("⏳ Names expiring soon:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "\n%s — %s (%s)", n.Name, n.Expiry.Format("2006-01-02"), untilText(n.Expiry))
	}
	r.send(ctx, conversationID, b.String())
}

func untilText(t time.Time) string {
	d := time.Until(t)
	if d <= 0 {
		return "expired"
	}
	if days := int(d.Hours() / 24); days > 0 {
		return fmt.Sprintf("in %d days", days)
	}
	return fmt.Sprintf("in %d hours", int(d.Hours()))
}

func (r *Router) sendMainMenu(ctx context.Context, conversationID, heading string) {
	text := heading + "\n\n" + r.engine.WalletDetails(ctx, conversationID)
	r.sendMenu(ctx, conversationID, text, mainMenuRows(r.sessions.IsConnected(conversationID)))
}

func (r *Router) sendWalletMenu(ctx context.Context, conversationID string) {
	r.sendMenu(ctx, conversationID,
		"💼 Wallet\n\n"+r.engine.WalletDetails(ctx, conversationID),
		walletMenuRows(r.sessions.IsConnected(conversationID)))
}

func (r *Router) sendNetworkMenu(ctx context.Context, conversationID string) {
	text := "🌐 Network settings"
	if sess, ok := r.sessions.Get(conversationID); ok {
		text = fmt.Sprintf("🌐 Current network: %s", sess.Handle.Chain().DisplayName)
	}
	r.sendMenu(ctx, conversationID, text, networkMenuRows())
}

func (r *Router) send(ctx context.Context, conversationID, text string) {
	if _, err := r.ch.SendText(ctx, conversationID, text); err != nil {
		log.Printf("[router] send to conversation=%s failed: %v", conversationID, err)
	}
}

func (r *Router) sendMenu(ctx context.Context, conversationID, text string, rows [][]channel.Option) {
	if _, err := r.ch.SendMenu(ctx, conversationID, text, rows); err != nil {
		log.Printf("[router] menu to conversation=%s failed: %v", conversationID, err)
	}
}

const helpText = `📖 Commands:
/start — main menu
/createwallet — create a new wallet
/importwallet [key] — import an existing wallet
/disconnect — forget the connected wallet
/switchnetwork — change the active network
/createtoken — deploy an ERC-20 token
/mytokens — list your deployed tokens
/transfertoken — transfer one of your tokens
/sendfunds — send native currency
/tokeninfo <token> — market snapshot
/whalealerts — recent large transfers
/newsreport — latest trending news
/subscribewhales — push whale alerts
/unsubscribewhales — stop whale alerts
/ens <name|address> — resolve a name
/ensregister — register a name
/ensexpiry [length] — names expiring soon`

func mainMenuRows(connected bool) [][]channel.Option {
	rows := [][]channel.Option{
		channel.Row(
			channel.Option{Label: "💼 Wallet", Data: "wallet_menu"},
			channel.Option{Label: "🪙 Tokens", Data: "tokens_menu"},
		),
		channel.Row(
			channel.Option{Label: "🌐 Network", Data: "network_settings"},
			channel.Option{Label: "🐳 Whale Alerts", Data: "whale_alerts"},
		),
	}
	if connected {
		rows = append(rows, channel.Row(
			channel.Option{Label: "💸 Send Funds", Data: "send_funds"},
		))
	}
	return rows
}

func walletMenuRows(connected bool) [][]channel.Option {
	if !connected {
		return append(changeWalletRows(), backRow())
	}
	return [][]channel.Option{
		channel.Row(
			channel.Option{Label: "💸 Send Funds", Data: "send_funds"},
			channel.Option{Label: "🔄 Change Wallet", Data: "change_wallet"},
		),
		channel.Row(
			channel.Option{Label: "🔌 Disconnect", Data: "disconnect_wallet"},
		),
		backRow(),
	}
}

func changeWalletRows() [][]channel.Option {
	return [][]channel.Option{
		channel.Row(
			channel.Option{Label: "✨ Create Wallet", Data: "create_wallet"},
			channel.Option{Label: "📥 Import Wallet", Data: "import_wallet"},
		),
	}
}

func tokenMenuRows() [][]channel.Option {
	return [][]channel.Option{
		channel.Row(
			channel.Option{Label: "🚀 Create Token", Data: "create_token"},
			channel.Option{Label: "📋 My Tokens", Data: "my_tokens"},
		),
		channel.Row(
			channel.Option{Label: "📤 Transfer Token", Data: "transfer_token"},
		),
		backRow(),
	}
}

func networkMenuRows() [][]channel.Option {
	rows := make([][]channel.Option, 0, len(ledger.ChainNames())+1)
	for _, name := range ledger.ChainNames() {
		chain, err := ledger.ChainByName(name)
		if err != nil {
			continue
		}
		rows = append(rows, channel.Row(channel.Option{
			Label: chain.DisplayName,
			Data:  "switch_to_chain:" + chain.Name,
		}))
	}
	return append(rows, backRow())
}

func backRow() []channel.Option {
	return channel.Row(channel.Option{Label: "⬅️ Back", Data: "back_to_main"})
}
