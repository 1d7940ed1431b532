// Package flow executes the assistant's multi-step wallet operations as
// explicit step sequences over the session store and dialog registry.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/chainvalet/chainvalet/internal/channel"
	"github.com/chainvalet/chainvalet/internal/ledger"
	"github.com/chainvalet/chainvalet/internal/model/wallet"
	"github.com/chainvalet/chainvalet/internal/service/dialog"
	"github.com/chainvalet/chainvalet/internal/service/ens"
	"github.com/chainvalet/chainvalet/internal/store"
)

// Deps collects everything a flow can touch.
type Deps struct {
	Sessions *wallet.Store
	Dialogs  *dialog.Registry
	Channel  channel.Channel
	Ledger   ledger.Client
	Tokens   store.TokenRegistry
	Names    ens.NameService
	Artifact *ledger.Artifact

	// MinDeployBalance is the native-currency floor for contract deployment.
	MinDeployBalance *big.Int
	// ConfirmWait bounds how long a flow waits for a mined receipt.
	ConfirmWait time.Duration
}

// Engine executes flow definitions, one active flow per conversation.
type Engine struct {
	sessions *wallet.Store
	dialogs  *dialog.Registry
	ch       channel.Channel
	ledger   ledger.Client
	tokens   store.TokenRegistry
	names    ens.NameService
	artifact *ledger.Artifact

	minDeployBalance *big.Int
	confirmWait      time.Duration

	mu     sync.Mutex
	active map[string]string
	flows  map[string]*Definition
}

// NewEngine builds the engine and registers the built-in flows.
func NewEngine(deps Deps) *Engine {
	minBalance := deps.MinDeployBalance
	if minBalance == nil {
		// 0.01 native currency at 18 decimals.
		minBalance = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	}
	confirmWait := deps.ConfirmWait
	if confirmWait <= 0 {
		confirmWait = 2 * time.Minute
	}

	e := &Engine{
		sessions:         deps.Sessions,
		dialogs:          deps.Dialogs,
		ch:               deps.Channel,
		ledger:           deps.Ledger,
		tokens:           deps.Tokens,
		names:            deps.Names,
		artifact:         deps.Artifact,
		minDeployBalance: minBalance,
		confirmWait:      confirmWait,
		active:           make(map[string]string),
		flows:            make(map[string]*Definition),
	}
	e.registerDefaults()
	return e
}

// Register adds a flow definition. Registering an existing id replaces it.
func (e *Engine) Register(def *Definition) {
	e.mu.Lock()
	e.flows[def.ID] = def
	e.mu.Unlock()
}

// ActiveFlow reports which flow, if any, is running for the conversation.
func (e *Engine) ActiveFlow(conversationID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.active[conversationID]
	return id, ok
}

// Start begins executing a flow for the conversation. Gating failures
// (unknown flow, no session, another active flow, balance guard) are
// returned synchronously and leave no state behind; the caller turns them
// into exactly one chat message.
func (e *Engine) Start(ctx context.Context, conversationID, flowID string, args map[string]string) error {
	e.mu.Lock()
	def, ok := e.flows[flowID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, flowID)
	}

	if def.RequiresSession && !e.sessions.IsConnected(conversationID) {
		return ErrNotConnected
	}

	if def.GuardMinBalance {
		if err := e.checkDeployBalance(ctx, conversationID); err != nil {
			return err
		}
	}

	e.mu.Lock()
	if activeID, busy := e.active[conversationID]; busy {
		e.mu.Unlock()
		return fmt.Errorf("%w (%s)", ErrFlowAlreadyActive, activeID)
	}
	e.active[conversationID] = flowID
	e.mu.Unlock()

	rc := &run{
		engine:         e,
		conversationID: conversationID,
		def:            def,
		collected:      make(map[string]string, len(args)),
	}
	for k, v := range args {
		rc.collected[k] = v
	}

	go e.runFlow(ctx, rc)
	return nil
}

func (e *Engine) runFlow(ctx context.Context, rc *run) {
	defer func() {
		// No dangling pending step may survive the flow.
		e.dialogs.Cancel(rc.conversationID)
		e.mu.Lock()
		delete(e.active, rc.conversationID)
		e.mu.Unlock()
	}()

	for i, step := range rc.def.Steps {
		rc.stepIndex = i
		if err := step.run(ctx, rc); err != nil {
			e.finish(ctx, rc, err)
			return
		}
	}
	log.Printf("[flow] %s completed for conversation=%s", rc.def.ID, rc.conversationID)
}

// finish sends the single terminal message for a failed or cancelled flow.
// Collected fields die with the run and are never reused.
func (e *Engine) finish(ctx context.Context, rc *run, err error) {
	log.Printf("[flow] %s terminated for conversation=%s at step=%d: %v",
		rc.def.ID, rc.conversationID, rc.stepIndex, err)

	switch {
	case errors.Is(err, errUserCancelled), errors.Is(err, errHandled):
		// Terminal message already sent by the step.
	case errors.Is(err, dialog.ErrCancelled), errors.Is(err, context.Canceled):
		rc.sendText(ctx, "🚫 This operation was cancelled.")
	case errors.Is(err, dialog.ErrTimedOut):
		rc.sendText(ctx, "⏲ Timed out waiting for a reply. Operation cancelled.")
	case errors.Is(err, ErrInsufficientBalance):
		rc.sendText(ctx, "⚠️ Insufficient balance for this operation.")
	case errors.Is(err, ledger.ErrInvalidSecret):
		rc.sendText(ctx, "❌ Invalid private key. Please try again.")
	case errors.Is(err, ens.ErrRegistrarUnavailable):
		rc.sendText(ctx, "❌ Name registration is not available right now.")
	case errors.Is(err, ErrNoTokens):
		rc.sendText(ctx, "🪙 You haven't deployed any tokens yet.")
	default:
		rc.sendText(ctx, "❌ Sorry, something went wrong talking to the network. Please try again later.")
	}
}

// checkDeployBalance enforces the minimum balance before a deploy flow may
// start; no ledger mutation happens when it fails.
func (e *Engine) checkDeployBalance(ctx context.Context, conversationID string) error {
	sess, ok := e.sessions.Get(conversationID)
	if !ok {
		return ErrNotConnected
	}
	balance, err := e.ledger.Balance(ctx, sess.Handle)
	if err != nil {
		return fmt.Errorf("balance check: %w", err)
	}
	if balance.Cmp(e.minDeployBalance) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// WalletDetails renders the conversation's wallet summary for menus.
func (e *Engine) WalletDetails(ctx context.Context, conversationID string) string {
	sess, ok := e.sessions.Get(conversationID)
	if !ok {
		return "❌ Wallet not connected. Please create or import a wallet."
	}

	chain := sess.Handle.Chain()
	details := fmt.Sprintf("💼 Connected: %s\n🌐 Network: %s", sess.Handle.Address(), chain.DisplayName)
	if balance, err := e.ledger.Balance(ctx, sess.Handle); err == nil {
		details += fmt.Sprintf("\n💰 Balance: %s %s", ledger.FormatAmount(balance, chain.Decimals), chain.Symbol)
	}
	return details
}

// run is the per-execution state of one flow: the pending step bookkeeping.
type run struct {
	engine         *Engine
	conversationID string
	def            *Definition
	stepIndex      int
	collected      map[string]string
}

func (rc *run) sendText(ctx context.Context, text string) {
	if _, err := rc.engine.ch.SendText(ctx, rc.conversationID, text); err != nil {
		log.Printf("[flow] send to conversation=%s failed: %v", rc.conversationID, err)
	}
}

func (rc *run) session() (wallet.Session, bool) {
	return rc.engine.sessions.Get(rc.conversationID)
}
