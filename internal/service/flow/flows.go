package flow

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/chainvalet/chainvalet/internal/channel"
	"github.com/chainvalet/chainvalet/internal/ledger"
	"github.com/chainvalet/chainvalet/internal/model/wallet"
	"github.com/chainvalet/chainvalet/internal/store"
)

// Flow ids, one per user-facing operation.
const (
	FlowCreateWallet  = "create_wallet"
	FlowImportWallet  = "import_wallet"
	FlowDisconnect    = "disconnect_wallet"
	FlowSwitchNetwork = "switch_network"
	FlowCreateToken   = "create_token"
	FlowSendFunds     = "send_funds"
	FlowTransferToken = "transfer_token"
	FlowRegisterName  = "ens_register"
)

func (e *Engine) registerDefaults() {
	e.Register(&Definition{
		ID: FlowCreateWallet,
		Steps: []Step{
			actionStep{e.createWalletAction},
		},
	})

	e.Register(&Definition{
		ID: FlowImportWallet,
		Steps: []Step{
			promptStep{field: "privateKey", prompt: "🔑 Please enter your private key:", validate: nonEmpty("private key")},
			actionStep{e.importWalletAction},
		},
	})

	e.Register(&Definition{
		ID:              FlowDisconnect,
		RequiresSession: true,
		Steps: []Step{
			actionStep{e.disconnectAction},
		},
	})

	e.Register(&Definition{
		ID:              FlowSwitchNetwork,
		RequiresSession: true,
		Steps: []Step{
			choiceStep{field: "chain", prompt: "🔄 Select a network to switch to:", options: chainOptions},
			actionStep{e.switchNetworkAction},
		},
	})

	e.Register(&Definition{
		ID:              FlowCreateToken,
		RequiresSession: true,
		GuardMinBalance: true,
		Steps: []Step{
			promptStep{field: "name", prompt: "📛 Enter the token name:", validate: nonEmpty("token name")},
			promptStep{field: "symbol", prompt: "🔤 Enter the token symbol:", validate: validSymbol},
			promptStep{field: "supply", prompt: "🔢 Enter the initial supply:", validate: positiveInteger},
			confirmStep{summary: createTokenSummary},
			actionStep{e.createTokenAction},
		},
	})

	e.Register(&Definition{
		ID:              FlowSendFunds,
		RequiresSession: true,
		Steps: []Step{
			promptStep{field: "recipient", prompt: "📬 Enter the recipient's address (0x… or ENS name):", validate: validRecipient},
			promptStep{field: "amount", prompt: "💵 Enter the amount to send:", validate: positiveDecimal},
			confirmStep{summary: sendFundsSummary},
			actionStep{e.sendFundsAction},
		},
	})

	e.Register(&Definition{
		ID:              FlowTransferToken,
		RequiresSession: true,
		Steps: []Step{
			choiceStep{field: "token", prompt: "🪙 Pick one of your tokens:", options: e.tokenOptions},
			promptStep{field: "recipient", prompt: "📬 Enter the recipient's address:", validate: validAddress},
			promptStep{field: "amount", prompt: "🔢 Enter the amount of tokens:", validate: positiveInteger},
			confirmStep{summary: transferTokenSummary},
			actionStep{e.transferTokenAction},
		},
	})

	e.Register(&Definition{
		ID:              FlowRegisterName,
		RequiresSession: true,
		Steps: []Step{
			promptStep{field: "ensName", prompt: "🏷 Enter the name to register (e.g. myname.eth):", validate: validEnsName},
			confirmStep{summary: registerNameSummary},
			actionStep{e.registerNameAction},
		},
	})
}

// ---- actions ----

func (e *Engine) createWalletAction(ctx context.Context, rc *run) error {
	handle, secret, err := e.ledger.NewAccount(ctx, ledger.DefaultChainName)
	if err != nil {
		return err
	}
	e.sessions.Put(rc.conversationID, wallet.NewSession(handle))

	rc.sendText(ctx, fmt.Sprintf(
		"✅ Wallet created!\n📍 Address: %s\n🔑 Private Key: %s\n⚠️ Keep your private key safe!",
		handle.Address(), secret))
	if _, err := e.ch.SendMenu(ctx, rc.conversationID, "🔐 Save the key somewhere safe, then tap below.",
		[][]channel.Option{channel.Row(channel.Option{Label: "✅ I saved my private key", Data: "confirm_private_key"})}); err != nil {
		log.Printf("[flow] key confirmation menu for conversation=%s failed: %v", rc.conversationID, err)
	}
	return nil
}

func (e *Engine) importWalletAction(ctx context.Context, rc *run) error {
	handle, err := e.ledger.DeriveAccount(ctx, rc.collected["privateKey"], ledger.DefaultChainName)
	if err != nil {
		return err
	}
	e.sessions.Put(rc.conversationID, wallet.NewSession(handle))

	chain := handle.Chain()
	text := fmt.Sprintf("✅ Wallet imported!\n📍 Address: %s", handle.Address())
	if balance, err := e.ledger.Balance(ctx, handle); err == nil {
		text += fmt.Sprintf("\n💰 Balance: %s %s", ledger.FormatAmount(balance, chain.Decimals), chain.Symbol)
	}
	rc.sendText(ctx, text)
	return nil
}

func (e *Engine) disconnectAction(ctx context.Context, rc *run) error {
	e.sessions.Remove(rc.conversationID)
	rc.sendText(ctx, "🔌 You have been disconnected from your wallet.")
	return nil
}

func (e *Engine) switchNetworkAction(ctx context.Context, rc *run) error {
	sess, ok := rc.session()
	if !ok {
		return ErrNotConnected
	}

	chainName := rc.collected["chain"]
	handle, err := e.ledger.SwitchChain(ctx, sess.Handle, chainName)
	if err != nil {
		return err
	}
	e.sessions.Put(rc.conversationID, wallet.NewSession(handle))

	rc.sendText(ctx, fmt.Sprintf("✅ Network switched to %s.\n\n%s",
		handle.Chain().DisplayName, e.WalletDetails(ctx, rc.conversationID)))
	return nil
}

func (e *Engine) createTokenAction(ctx context.Context, rc *run) error {
	sess, ok := rc.session()
	if !ok {
		return ErrNotConnected
	}
	if e.artifact == nil {
		rc.sendText(ctx, "❌ Token deployment is not configured on this assistant.")
		return errHandled
	}

	handle := sess.Handle
	if chainName, ok := rc.collected["chain"]; ok && chainName != handle.Chain().Name {
		// Deploy on the requested chain without moving the session there.
		var err error
		handle, err = e.ledger.SwitchChain(ctx, handle, chainName)
		if err != nil {
			return err
		}
	}

	name := rc.collected["name"]
	symbol := rc.collected["symbol"]
	supply, ok := new(big.Int).SetString(rc.collected["supply"], 10)
	if !ok {
		return fmt.Errorf("parse supply %q", rc.collected["supply"])
	}

	dep, err := e.ledger.DeployContract(ctx, handle, e.artifact, name, symbol, supply)
	if err != nil {
		return err
	}

	if e.tokens != nil {
		record := store.Token{
			ConversationID: rc.conversationID,
			Name:           name,
			Symbol:         symbol,
			Supply:         rc.collected["supply"],
			Address:        dep.ContractAddress,
			TxHash:         dep.TxHash,
			ChainName:      handle.Chain().Name,
		}
		if err := e.tokens.RecordToken(ctx, record); err != nil {
			// The deploy already happened; losing the registry row is not fatal.
			log.Printf("[flow] token registry write failed for conversation=%s: %v", rc.conversationID, err)
		}
	}

	rc.sendText(ctx, fmt.Sprintf(
		"✅ Token deployed successfully!\n📍 Address: %s\n🔗 Tx: %s\n🔍 %s/address/%s",
		dep.ContractAddress, dep.TxHash, handle.Chain().ExplorerURL, dep.ContractAddress))
	return nil
}

func (e *Engine) sendFundsAction(ctx context.Context, rc *run) error {
	sess, ok := rc.session()
	if !ok {
		return ErrNotConnected
	}
	chain := sess.Handle.Chain()

	recipient := rc.collected["recipient"]
	if !ledger.IsHexAddress(recipient) {
		addr, found, err := e.names.ResolveName(ctx, recipient)
		if err != nil {
			return err
		}
		if !found {
			rc.sendText(ctx, fmt.Sprintf("❌ Could not resolve %q to an address.", recipient))
			return errHandled
		}
		recipient = addr
	}

	amount, err := ledger.ParseAmount(rc.collected["amount"], chain.Decimals)
	if err != nil {
		return err
	}

	balance, err := e.ledger.Balance(ctx, sess.Handle)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	hash, err := e.ledger.SendValue(ctx, sess.Handle, recipient, amount)
	if err != nil {
		return err
	}
	rc.sendText(ctx, fmt.Sprintf("✅ Transaction sent! Hash: %s", hash))

	waitCtx, cancel := context.WithTimeout(ctx, e.confirmWait)
	defer cancel()
	receipt, err := e.ledger.WaitForConfirmation(waitCtx, sess.Handle, hash)
	if err != nil {
		rc.sendText(ctx, "⏳ Still waiting for confirmation; check the explorer for the final status.")
		return nil
	}

	text := fmt.Sprintf("✅ Transaction confirmed! Block number: %d", receipt.BlockNumber)
	if newBalance, err := e.ledger.Balance(ctx, sess.Handle); err == nil {
		text += fmt.Sprintf("\n💰 New balance: %s %s", ledger.FormatAmount(newBalance, chain.Decimals), chain.Symbol)
	}
	rc.sendText(ctx, text)
	return nil
}

func (e *Engine) transferTokenAction(ctx context.Context, rc *run) error {
	sess, ok := rc.session()
	if !ok {
		return ErrNotConnected
	}

	amount, ok := new(big.Int).SetString(rc.collected["amount"], 10)
	if !ok {
		return fmt.Errorf("parse amount %q", rc.collected["amount"])
	}
	hash, err := e.ledger.TransferToken(ctx, sess.Handle, rc.collected["token"], rc.collected["recipient"], amount)
	if err != nil {
		return err
	}
	rc.sendText(ctx, fmt.Sprintf("✅ Token transfer sent! Hash: %s", hash))
	return nil
}

func (e *Engine) registerNameAction(ctx context.Context, rc *run) error {
	sess, ok := rc.session()
	if !ok {
		return ErrNotConnected
	}

	name := rc.collected["ensName"]
	owner, found, err := e.names.ResolveName(ctx, name)
	if err != nil {
		return err
	}
	if found {
		rc.sendText(ctx, fmt.Sprintf("❌ %s is already registered to %s.", name, owner))
		return errHandled
	}

	hash, err := e.names.Register(ctx, name, sess.Handle.Address())
	if err != nil {
		return err
	}
	rc.sendText(ctx, fmt.Sprintf("✅ Registration submitted for %s!\n🔗 Tx: %s", name, hash))
	return nil
}

// ---- menu option providers and confirm summaries ----

func chainOptions(_ context.Context, _ *run) ([][]channel.Option, error) {
	var rows [][]channel.Option
	for _, name := range ledger.ChainNames() {
		chain, err := ledger.ChainByName(name)
		if err != nil {
			continue
		}
		rows = append(rows, channel.Row(channel.Option{Label: chain.DisplayName, Data: chain.Name}))
	}
	return rows, nil
}

func (e *Engine) tokenOptions(ctx context.Context, rc *run) ([][]channel.Option, error) {
	tokens, err := e.tokens.TokensByConversation(ctx, rc.conversationID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	var rows [][]channel.Option
	for _, t := range tokens {
		label := fmt.Sprintf("%s (%s)", t.Symbol, shortAddress(t.Address))
		rows = append(rows, channel.Row(channel.Option{Label: label, Data: t.Address}))
	}
	return rows, nil
}

func createTokenSummary(rc *run) string {
	target := "the current network"
	if chainName, ok := rc.collected["chain"]; ok {
		target = chainName
	} else if sess, ok := rc.session(); ok {
		target = sess.Handle.Chain().DisplayName
	}
	return fmt.Sprintf("You are about to deploy token %s (%s) with supply %s on %s.",
		rc.collected["name"], rc.collected["symbol"], rc.collected["supply"], target)
}

func sendFundsSummary(rc *run) string {
	symbol := ""
	if sess, ok := rc.session(); ok {
		symbol = " " + sess.Handle.Chain().Symbol
	}
	return fmt.Sprintf("You are about to send %s%s to %s.",
		rc.collected["amount"], symbol, rc.collected["recipient"])
}

func transferTokenSummary(rc *run) string {
	return fmt.Sprintf("You are about to transfer %s units of token %s to %s.",
		rc.collected["amount"], shortAddress(rc.collected["token"]), rc.collected["recipient"])
}

func registerNameSummary(rc *run) string {
	return fmt.Sprintf("You are about to register %s.", rc.collected["ensName"])
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + "…" + addr[len(addr)-4:]
}
