package wallet_test

import (
	"testing"

	"github.com/chainvalet/chainvalet/internal/ledger"
	"github.com/chainvalet/chainvalet/internal/model/wallet"
)

func testSession(t *testing.T, chainName string) wallet.Session {
	t.Helper()
	chain, err := ledger.ChainByName(chainName)
	if err != nil {
		t.Fatalf("chain %s: %v", chainName, err)
	}
	return wallet.NewSession(ledger.NewHandle("0x1234567890123456789012345678901234567890", chain))
}

func TestPutGet(t *testing.T) {
	s := wallet.NewStore()

	if _, ok := s.Get("conv"); ok {
		t.Fatal("empty store returned a session")
	}
	if s.IsConnected("conv") {
		t.Fatal("empty store reports connected")
	}

	s.Put("conv", testSession(t, ledger.DefaultChainName))
	sess, ok := s.Get("conv")
	if !ok || !s.IsConnected("conv") {
		t.Fatal("stored session not found")
	}
	if sess.NetworkID != ledger.DefaultChainName {
		t.Fatalf("network %q, want %q", sess.NetworkID, ledger.DefaultChainName)
	}
}

func TestPutReplaces(t *testing.T) {
	s := wallet.NewStore()

	s.Put("conv", testSession(t, ledger.DefaultChainName))
	s.Put("conv", testSession(t, "gnosis"))

	sess, _ := s.Get("conv")
	if sess.NetworkID != "gnosis" {
		t.Fatalf("network %q, want gnosis", sess.NetworkID)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := wallet.NewStore()

	s.Put("conv", testSession(t, ledger.DefaultChainName))
	s.Remove("conv")
	if s.IsConnected("conv") {
		t.Fatal("session survived removal")
	}

	// Removing again must not panic or error.
	s.Remove("conv")
}

func TestConversationsAreIsolated(t *testing.T) {
	s := wallet.NewStore()

	s.Put("a", testSession(t, ledger.DefaultChainName))
	if s.IsConnected("b") {
		t.Fatal("session leaked across conversations")
	}

	s.Remove("b")
	if !s.IsConnected("a") {
		t.Fatal("removing b must not touch a")
	}
}
