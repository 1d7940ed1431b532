// Package ledger mediates all blockchain access for the assistant: account
// derivation, balance queries, contract deployment and value transfers.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrInvalidSecret = errors.New("invalid private key")
	ErrUnknownChain  = errors.New("unknown chain")
)

// Handle bundles an account with its current network binding. It is owned
// exclusively by one wallet session and never shared across conversations.
type Handle struct {
	address string
	chain   Chain
	key     *ecdsa.PrivateKey
}

// NewHandle binds an address to a chain. Client implementations that keep
// key material elsewhere can use it to produce session handles.
func NewHandle(address string, chain Chain) *Handle {
	return &Handle{address: address, chain: chain}
}

// Address returns the 0x-prefixed account address.
func (h *Handle) Address() string { return h.address }

// Chain returns the network the handle is currently bound to.
func (h *Handle) Chain() Chain { return h.chain }

// Deployment is the outcome of a successful contract deployment.
type Deployment struct {
	TxHash          string
	ContractAddress string
}

// Receipt is a confirmed transaction receipt.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Success     bool
}

// Client is the capability the flow engine uses to touch the chain.
// Implementations must not retry mutating calls on their own.
type Client interface {
	// NewAccount generates a fresh account bound to the named chain and
	// returns its handle together with the hex-encoded private key.
	NewAccount(ctx context.Context, chainName string) (*Handle, string, error)

	// DeriveAccount rebuilds an account from a hex private key.
	// Fails with ErrInvalidSecret when the secret is malformed.
	DeriveAccount(ctx context.Context, secret, chainName string) (*Handle, error)

	// Balance returns the native-currency balance in wei.
	Balance(ctx context.Context, h *Handle) (*big.Int, error)

	// DeployContract deploys the token artifact with the given constructor
	// arguments on the handle's current chain.
	DeployContract(ctx context.Context, h *Handle, art *Artifact, name, symbol string, supply *big.Int) (*Deployment, error)

	// SendValue transfers native currency to the recipient address.
	SendValue(ctx context.Context, h *Handle, to string, amount *big.Int) (string, error)

	// TransferToken performs an ERC-20 transfer on a previously deployed token.
	TransferToken(ctx context.Context, h *Handle, token, to string, amount *big.Int) (string, error)

	// WaitForConfirmation blocks until the transaction is mined or ctx ends.
	WaitForConfirmation(ctx context.Context, h *Handle, txHash string) (*Receipt, error)

	// SwitchChain rebinds the account to another network, preserving the key.
	SwitchChain(ctx context.Context, h *Handle, chainName string) (*Handle, error)
}

// ParseAmount converts a human decimal amount ("0.01") to base units.
func ParseAmount(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok || f.Sign() < 0 {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Mul(f, scale)
	wei, _ := f.Int(nil)
	return wei, nil
}

// FormatAmount renders base units as a trimmed decimal string.
func FormatAmount(wei *big.Int, decimals int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetPrec(256).SetInt(wei)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Quo(f, scale)
	out := f.Text('f', 6)
	out = strings.TrimRight(out, "0")
	out = strings.TrimRight(out, ".")
	if out == "" {
		return "0"
	}
	return out
}

// IsHexAddress reports whether s looks like a 0x-prefixed 20-byte address.
func IsHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 42 {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
