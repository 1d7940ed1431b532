package ledger

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	valueTransferGas  = 21000
	tokenTransferGas  = 90000
	deployGasFallback = 3_000_000
	receiptPollEvery  = 2 * time.Second
)

// EthClient is the JSON-RPC backed Client. Each call dials the handle's
// chain endpoints in order, falling back to the next on failure.
type EthClient struct {
	dialTimeout time.Duration
}

// NewEthClient constructs the RPC-backed ledger client.
func NewEthClient(dialTimeout time.Duration) *EthClient {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &EthClient{dialTimeout: dialTimeout}
}

func (c *EthClient) NewAccount(ctx context.Context, chainName string) (*Handle, string, error) {
	chain, err := ChainByName(chainName)
	if err != nil {
		return nil, "", err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}

	handle := &Handle{
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		chain:   chain,
		key:     key,
	}
	secret := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))
	return handle, secret, nil
}

func (c *EthClient) DeriveAccount(_ context.Context, secret, chainName string) (*Handle, error) {
	chain, err := ChainByName(chainName)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(secret), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	return &Handle{
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		chain:   chain,
		key:     key,
	}, nil
}

func (c *EthClient) Balance(ctx context.Context, h *Handle) (*big.Int, error) {
	var balance *big.Int
	err := c.withConn(ctx, h.chain, func(conn *ethclient.Client) error {
		var err error
		balance, err = conn.BalanceAt(ctx, common.HexToAddress(h.address), nil)
		return err
	})
	return balance, err
}

func (c *EthClient) DeployContract(ctx context.Context, h *Handle, art *Artifact, name, symbol string, supply *big.Int) (*Deployment, error) {
	ctorArgs, err := art.ABI.Pack("", name, symbol, supply)
	if err != nil {
		return nil, fmt.Errorf("pack constructor: %w", err)
	}
	data := append(append([]byte{}, art.Bytecode...), ctorArgs...)

	var dep *Deployment
	err = c.withConn(ctx, h.chain, func(conn *ethclient.Client) error {
		from := common.HexToAddress(h.address)
		nonce, err := conn.PendingNonceAt(ctx, from)
		if err != nil {
			return fmt.Errorf("nonce: %w", err)
		}
		gasPrice, err := conn.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("gas price: %w", err)
		}
		gasLimit, err := conn.EstimateGas(ctx, ethereum.CallMsg{From: from, Data: data})
		if err != nil {
			gasLimit = deployGasFallback
		}

		tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)
		signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(h.chain.ID)), h.key)
		if err != nil {
			return fmt.Errorf("sign: %w", err)
		}
		if err := conn.SendTransaction(ctx, signed); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		dep = &Deployment{
			TxHash:          signed.Hash().Hex(),
			ContractAddress: crypto.CreateAddress(from, nonce).Hex(),
		}
		return nil
	})
	return dep, err
}

func (c *EthClient) SendValue(ctx context.Context, h *Handle, to string, amount *big.Int) (string, error) {
	var hash string
	err := c.withConn(ctx, h.chain, func(conn *ethclient.Client) error {
		signed, err := c.signTransfer(ctx, conn, h, common.HexToAddress(to), amount, valueTransferGas, nil)
		if err != nil {
			return err
		}
		if err := conn.SendTransaction(ctx, signed); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		hash = signed.Hash().Hex()
		return nil
	})
	return hash, err
}

func (c *EthClient) TransferToken(ctx context.Context, h *Handle, token, to string, amount *big.Int) (string, error) {
	// transfer(address,uint256) selector + packed args.
	data := make([]byte, 0, 68)
	data = append(data, 0xa9, 0x05, 0x9c, 0xbb)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)

	var hash string
	err := c.withConn(ctx, h.chain, func(conn *ethclient.Client) error {
		signed, err := c.signTransfer(ctx, conn, h, common.HexToAddress(token), big.NewInt(0), tokenTransferGas, data)
		if err != nil {
			return err
		}
		if err := conn.SendTransaction(ctx, signed); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		hash = signed.Hash().Hex()
		return nil
	})
	return hash, err
}

func (c *EthClient) WaitForConfirmation(ctx context.Context, h *Handle, txHash string) (*Receipt, error) {
	var receipt *Receipt
	err := c.withConn(ctx, h.chain, func(conn *ethclient.Client) error {
		ticker := time.NewTicker(receiptPollEvery)
		defer ticker.Stop()
		for {
			r, err := conn.TransactionReceipt(ctx, common.HexToHash(txHash))
			if err == nil {
				receipt = &Receipt{
					TxHash:      txHash,
					BlockNumber: r.BlockNumber.Uint64(),
					Success:     r.Status == types.ReceiptStatusSuccessful,
				}
				return nil
			}
			if err != ethereum.NotFound {
				return fmt.Errorf("receipt: %w", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
	return receipt, err
}

func (c *EthClient) SwitchChain(_ context.Context, h *Handle, chainName string) (*Handle, error) {
	chain, err := ChainByName(chainName)
	if err != nil {
		return nil, err
	}
	return &Handle{address: h.address, chain: chain, key: h.key}, nil
}

func (c *EthClient) signTransfer(ctx context.Context, conn *ethclient.Client, h *Handle, to common.Address, value *big.Int, gasLimit uint64, data []byte) (*types.Transaction, error) {
	nonce, err := conn.PendingNonceAt(ctx, common.HexToAddress(h.address))
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := conn.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(h.chain.ID)), h.key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return signed, nil
}

// withConn dials the chain's endpoints in order and runs fn against the
// first one that answers. Fallback happens only on dial failure; once a
// connection is up, fn runs exactly once so mutating calls are never retried.
func (c *EthClient) withConn(ctx context.Context, chain Chain, fn func(*ethclient.Client) error) error {
	var lastErr error
	for _, url := range chain.RPCURLs {
		dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		conn, err := ethclient.DialContext(dialCtx, url)
		cancel()
		if err != nil {
			log.Printf("[ledger] dial %s failed: %v", url, err)
			lastErr = err
			continue
		}
		defer conn.Close()
		return fn(conn)
	}
	return fmt.Errorf("all %s endpoints failed: %w", chain.Name, lastErr)
}
