package ledger

import "fmt"

// Chain describes one supported EVM network.
type Chain struct {
	ID          int64
	Name        string
	DisplayName string
	Symbol      string
	Decimals    int
	RPCURLs     []string
	ExplorerURL string
}

// DefaultChainName is the network new wallets are bound to.
const DefaultChainName = "airDaoMainnet"

var chains = map[string]Chain{
	"airDaoMainnet": {
		ID:          16718,
		Name:        "airDaoMainnet",
		DisplayName: "AirDAO Mainnet",
		Symbol:      "AMB",
		Decimals:    18,
		RPCURLs:     []string{"https://rpc.airdao.io", "https://network.ambrosus.io"},
		ExplorerURL: "https://airdao.io/explorer",
	},
	"airDaoTestnet": {
		ID:          22040,
		Name:        "airDaoTestnet",
		DisplayName: "AirDAO Testnet",
		Symbol:      "AMB",
		Decimals:    18,
		RPCURLs:     []string{"https://network.ambrosus-test.io"},
		ExplorerURL: "https://testnet.airdao.io/explorer",
	},
	"rootstock": {
		ID:          30,
		Name:        "rootstock",
		DisplayName: "Rootstock",
		Symbol:      "RBTC",
		Decimals:    18,
		RPCURLs:     []string{"https://public-node.rsk.co"},
		ExplorerURL: "https://explorer.rootstock.io",
	},
	"gnosis": {
		ID:          100,
		Name:        "gnosis",
		DisplayName: "Gnosis",
		Symbol:      "xDAI",
		Decimals:    18,
		RPCURLs:     []string{"https://rpc.gnosischain.com", "https://gnosis.drpc.org"},
		ExplorerURL: "https://gnosisscan.io",
	},
	"mainnet": {
		ID:          1,
		Name:        "mainnet",
		DisplayName: "Ethereum",
		Symbol:      "ETH",
		Decimals:    18,
		RPCURLs:     []string{"https://eth.llamarpc.com", "https://rpc.ankr.com/eth"},
		ExplorerURL: "https://etherscan.io",
	},
}

// chainOrder fixes the order networks are presented in menus.
var chainOrder = []string{"airDaoMainnet", "airDaoTestnet", "rootstock", "gnosis", "mainnet"}

// ChainByName looks up a supported chain by its short name.
func ChainByName(name string) (Chain, error) {
	c, ok := chains[name]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %s", ErrUnknownChain, name)
	}
	return c, nil
}

// ChainNames returns the short names of all supported chains in menu order.
func ChainNames() []string {
	names := make([]string, len(chainOrder))
	copy(names, chainOrder)
	return names
}
