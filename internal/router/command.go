// Package router decodes inbound commands and menu selections into typed
// command values and maps each one to a flow start or a read-only query.
package router

import "strings"

// Command is one decoded user intent. Payload strings are split exactly once,
// here at the boundary; handlers never parse raw callback data themselves.
type Command interface{ isCommand() }

type (
	// Start shows the main menu (command /start, callback back_to_main).
	Start struct{}
	// Help lists the available commands.
	Help struct{}
	// WalletMenu shows wallet options.
	WalletMenu struct{}
	// ChangeWallet shows the create/import submenu.
	ChangeWallet struct{}
	// TokensMenu shows token options.
	TokensMenu struct{}
	// NetworkSettings shows the current network and switch option.
	NetworkSettings struct{}
	// ConfirmKeySaved acknowledges the private-key backup notice.
	ConfirmKeySaved struct{}

	// CreateWallet starts the wallet-creation flow.
	CreateWallet struct{}
	// ImportWallet starts the import flow; Secret may be empty, in which
	// case the flow prompts for it.
	ImportWallet struct{ Secret string }
	// DisconnectWallet starts the disconnect flow.
	DisconnectWallet struct{}
	// SwitchNetwork starts the network-switch flow with a chain menu.
	SwitchNetwork struct{}
	// SwitchToChain starts the network-switch flow for a known chain.
	SwitchToChain struct{ Chain string }
	// CreateToken starts the token-creation flow.
	CreateToken struct{}
	// DeployToken starts token creation with every field prefilled.
	DeployToken struct{ Chain, Name, Symbol, Supply string }
	// TransferToken starts the ERC-20 transfer flow.
	TransferToken struct{}
	// SendFunds starts the native-currency transfer flow.
	SendFunds struct{}
	// RegisterName starts the ENS registration flow.
	RegisterName struct{}

	// MyTokens lists tokens the conversation deployed.
	MyTokens struct{}
	// TokenInfo fetches a market snapshot.
	TokenInfo struct{ Token string }
	// WhaleAlerts fetches recent large transfers once.
	WhaleAlerts struct{}
	// NewsReport fetches the latest trending headline.
	NewsReport struct{}
	// SubscribeWhales adds the conversation to the periodic alert push.
	SubscribeWhales struct{}
	// UnsubscribeWhales removes it again.
	UnsubscribeWhales struct{}
	// ResolveName resolves an ENS name or reverse-resolves an address.
	ResolveName struct{ Name string }
	// ExpiringNames lists soon-to-expire ENS names; Length 0 means any.
	ExpiringNames struct{ Length int }
)

func (Start) isCommand()             {}
func (Help) isCommand()              {}
func (WalletMenu) isCommand()        {}
func (ChangeWallet) isCommand()      {}
func (TokensMenu) isCommand()        {}
func (NetworkSettings) isCommand()   {}
func (ConfirmKeySaved) isCommand()   {}
func (CreateWallet) isCommand()      {}
func (ImportWallet) isCommand()      {}
func (DisconnectWallet) isCommand()  {}
func (SwitchNetwork) isCommand()     {}
func (SwitchToChain) isCommand()     {}
func (CreateToken) isCommand()       {}
func (DeployToken) isCommand()       {}
func (TransferToken) isCommand()     {}
func (SendFunds) isCommand()         {}
func (RegisterName) isCommand()      {}
func (MyTokens) isCommand()          {}
func (TokenInfo) isCommand()         {}
func (WhaleAlerts) isCommand()       {}
func (NewsReport) isCommand()        {}
func (SubscribeWhales) isCommand()   {}
func (UnsubscribeWhales) isCommand() {}
func (ResolveName) isCommand()       {}
func (ExpiringNames) isCommand()     {}

// ParseText decodes a slash command. It reports false for anything that is
// not a recognized command, letting the caller fall back to the natural
// language interpreter.
func ParseText(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, false
	}
	fields := strings.Fields(text)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "/start":
		return Start{}, true
	case "/help":
		return Help{}, true
	case "/createwallet":
		return CreateWallet{}, true
	case "/importwallet":
		cmd := ImportWallet{}
		if len(args) > 0 {
			cmd.Secret = args[0]
		}
		return cmd, true
	case "/disconnect":
		return DisconnectWallet{}, true
	case "/switchnetwork":
		return SwitchNetwork{}, true
	case "/createtoken":
		return CreateToken{}, true
	case "/mytokens":
		return MyTokens{}, true
	case "/transfertoken":
		return TransferToken{}, true
	case "/sendfunds", "/sendmoney":
		return SendFunds{}, true
	case "/tokeninfo":
		if len(args) == 0 {
			return nil, false
		}
		return TokenInfo{Token: strings.Join(args, " ")}, true
	case "/whalealerts":
		return WhaleAlerts{}, true
	case "/newsreport":
		return NewsReport{}, true
	case "/subscribewhales":
		return SubscribeWhales{}, true
	case "/unsubscribewhales":
		return UnsubscribeWhales{}, true
	case "/ens":
		if len(args) == 0 {
			return nil, false
		}
		return ResolveName{Name: args[0]}, true
	case "/ensregister":
		return RegisterName{}, true
	case "/ensexpiry":
		cmd := ExpiringNames{}
		if len(args) > 0 {
			cmd.Length = atoiOrZero(args[0])
		}
		return cmd, true
	default:
		return nil, false
	}
}

// ParseCallback decodes a menu selection's callback data.
func ParseCallback(data string) (Command, bool) {
	head, rest, _ := strings.Cut(data, ":")

	switch head {
	case "back_to_main":
		return Start{}, true
	case "wallet_menu":
		return WalletMenu{}, true
	case "change_wallet":
		return ChangeWallet{}, true
	case "tokens_menu":
		return TokensMenu{}, true
	case "network_settings":
		return NetworkSettings{}, true
	case "confirm_private_key":
		return ConfirmKeySaved{}, true
	case "create_wallet":
		return CreateWallet{}, true
	case "import_wallet":
		return ImportWallet{}, true
	case "disconnect_wallet":
		return DisconnectWallet{}, true
	case "switch_network":
		return SwitchNetwork{}, true
	case "switch_to_chain":
		if rest == "" {
			return nil, false
		}
		return SwitchToChain{Chain: rest}, true
	case "create_token":
		return CreateToken{}, true
	case "deploy_token":
		parts := strings.Split(rest, ":")
		if len(parts) != 4 {
			return nil, false
		}
		return DeployToken{Chain: parts[0], Name: parts[1], Symbol: parts[2], Supply: parts[3]}, true
	case "my_tokens":
		return MyTokens{}, true
	case "transfer_token":
		return TransferToken{}, true
	case "send_funds":
		return SendFunds{}, true
	case "whale_alerts":
		return WhaleAlerts{}, true
	case "ens_register":
		return RegisterName{}, true
	default:
		return nil, false
	}
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
