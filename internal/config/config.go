package config

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the assistant reads at startup.
type Config struct {
	Server ServerConfig
	Wallet WalletConfig
	Market MarketConfig
	ENS    ENSConfig
	AI     AIConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	walletCfg, err := loadWalletConfig()
	if err != nil {
		return nil, err
	}

	marketCfg, err := loadMarketConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Wallet: walletCfg,
		Market: marketCfg,
		ENS:    loadENSConfig(),
		AI:     ai,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// WalletConfig describes wallet, flow, and deployment settings.
type WalletConfig struct {
	// StepTimeout bounds how long a flow waits for one reply; 0 disables it.
	StepTimeout time.Duration
	// ConfirmWait bounds how long a flow waits for a mined receipt.
	ConfirmWait time.Duration
	// MinDeployBalance is the native-currency floor for token deployment, in wei.
	MinDeployBalance *big.Int
	// ArtifactPath points at the compiled ERC-20 artifact JSON. Empty disables
	// token deployment.
	ArtifactPath string
	// TokenDBPath is the sqlite file backing the token registry.
	TokenDBPath string
}

func loadWalletConfig() (WalletConfig, error) {
	stepTimeout, err := parseDurationEnv("FLOW_STEP_TIMEOUT", 5*time.Minute)
	if err != nil {
		return WalletConfig{}, err
	}

	confirmWait, err := parseDurationEnv("TX_CONFIRM_WAIT", 2*time.Minute)
	if err != nil {
		return WalletConfig{}, err
	}

	// Default 0.01 native currency at 18 decimals.
	minBalance := new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	if raw := strings.TrimSpace(os.Getenv("MIN_DEPLOY_BALANCE_WEI")); raw != "" {
		parsed, ok := new(big.Int).SetString(raw, 10)
		if !ok || parsed.Sign() < 0 {
			return WalletConfig{}, fmt.Errorf("invalid MIN_DEPLOY_BALANCE_WEI value %q", raw)
		}
		minBalance = parsed
	}

	return WalletConfig{
		StepTimeout:      stepTimeout,
		ConfirmWait:      confirmWait,
		MinDeployBalance: minBalance,
		ArtifactPath:     strings.TrimSpace(os.Getenv("TOKEN_ARTIFACT_PATH")),
		TokenDBPath:      getEnvOrDefault("TOKEN_DB_PATH", "chainvalet.db"),
	}, nil
}

// MarketConfig describes the market data sources.
type MarketConfig struct {
	CoinGeckoURL   string
	WhaleAlertURL  string
	WhaleAlertKey  string
	CryptoPanicURL string
	CryptoPanicKey string
	// WhaleMinUSD is the transfer-size floor for alerts.
	WhaleMinUSD int64
	// WhalePollInterval is the background poll cadence.
	WhalePollInterval time.Duration
}

func loadMarketConfig() (MarketConfig, error) {
	interval, err := parseDurationEnv("WHALE_POLL_INTERVAL", 5*time.Minute)
	if err != nil {
		return MarketConfig{}, err
	}

	minUSD := int64(1_000_000)
	if raw := strings.TrimSpace(os.Getenv("WHALE_MIN_USD")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return MarketConfig{}, fmt.Errorf("invalid WHALE_MIN_USD value %q", raw)
		}
		minUSD = parsed
	}

	return MarketConfig{
		CoinGeckoURL:      strings.TrimSpace(os.Getenv("COINGECKO_BASE_URL")),
		WhaleAlertURL:     strings.TrimSpace(os.Getenv("WHALE_ALERT_BASE_URL")),
		WhaleAlertKey:     strings.TrimSpace(os.Getenv("WHALE_ALERT_API_KEY")),
		CryptoPanicURL:    strings.TrimSpace(os.Getenv("CRYPTOPANIC_BASE_URL")),
		CryptoPanicKey:    strings.TrimSpace(os.Getenv("CRYPTOPANIC_API_KEY")),
		WhaleMinUSD:       minUSD,
		WhalePollInterval: interval,
	}, nil
}

// ENSConfig describes the name-service endpoints.
type ENSConfig struct {
	SubgraphURL  string
	RegistrarURL string
}

func loadENSConfig() ENSConfig {
	return ENSConfig{
		SubgraphURL: getEnvOrDefault("ENS_SUBGRAPH_URL",
			"https://api.thegraph.com/subgraphs/name/ensdomains/ens"),
		RegistrarURL: strings.TrimSpace(os.Getenv("ENS_REGISTRAR_URL")),
	}
}

// AIConfig describes the optional natural-language command interpreter.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
