package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// VaultWhitelistRegistry - сентинел вместо явного списка vault'ов:
// whitelist запрашивается у внешнего реестра (GraphQL API протокола)
const VaultWhitelistRegistry = "morpho-api"

// Config содержит всю конфигурацию приложения
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Bot     BotConfig

	// DatabaseURL - Postgres для истории попыток; пустая строка = без БД
	DatabaseURL string

	// IndexerURL - базовый URL индексера (ponder)
	IndexerURL string

	// RegistryURL - GraphQL endpoint реестра whitelisted vault'ов
	RegistryURL string

	// Chains - конфигурации запускаемых сетей
	Chains []ChainConfig

	// ChainErrors - сети, которые не удалось сконфигурировать.
	// Ошибка одной сети не мешает запуску остальных.
	ChainErrors map[string]error
}

// ServerConfig - настройки ops HTTP сервера (health, metrics, attempts)
type ServerConfig struct {
	Host string
	Port int

	// APITokenHash - bcrypt-хэш bearer-токена для /api; пустой = /api закрыт
	APITokenHash string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// BotConfig - общие для всех сетей настройки движка
type BotConfig struct {
	// AlwaysRealizeBadDebt - реализовывать bad debt даже в убыток
	AlwaysRealizeBadDebt bool

	// CooldownEnabled / CooldownPeriod - троттлинг повторных попыток
	// по одной и той же позиции (market, account)
	CooldownEnabled bool
	CooldownPeriod  time.Duration

	// MaxRouteHops - защита роутера от зацикливания venue'ов
	MaxRouteHops int

	// HTTPTimeout - предел для всех внешних HTTP вызовов
	HTTPTimeout time.Duration

	// OneInchAPIKey - ключ swap API; пустой = venue отключён
	OneInchAPIKey string

	// FlashbotsPrivateKey - ключ подписи бандлов; пустой = прямой broadcast
	FlashbotsPrivateKey string
	FlashbotsRelayURL   string
}

// ChainConfig - конфигурация одной сети
type ChainConfig struct {
	Name    string
	ChainID int64

	RPCURL     string
	PrivateKey string

	MorphoAddress   common.Address
	ExecutorAddress common.Address

	// TreasuryAddress - получатель skim; нулевой адрес = адрес подписанта
	TreasuryAddress common.Address

	// WNative - адрес wrapped-native токена (для оценки стоимости газа)
	WNative common.Address

	// UniswapV3Factory - фабрика пулов; нулевой адрес = канонический
	UniswapV3Factory common.Address

	// VaultWhitelist - явный список vault'ов; пуст, если используется реестр
	VaultWhitelist []common.Address

	// UseRegistry - true если в env указан сентинел "morpho-api"
	UseRegistry bool

	// AdditionalMarkets - рынки, добавляемые к whitelist поверх vault'ов
	AdditionalMarkets []common.Hash

	// LiquidationBufferBps - запас в bps, вычитаемый из seizable collateral
	LiquidationBufferBps int64

	// CheckProfit - гейтить отправку проверкой прибыльности
	CheckProfit bool

	// UseFlashbots - отправка через приватный relay вместо mempool
	UseFlashbots bool

	// BlockInterval - запускать цикл каждые N блоков
	BlockInterval int
}

// Load загружает конфигурацию из переменных окружения
//
// Ошибки конфигурации отдельных сетей собираются в ChainErrors и не
// считаются фатальными: остальные сети должны запуститься.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			APITokenHash: getEnv("API_TOKEN_HASH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Bot: BotConfig{
			AlwaysRealizeBadDebt: getEnvAsBool("ALWAYS_REALIZE_BAD_DEBT", true),
			CooldownEnabled:      getEnvAsBool("COOLDOWN_ENABLED", true),
			CooldownPeriod:       getEnvAsDuration("COOLDOWN_PERIOD", 60*time.Second),
			MaxRouteHops:         getEnvAsInt("MAX_ROUTE_HOPS", 8),
			HTTPTimeout:          getEnvAsDuration("HTTP_TIMEOUT", 15*time.Second),
			OneInchAPIKey:        getEnv("ONE_INCH_SWAP_API_KEY", ""),
			FlashbotsPrivateKey:  getEnv("FLASHBOTS_PRIVATE_KEY", ""),
			FlashbotsRelayURL:    getEnv("FLASHBOTS_RELAY_URL", "https://relay.flashbots.net"),
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
		IndexerURL:  getEnv("INDEXER_URL", "http://localhost:42069"),
		RegistryURL: getEnv("REGISTRY_URL", "https://blue-api.morpho.org/graphql"),
		ChainErrors: make(map[string]error),
	}

	chains := strings.Split(getEnv("CHAINS", ""), ",")
	for _, raw := range chains {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		chain, err := loadChain(name)
		if err != nil {
			cfg.ChainErrors[name] = err
			continue
		}
		cfg.Chains = append(cfg.Chains, chain)
	}

	if len(cfg.Chains) == 0 && len(cfg.ChainErrors) == 0 {
		return nil, fmt.Errorf("config: CHAINS is empty, nothing to run")
	}

	return cfg, nil
}

// loadChain читает секцию CHAIN_<NAME>_* (имя в верхнем регистре)
func loadChain(name string) (ChainConfig, error) {
	prefix := "CHAIN_" + strings.ToUpper(name) + "_"

	chain := ChainConfig{
		Name:                 name,
		ChainID:              int64(getEnvAsInt(prefix+"ID", 0)),
		RPCURL:               getEnv(prefix+"RPC_URL", ""),
		PrivateKey:           getEnv(prefix+"PRIVATE_KEY", ""),
		LiquidationBufferBps: int64(getEnvAsInt(prefix+"LIQUIDATION_BUFFER_BPS", 10)),
		CheckProfit:          getEnvAsBool(prefix+"CHECK_PROFIT", true),
		UseFlashbots:         getEnvAsBool(prefix+"USE_FLASHBOTS", false),
		BlockInterval:        getEnvAsInt(prefix+"BLOCK_INTERVAL", 1),
	}

	if chain.ChainID == 0 {
		return chain, fmt.Errorf("%sID is required", prefix)
	}
	if chain.RPCURL == "" {
		return chain, fmt.Errorf("%sRPC_URL is required", prefix)
	}
	if chain.PrivateKey == "" {
		return chain, fmt.Errorf("%sPRIVATE_KEY is required", prefix)
	}

	var err error
	if chain.MorphoAddress, err = getEnvAsAddress(prefix + "MORPHO_ADDRESS"); err != nil {
		return chain, err
	}
	if chain.ExecutorAddress, err = getEnvAsAddress(prefix + "EXECUTOR_ADDRESS"); err != nil {
		return chain, err
	}
	if chain.WNative, err = getEnvAsAddress(prefix + "WNATIVE"); err != nil {
		return chain, err
	}

	// Фабрика Uniswap V3 опциональна: на большинстве сетей канонический адрес
	if raw := getEnv(prefix+"UNISWAP_V3_FACTORY", ""); raw != "" {
		if !common.IsHexAddress(raw) {
			return chain, fmt.Errorf("%sUNISWAP_V3_FACTORY: invalid address %q", prefix, raw)
		}
		chain.UniswapV3Factory = common.HexToAddress(raw)
	}

	// Treasury опционален: нулевой адрес означает "адрес подписанта"
	if raw := getEnv(prefix+"TREASURY_ADDRESS", ""); raw != "" {
		if !common.IsHexAddress(raw) {
			return chain, fmt.Errorf("%sTREASURY_ADDRESS: invalid address %q", prefix, raw)
		}
		chain.TreasuryAddress = common.HexToAddress(raw)
	}

	whitelist := getEnv(prefix+"VAULT_WHITELIST", VaultWhitelistRegistry)
	if whitelist == VaultWhitelistRegistry {
		chain.UseRegistry = true
	} else {
		for _, raw := range strings.Split(whitelist, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if !common.IsHexAddress(raw) {
				return chain, fmt.Errorf("%sVAULT_WHITELIST: invalid address %q", prefix, raw)
			}
			chain.VaultWhitelist = append(chain.VaultWhitelist, common.HexToAddress(raw))
		}
		if len(chain.VaultWhitelist) == 0 {
			return chain, fmt.Errorf("%sVAULT_WHITELIST is empty", prefix)
		}
	}

	for _, raw := range strings.Split(getEnv(prefix+"ADDITIONAL_MARKETS", ""), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		chain.AdditionalMarkets = append(chain.AdditionalMarkets, common.HexToHash(raw))
	}

	return chain, nil
}

// ============ env helpers ============

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsAddress(key string) (common.Address, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return common.Address{}, fmt.Errorf("%s is required", key)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", key, raw)
	}
	return common.HexToAddress(raw), nil
}
