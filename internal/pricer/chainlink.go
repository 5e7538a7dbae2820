package pricer

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidator/internal/executor"
)

// ============ Константы Feed Registry ============

// FeedRegistryAddress - Chainlink Feed Registry, задеплоен только на mainnet
var FeedRegistryAddress = common.HexToAddress("0x47Fb2585D2C56Fe188D0E6ec628a38b74fCeeeDf")

// usdDenomination - деноминатор USD в реестре (ISO 4217 код 840 = 0x348)
var usdDenomination = common.HexToAddress("0x0000000000000000000000000000000000000348")

// Реестр ведёт фиды по нативным активам: обёрнутые токены переводятся
// в алиас нативного актива перед запросом
var feedAliases = map[common.Address]common.Address{
	// WETH → ETH
	common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"): common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"),
	// WBTC → BTC
	common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"): common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"),
}

// chainlinkCacheTTL - on-chain фиды обновляются с heartbeat'ом в десятки
// секунд, чаще опрашивать нет смысла
const chainlinkCacheTTL = 30 * time.Second

// Chainlink - цены из Feed Registry, работает только в сети Ethereum
type Chainlink struct {
	reader ChainReader
	log    *zap.Logger

	mu    sync.RWMutex
	cache map[common.Address]chainlinkEntry
}

type chainlinkEntry struct {
	price     decimal.Decimal
	ok        bool
	fetchedAt time.Time
}

// NewChainlink создаёт прайсер поверх reader'а
func NewChainlink(reader ChainReader, log *zap.Logger) *Chainlink {
	return &Chainlink{
		reader: reader,
		log:    log,
		cache:  map[common.Address]chainlinkEntry{},
	}
}

func (c *Chainlink) Name() string { return "chainlink" }

// Price возвращает цену asset/USD из реестра
func (c *Chainlink) Price(ctx context.Context, asset common.Address) (decimal.Decimal, bool) {
	if c.reader.ChainID() != 1 {
		return decimal.Zero, false
	}

	c.mu.RLock()
	entry, cached := c.cache[asset]
	c.mu.RUnlock()
	if cached && time.Since(entry.fetchedAt) < chainlinkCacheTTL {
		return entry.price, entry.ok
	}

	price, ok := c.fetch(ctx, asset)

	c.mu.Lock()
	c.cache[asset] = chainlinkEntry{price: price, ok: ok, fetchedAt: time.Now()}
	c.mu.Unlock()
	return price, ok
}

func (c *Chainlink) fetch(ctx context.Context, asset common.Address) (decimal.Decimal, bool) {
	base := asset
	if alias, ok := feedAliases[asset]; ok {
		base = alias
	}

	out, err := c.reader.CallView(ctx, FeedRegistryAddress, executor.FeedRegistryABI, "latestRoundData", base, usdDenomination)
	if err != nil || len(out) != 5 {
		// Реестр ревертит на неизвестной паре - это штатный "нет фида"
		c.log.Debug("фид не найден", zap.String("asset", asset.Hex()), zap.Error(err))
		return decimal.Zero, false
	}
	answer, ok := out[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return decimal.Zero, false
	}

	decOut, err := c.reader.CallView(ctx, FeedRegistryAddress, executor.FeedRegistryABI, "decimals", base, usdDenomination)
	if err != nil || len(decOut) != 1 {
		return decimal.Zero, false
	}
	feedDecimals, ok := decOut[0].(uint8)
	if !ok {
		return decimal.Zero, false
	}

	price := decimal.NewFromBigInt(answer, -int32(feedDecimals))
	return price, true
}
