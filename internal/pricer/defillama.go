package pricer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidator/pkg/httpclient"
)

// DefaultDefiLlamaBaseURL - публичный price API, без ключа
const DefaultDefiLlamaBaseURL = "https://coins.llama.fi"

// defiLlamaCacheTTL короче chainlink'овского: REST-источник дешевле
// on-chain чтений, но цикл не должен бить в него на каждый блок
const defiLlamaCacheTTL = 10 * time.Second

// defiLlamaChains - имена сетей в нотации DefiLlama
var defiLlamaChains = map[int64]string{
	1:     "ethereum",
	10:    "optimism",
	56:    "bsc",
	137:   "polygon",
	8453:  "base",
	42161: "arbitrum",
	43114: "avax",
}

// DefiLlama - цены из публичного REST API, работает на всех известных сетях
type DefiLlama struct {
	chainSlug string
	baseURL   string
	client    *http.Client
	log       *zap.Logger

	mu    sync.RWMutex
	cache map[common.Address]defiLlamaEntry
}

type defiLlamaEntry struct {
	price     decimal.Decimal
	ok        bool
	fetchedAt time.Time
}

// NewDefiLlama создаёт прайсер для сети; на неизвестной сети возвращает nil
func NewDefiLlama(chainID int64, baseURL string, log *zap.Logger) *DefiLlama {
	slug, ok := defiLlamaChains[chainID]
	if !ok {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultDefiLlamaBaseURL
	}
	return &DefiLlama{
		chainSlug: slug,
		baseURL:   baseURL,
		client:    httpclient.Get(),
		log:       log,
		cache:     map[common.Address]defiLlamaEntry{},
	}
}

func (d *DefiLlama) Name() string { return "defillama" }

// Price возвращает текущую USD-цену актива
func (d *DefiLlama) Price(ctx context.Context, asset common.Address) (decimal.Decimal, bool) {
	d.mu.RLock()
	entry, cached := d.cache[asset]
	d.mu.RUnlock()
	if cached && time.Since(entry.fetchedAt) < defiLlamaCacheTTL {
		return entry.price, entry.ok
	}

	price, ok := d.fetch(ctx, asset)

	d.mu.Lock()
	d.cache[asset] = defiLlamaEntry{price: price, ok: ok, fetchedAt: time.Now()}
	d.mu.Unlock()
	return price, ok
}

// defiLlamaResponse - ответ GET /prices/current/{chain}:{asset}
type defiLlamaResponse struct {
	Coins map[string]struct {
		Price decimal.Decimal `json:"price"`
	} `json:"coins"`
}

func (d *DefiLlama) fetch(ctx context.Context, asset common.Address) (decimal.Decimal, bool) {
	coin := d.chainSlug + ":" + asset.Hex()
	endpoint := fmt.Sprintf("%s/prices/current/%s", d.baseURL, coin)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, false
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warn("запрос цены не прошёл", zap.String("asset", asset.Hex()), zap.Error(err))
		return decimal.Zero, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		d.log.Warn("запрос цены не прошёл",
			zap.String("asset", asset.Hex()),
			zap.Int("status", resp.StatusCode))
		return decimal.Zero, false
	}

	var parsed defiLlamaResponse
	if err := jsoniter.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, false
	}

	// API нормализует регистр адреса, ищем без учёта регистра
	for key, c := range parsed.Coins {
		if strings.EqualFold(key, coin) && c.Price.Sign() > 0 {
			return c.Price, true
		}
	}
	return decimal.Zero, false
}
