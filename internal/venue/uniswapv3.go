package venue

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidator/internal/executor"
)

// ============ Константы Uniswap V3 ============

// DefaultUniswapV3Factory - канонический адрес фабрики (одинаков на
// большинстве сетей)
var DefaultUniswapV3Factory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")

// FeeTiers - перебираемые комиссии пулов, в сотых долях bps
var FeeTiers = []int64{500, 3000, 10000}

// Границы цены swap'а: MIN_SQRT_RATIO+1 / MAX_SQRT_RATIO-1,
// то есть "без лимита цены" в нужном направлении
var (
	minSqrtRatio, _ = new(big.Int).SetString("4295128739", 10)
	maxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

// swapCallbackDataIndex - позиция динамического аргумента data в calldata
// pool.swap: executor подставит отложенные вызовы по этому индексу, когда
// пул дёрнет uniswapV3SwapCallback
const swapCallbackDataIndex = 2

// poolCacheTTL - срок жизни записи о найденном пуле; новые пулы с большей
// ликвидностью появляются редко, но появляются
const poolCacheTTL = time.Hour

// UniswapV3 - терминальный venue: обменивает src напрямую в dst через пул
// с наибольшей ликвидностью
//
// Терминальный - значит возвращает Src == Dst с нулевым количеством:
// точный выход swap'а известен только on-chain, профит подтверждается
// симуляцией, а не оценкой venue.
type UniswapV3 struct {
	reader  ChainReader
	factory common.Address
	log     *zap.Logger

	mu    sync.RWMutex
	pools map[pairKey]poolEntry
}

type pairKey struct {
	a, b common.Address // упорядочены: a < b
}

type poolEntry struct {
	pool      common.Address // нулевой адрес = пула нет
	fetchedAt time.Time
}

func newPairKey(x, y common.Address) pairKey {
	if bytes.Compare(x.Bytes(), y.Bytes()) < 0 {
		return pairKey{a: x, b: y}
	}
	return pairKey{a: y, b: x}
}

// NewUniswapV3 создаёт venue; нулевой factory заменяется каноническим
func NewUniswapV3(reader ChainReader, factory common.Address, log *zap.Logger) *UniswapV3 {
	if factory == (common.Address{}) {
		factory = DefaultUniswapV3Factory
	}
	return &UniswapV3{
		reader:  reader,
		factory: factory,
		log:     log,
		pools:   map[pairKey]poolEntry{},
	}
}

func (v *UniswapV3) Name() string { return "uniswapV3" }

func (v *UniswapV3) SupportsRoute(ctx context.Context, src, dst common.Address) bool {
	if src == dst {
		return false
	}
	return v.bestPool(ctx, src, dst) != (common.Address{})
}

// Convert кодирует exact-input swap всего src в dst
//
// Пул посреди swap'а вызывает uniswapV3SwapCallback в executor; отложенный
// вызов внутри callback'а переводит пулу входной токен.
func (v *UniswapV3) Convert(ctx context.Context, enc *executor.Encoder, toConvert ToConvert) (ToConvert, error) {
	pool := v.bestPool(ctx, toConvert.Src, toConvert.Dst)
	if pool == (common.Address{}) {
		return toConvert, nil
	}

	transferData, err := executor.ERC20TransferCalldata(pool, toConvert.SrcAmount)
	if err != nil {
		return toConvert, err
	}
	payCall, err := executor.EncodeCall(executor.Call{Target: toConvert.Src, Data: transferData})
	if err != nil {
		return toConvert, err
	}
	callbackData, err := executor.CallbackData([][]byte{payCall})
	if err != nil {
		return toConvert, err
	}

	// token0 - токен с меньшим адресом
	zeroForOne := bytes.Compare(toConvert.Src.Bytes(), toConvert.Dst.Bytes()) < 0
	priceLimit := new(big.Int).Sub(maxSqrtRatio, big.NewInt(1))
	if zeroForOne {
		priceLimit = new(big.Int).Add(minSqrtRatio, big.NewInt(1))
	}

	data, err := executor.UniswapV3PoolABI.Pack("swap",
		enc.Address(),
		zeroForOne,
		new(big.Int).Set(toConvert.SrcAmount), // exact input: amountSpecified > 0
		priceLimit,
		callbackData,
	)
	if err != nil {
		return toConvert, fmt.Errorf("uniswapV3: encode swap: %w", err)
	}

	enc.PushCallWithCallback(pool, big.NewInt(0), data, pool, swapCallbackDataIndex)

	return ToConvert{Src: toConvert.Dst, Dst: toConvert.Dst, SrcAmount: big.NewInt(0)}, nil
}

// bestPool возвращает пул пары с наибольшей ликвидностью среди fee-тиров
func (v *UniswapV3) bestPool(ctx context.Context, src, dst common.Address) common.Address {
	key := newPairKey(src, dst)

	v.mu.RLock()
	entry, ok := v.pools[key]
	v.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < poolCacheTTL {
		return entry.pool
	}

	best := common.Address{}
	bestLiquidity := big.NewInt(0)

	for _, fee := range FeeTiers {
		out, err := v.reader.CallView(ctx, v.factory, executor.UniswapV3FactoryABI, "getPool",
			src, dst, big.NewInt(fee))
		if err != nil || len(out) != 1 {
			continue
		}
		pool, ok := out[0].(common.Address)
		if !ok || pool == (common.Address{}) {
			continue
		}

		liqOut, err := v.reader.CallView(ctx, pool, executor.UniswapV3PoolABI, "liquidity")
		if err != nil || len(liqOut) != 1 {
			continue
		}
		liquidity, ok := liqOut[0].(*big.Int)
		if !ok {
			continue
		}

		if liquidity.Cmp(bestLiquidity) > 0 {
			best = pool
			bestLiquidity = liquidity
		}
	}

	if best == (common.Address{}) {
		v.log.Debug("пул не найден",
			zap.String("src", src.Hex()),
			zap.String("dst", dst.Hex()))
	}

	v.mu.Lock()
	v.pools[key] = poolEntry{pool: best, fetchedAt: time.Now()}
	v.mu.Unlock()
	return best
}
