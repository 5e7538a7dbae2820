package venue

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidator/internal/executor"
)

var poolAddr = common.HexToAddress("0x000000000000000000000000000000000000F001")

func newUniswapFixture(t *testing.T, liquidity int64) (*UniswapV3, *fakeReader) {
	t.Helper()

	reader := newFakeReader(1)
	reader.views[DefaultUniswapV3Factory.Hex()+"/getPool"] = func(args []interface{}) ([]interface{}, error) {
		// Пул существует только для тира 3000
		fee := args[2].(*big.Int)
		if fee.Int64() != 3000 {
			return []interface{}{common.Address{}}, nil
		}
		return []interface{}{poolAddr}, nil
	}
	reader.views[poolAddr.Hex()+"/liquidity"] = func([]interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(liquidity)}, nil
	}

	return NewUniswapV3(reader, common.Address{}, zap.NewNop()), reader
}

func TestUniswapV3Convert(t *testing.T) {
	v, _ := newUniswapFixture(t, 1_000_000)
	enc := executor.NewEncoder(executr)

	if !v.SupportsRoute(context.Background(), tokenA, tokenB) {
		t.Fatal("пара с пулом должна поддерживаться")
	}

	next, err := v.Convert(context.Background(), enc, ToConvert{Src: tokenA, Dst: tokenB, SrcAmount: big.NewInt(5000)})
	if err != nil {
		t.Fatalf("Convert вернул ошибку: %v", err)
	}

	// Терминальный venue: Src == Dst, точный выход известен только on-chain
	if !next.Done() {
		t.Errorf("ожидается терминальное состояние, получено src=%s dst=%s", next.Src.Hex(), next.Dst.Hex())
	}
	if next.SrcAmount.Sign() != 0 {
		t.Errorf("SrcAmount = %s, ожидается 0", next.SrcAmount)
	}
	if enc.Len() != 1 {
		t.Fatalf("в батче %d вызовов, ожидается 1 (swap)", enc.Len())
	}
}

func TestUniswapV3SwapCallbackContext(t *testing.T) {
	v, _ := newUniswapFixture(t, 1_000_000)
	enc := executor.NewEncoder(executr)

	_, err := v.Convert(context.Background(), enc, ToConvert{Src: tokenA, Dst: tokenB, SrcAmount: big.NewInt(5000)})
	if err != nil {
		t.Fatalf("Convert вернул ошибку: %v", err)
	}

	encoded, err := enc.Flush()
	if err != nil {
		t.Fatalf("Flush вернул ошибку: %v", err)
	}

	// Вызов несёт контекст callback'а: отправитель - пул, индекс данных - 2
	values, err := executor.ExecutorABI.Methods["call_g0oyU7o"].Inputs.Unpack(encoded[0][4:])
	if err != nil {
		t.Fatalf("не удалось распаковать вызов: %v", err)
	}

	ctx := values[2].([32]byte)
	if got := new(big.Int).SetBytes(ctx[:12]).Uint64(); got != swapCallbackDataIndex {
		t.Errorf("dataIndex = %d, ожидается %d", got, swapCallbackDataIndex)
	}
	if got := common.BytesToAddress(ctx[12:]); got != poolAddr {
		t.Errorf("callback sender = %s, ожидается пул %s", got.Hex(), poolAddr.Hex())
	}
	if got := values[0].(common.Address); got != poolAddr {
		t.Errorf("target = %s, ожидается пул %s", got.Hex(), poolAddr.Hex())
	}
}

func TestUniswapV3PoolCache(t *testing.T) {
	v, reader := newUniswapFixture(t, 1_000_000)

	for i := 0; i < 3; i++ {
		if !v.SupportsRoute(context.Background(), tokenA, tokenB) {
			t.Fatal("пара с пулом должна поддерживаться")
		}
	}
	// Обратное направление использует ту же запись кэша
	if !v.SupportsRoute(context.Background(), tokenB, tokenA) {
		t.Fatal("обратное направление должно поддерживаться")
	}

	// Фабрика опрошена один раз на каждый fee-тир
	if got := reader.calls[DefaultUniswapV3Factory.Hex()+"/getPool"]; got != len(FeeTiers) {
		t.Errorf("getPool вызван %d раз, ожидается %d", got, len(FeeTiers))
	}
}

func TestUniswapV3NoPool(t *testing.T) {
	reader := newFakeReader(1)
	reader.views[DefaultUniswapV3Factory.Hex()+"/getPool"] = func([]interface{}) ([]interface{}, error) {
		return []interface{}{common.Address{}}, nil
	}

	v := NewUniswapV3(reader, common.Address{}, zap.NewNop())
	if v.SupportsRoute(context.Background(), tokenA, tokenB) {
		t.Error("пара без пула не должна поддерживаться")
	}
}
