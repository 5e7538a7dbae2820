package pricer

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fakeReader - мок ChainReader, отвечает на latestRoundData/decimals
type fakeReader struct {
	chainID    int64
	answer     *big.Int
	decimals   uint8
	err        error
	roundCalls int
	lastBase   common.Address
}

func (f *fakeReader) ChainID() int64 { return f.chainID }

func (f *fakeReader) CallView(_ context.Context, _ common.Address, _ abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch method {
	case "latestRoundData":
		f.roundCalls++
		f.lastBase = args[0].(common.Address)
		return []interface{}{big.NewInt(1), f.answer, big.NewInt(0), big.NewInt(0), big.NewInt(1)}, nil
	case "decimals":
		return []interface{}{f.decimals}, nil
	}
	return nil, errors.New("unexpected method: " + method)
}

var testAsset = common.HexToAddress("0x00000000000000000000000000000000000000Aa")

func TestChainlinkPrice(t *testing.T) {
	// answer 250012345678 при 8 знаках = 2500.12345678 USD
	reader := &fakeReader{chainID: 1, answer: big.NewInt(250012345678), decimals: 8}
	c := NewChainlink(reader, zap.NewNop())

	price, ok := c.Price(context.Background(), testAsset)
	if !ok {
		t.Fatal("фид существует, цена должна быть определена")
	}
	want := decimal.RequireFromString("2500.12345678")
	if !price.Equal(want) {
		t.Errorf("price = %s, ожидается %s", price, want)
	}
}

func TestChainlinkMainnetOnly(t *testing.T) {
	reader := &fakeReader{chainID: 8453, answer: big.NewInt(100000000), decimals: 8}
	c := NewChainlink(reader, zap.NewNop())

	if _, ok := c.Price(context.Background(), testAsset); ok {
		t.Fatal("вне mainnet'а реестр недоступен")
	}
	if reader.roundCalls != 0 {
		t.Errorf("сделано %d on-chain вызовов, ожидается 0", reader.roundCalls)
	}
}

func TestChainlinkFeedAlias(t *testing.T) {
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	ethSentinel := common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

	reader := &fakeReader{chainID: 1, answer: big.NewInt(300000000000), decimals: 8}
	c := NewChainlink(reader, zap.NewNop())

	if _, ok := c.Price(context.Background(), weth); !ok {
		t.Fatal("цена WETH должна приходить через алиас ETH")
	}
	if reader.lastBase != ethSentinel {
		t.Errorf("реестр опрошен по base %s, ожидается алиас %s", reader.lastBase.Hex(), ethSentinel.Hex())
	}
}

func TestChainlinkCache(t *testing.T) {
	reader := &fakeReader{chainID: 1, answer: big.NewInt(100000000), decimals: 8}
	c := NewChainlink(reader, zap.NewNop())

	for i := 0; i < 5; i++ {
		if _, ok := c.Price(context.Background(), testAsset); !ok {
			t.Fatal("цена должна быть определена")
		}
	}
	if reader.roundCalls != 1 {
		t.Errorf("latestRoundData вызван %d раз, ожидается 1 (кэш)", reader.roundCalls)
	}
}

func TestChainlinkBadAnswer(t *testing.T) {
	tests := []struct {
		name   string
		reader *fakeReader
	}{
		{"отрицательный answer", &fakeReader{chainID: 1, answer: big.NewInt(-1), decimals: 8}},
		{"нулевой answer", &fakeReader{chainID: 1, answer: big.NewInt(0), decimals: 8}},
		{"реверт реестра", &fakeReader{chainID: 1, err: errors.New("execution reverted")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChainlink(tt.reader, zap.NewNop())
			if _, ok := c.Price(context.Background(), testAsset); ok {
				t.Error("цена не должна быть определена")
			}
		})
	}
}

func TestDefiLlamaPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"coins":{"ethereum:` + testAsset.Hex() + `":{"price":1.0005,"symbol":"USDX","decimals":6}}}`))
	}))
	defer server.Close()

	d := NewDefiLlama(1, server.URL, zap.NewNop())
	price, ok := d.Price(context.Background(), testAsset)
	if !ok {
		t.Fatal("цена должна быть определена")
	}
	if !price.Equal(decimal.RequireFromString("1.0005")) {
		t.Errorf("price = %s, ожидается 1.0005", price)
	}
}

func TestDefiLlamaUnknownAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"coins":{}}`))
	}))
	defer server.Close()

	d := NewDefiLlama(1, server.URL, zap.NewNop())
	if _, ok := d.Price(context.Background(), testAsset); ok {
		t.Fatal("неизвестный актив - цена не определена")
	}
}

func TestDefiLlamaUnknownChain(t *testing.T) {
	if d := NewDefiLlama(999999, "", zap.NewNop()); d != nil {
		t.Fatal("на неизвестной сети прайсер не создаётся")
	}
}

func TestDefiLlamaCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"coins":{"ethereum:` + testAsset.Hex() + `":{"price":2}}}`))
	}))
	defer server.Close()

	d := NewDefiLlama(1, server.URL, zap.NewNop())
	for i := 0; i < 5; i++ {
		d.Price(context.Background(), testAsset)
	}
	if requests != 1 {
		t.Errorf("сделано %d HTTP-запросов, ожидается 1 (кэш)", requests)
	}
}

// staticPricer всегда отвечает фиксированной ценой
type staticPricer struct {
	name  string
	price decimal.Decimal
	ok    bool
	calls int
}

func (s *staticPricer) Name() string { return s.name }

func (s *staticPricer) Price(context.Context, common.Address) (decimal.Decimal, bool) {
	s.calls++
	return s.price, s.ok
}

func TestFirstPrice(t *testing.T) {
	primary := &staticPricer{name: "primary", ok: false}
	secondary := &staticPricer{name: "secondary", price: decimal.NewFromInt(42), ok: true}
	tertiary := &staticPricer{name: "tertiary", price: decimal.NewFromInt(99), ok: true}

	price, ok := FirstPrice(context.Background(), []Pricer{primary, secondary, tertiary}, testAsset)
	if !ok {
		t.Fatal("цена должна быть определена")
	}
	if !price.Equal(decimal.NewFromInt(42)) {
		t.Errorf("price = %s, ожидается 42 (первый определённый источник)", price)
	}
	if tertiary.calls != 0 {
		t.Error("источники ниже по приоритету не должны опрашиваться")
	}
}

func TestFirstPriceAllUndefined(t *testing.T) {
	if _, ok := FirstPrice(context.Background(), []Pricer{&staticPricer{ok: false}}, testAsset); ok {
		t.Fatal("все источники пусты - цена не определена")
	}
}
