package venue

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidator/internal/executor"
)

// Erc4626 погашает vault-доли в underlying через redeem
//
// Принадлежность токена стандарту определяется on-chain вызовом asset():
// результат кэшируется навсегда, отрицательный ответ - нулевым адресом
// (vault не может сменить underlying, повторный опрос не нужен).
type Erc4626 struct {
	reader ChainReader

	mu    sync.RWMutex
	asset map[common.Address]common.Address
}

// NewErc4626 создаёт venue для сети reader'а
func NewErc4626(reader ChainReader) *Erc4626 {
	return &Erc4626{
		reader: reader,
		asset:  map[common.Address]common.Address{},
	}
}

func (v *Erc4626) Name() string { return "erc4626" }

func (v *Erc4626) SupportsRoute(ctx context.Context, src, dst common.Address) bool {
	if src == dst {
		return false
	}
	return v.underlying(ctx, src) != (common.Address{})
}

// Convert кодирует redeem(shares, executor, executor) и передаёт дальше
// underlying с ожидаемым по previewRedeem количеством
func (v *Erc4626) Convert(ctx context.Context, enc *executor.Encoder, toConvert ToConvert) (ToConvert, error) {
	underlying := v.underlying(ctx, toConvert.Src)
	if underlying == (common.Address{}) {
		return toConvert, nil
	}

	out, err := v.previewRedeem(ctx, toConvert.Src, toConvert.SrcAmount)
	if err != nil {
		return toConvert, err
	}
	// Vault оценивает выход в ноль - шаг не имеет смысла
	if out.Sign() == 0 {
		return toConvert, nil
	}

	if err := enc.ERC4626Redeem(toConvert.Src, toConvert.SrcAmount, enc.Address(), enc.Address()); err != nil {
		return toConvert, err
	}

	return ToConvert{Src: underlying, Dst: toConvert.Dst, SrcAmount: out}, nil
}

// underlying возвращает asset() vault'а, нулевой адрес - "не vault"
func (v *Erc4626) underlying(ctx context.Context, token common.Address) common.Address {
	v.mu.RLock()
	cached, ok := v.asset[token]
	v.mu.RUnlock()
	if ok {
		return cached
	}

	resolved := common.Address{}
	out, err := v.reader.CallView(ctx, token, executor.ERC4626ABI, "asset")
	if err == nil && len(out) == 1 {
		if addr, ok := out[0].(common.Address); ok {
			resolved = addr
		}
	}

	v.mu.Lock()
	v.asset[token] = resolved
	v.mu.Unlock()
	return resolved
}

func (v *Erc4626) previewRedeem(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error) {
	out, err := v.reader.CallView(ctx, vault, executor.ERC4626ABI, "previewRedeem", shares)
	if err != nil {
		return nil, err
	}
	// Искажённый ответ трактуется как нулевая оценка, не как паника
	if len(out) != 1 {
		return big.NewInt(0), nil
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}
