package venue

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"liquidator/internal/executor"
)

// Erc20Wrapper разворачивает обёрнутые токены в underlying
//
// Таблица wrapper → underlying статична для сети и задаётся конфигурацией:
// обёртки деплоятся редко, on-chain discovery не нужен.
type Erc20Wrapper struct {
	underlying map[common.Address]common.Address
}

// NewErc20Wrapper создаёт venue с таблицей обёрток сети
func NewErc20Wrapper(underlying map[common.Address]common.Address) *Erc20Wrapper {
	if underlying == nil {
		underlying = map[common.Address]common.Address{}
	}
	return &Erc20Wrapper{underlying: underlying}
}

func (v *Erc20Wrapper) Name() string { return "erc20wrapper" }

func (v *Erc20Wrapper) SupportsRoute(_ context.Context, src, dst common.Address) bool {
	if src == dst {
		return false
	}
	underlying, ok := v.underlying[src]
	return ok && underlying != (common.Address{})
}

// Convert кодирует withdrawTo(executor, amount) и передаёт дальше
// underlying с тем же количеством (разворачивание 1:1)
func (v *Erc20Wrapper) Convert(_ context.Context, enc *executor.Encoder, toConvert ToConvert) (ToConvert, error) {
	underlying, ok := v.underlying[toConvert.Src]
	if !ok {
		return toConvert, nil
	}

	if err := enc.ERC20WrapperWithdrawTo(toConvert.Src, enc.Address(), toConvert.SrcAmount); err != nil {
		return toConvert, err
	}

	return ToConvert{Src: underlying, Dst: toConvert.Dst, SrcAmount: toConvert.SrcAmount}, nil
}
