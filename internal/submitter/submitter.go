// Package submitter отвечает за доставку готовой транзакции в сеть:
// либо напрямую в публичный mempool, либо приватным бандлом через релей.
package submitter

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Submitter доставляет calldata батча в сеть
//
// Submit вызывается ровно один раз на попытку: повторной отправки нет,
// при неудаче позиция будет переоценена на следующем тике.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, to common.Address, data []byte, blockNumber uint64) (common.Hash, error)
}
