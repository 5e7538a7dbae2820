// Package pricer содержит источники USD-цен активов для оценки
// профитности попытки.
//
// Цены не участвуют в исполнении транзакции, только в решении
// "отправлять или нет": неточность терпима, недоступность - нет.
// Поэтому источники опрашиваются по приоритету и побеждает первый
// определённый ответ.
package pricer

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pricer - один источник USD-цены
//
// Price возвращает цену ОДНОГО ЦЕЛОГО токена в USD и признак того, что
// источник знает актив. Сетевые ошибки и неизвестные активы - (0, false),
// не ошибка: отсутствие цены в одном источнике штатно.
type Pricer interface {
	Name() string
	Price(ctx context.Context, asset common.Address) (decimal.Decimal, bool)
}

// ChainReader - on-chain чтение, нужное пулам цен.
// Реализуется chain.Client; в тестах подменяется моком.
type ChainReader interface {
	ChainID() int64
	CallView(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error)
}

// FirstPrice опрашивает источники по порядку приоритета
func FirstPrice(ctx context.Context, pricers []Pricer, asset common.Address) (decimal.Decimal, bool) {
	for _, p := range pricers {
		if price, ok := p.Price(ctx, asset); ok {
			return price, true
		}
	}
	return decimal.Zero, false
}
