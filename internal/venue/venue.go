// Package venue содержит абстракцию ликвидности: каждый venue умеет сделать
// один шаг конвертации изъятого залога в сторону loan-актива, дописывая
// вызовы в общий батч executor'а.
package venue

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"liquidator/internal/executor"
)

// ToConvert - промежуточное состояние конвертации
//
// Инвариант: SrcAmount >= 0. Когда Src == Dst, конвертация завершена и
// SrcAmount - итоговое количество целевого актива (0 для терминальных
// venue'ов, у которых точный выход известен только on-chain).
type ToConvert struct {
	Src       common.Address
	Dst       common.Address
	SrcAmount *big.Int
}

// Done сообщает, достигнут ли целевой актив
func (t ToConvert) Done() bool {
	return t.Src == t.Dst
}

// ChainReader - минимальный доступ к сети, нужный venue'ам.
// Реализуется chain.Client; в тестах подменяется моком.
type ChainReader interface {
	ChainID() int64
	CallView(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error)
}

// LiquidityVenue - один протокол конвертации
//
// SupportsRoute сообщает, может ли venue продвинуть конвертацию src → dst
// (не обязательно завершить весь путь). Может требовать сетевое чтение;
// результат кэшируется внутри venue. Ошибки сети трактуются как "нет".
//
// Convert дописывает вызовы в encoder и возвращает СЛЕДУЮЩЕЕ промежуточное
// состояние. Ошибка Convert означает "этот venue прогресса не сделал";
// роутер логирует её и пробует следующий venue.
type LiquidityVenue interface {
	Name() string
	SupportsRoute(ctx context.Context, src, dst common.Address) bool
	Convert(ctx context.Context, enc *executor.Encoder, toConvert ToConvert) (ToConvert, error)
}
