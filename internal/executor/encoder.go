// Package executor строит атомарный батч вызовов для on-chain executor'а.
//
// Один Encoder принадлежит ровно одной попытке ликвидации: venue'ы и движок
// дописывают вызовы в общий список, Flush() забирает накопленное (например,
// как callback-вызовы внутри liquidate), финальный батч уходит одной
// транзакцией exec_606BaXt.
package executor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"liquidator/internal/models"
)

// MaxUint256 - безлимитный approve
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Call - один низкоуровневый вызов батча
//
// CallbackSender/DataIndex - метаданные для протоколов, которые посреди
// swap'а вызывают callback в executor (например uniswapV3SwapCallback):
// executor проверит, что callback пришёл от ожидаемого пула, и подставит
// отложенные данные по индексу динамического аргумента.
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte

	CallbackSender common.Address // нулевой адрес = без callback'а
	DataIndex      uint64
}

// Encoder накапливает вызовы одной попытки
//
// НЕ потокобезопасен: попытка владеет им монопольно и собирает батч
// последовательно.
type Encoder struct {
	address common.Address
	calls   []Call
}

// NewEncoder создаёт encoder для заданного executor-контракта
func NewEncoder(executorAddress common.Address) *Encoder {
	return &Encoder{address: executorAddress}
}

// Address возвращает адрес executor-контракта
func (e *Encoder) Address() common.Address {
	return e.address
}

// PushCall добавляет вызов без callback'а
func (e *Encoder) PushCall(target common.Address, value *big.Int, data []byte) {
	e.calls = append(e.calls, Call{Target: target, Value: value, Data: data})
}

// PushCallWithCallback добавляет вызов с ожидаемым callback'ом
func (e *Encoder) PushCallWithCallback(target common.Address, value *big.Int, data []byte, sender common.Address, dataIndex uint64) {
	e.calls = append(e.calls, Call{
		Target:         target,
		Value:          value,
		Data:           data,
		CallbackSender: sender,
		DataIndex:      dataIndex,
	})
}

// Len возвращает количество накопленных вызовов
func (e *Encoder) Len() int {
	return len(e.calls)
}

// Flush кодирует накопленные вызовы в call_g0oyU7o и очищает список
func (e *Encoder) Flush() ([][]byte, error) {
	encoded := make([][]byte, 0, len(e.calls))
	for _, call := range e.calls {
		data, err := EncodeCall(call)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, data)
	}
	e.calls = e.calls[:0]
	return encoded, nil
}

// EncodeCall кодирует один вызов в calldata call_g0oyU7o
//
// context (bytes32) упаковывает метаданные callback'а:
// старшие 12 байт - dataIndex, младшие 20 - ожидаемый отправитель.
func EncodeCall(call Call) ([]byte, error) {
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	var context [32]byte
	new(big.Int).SetUint64(call.DataIndex).FillBytes(context[:12])
	copy(context[12:], call.CallbackSender.Bytes())

	data, err := ExecutorABI.Pack("call_g0oyU7o", call.Target, value, context, call.Data)
	if err != nil {
		return nil, fmt.Errorf("executor: encode call to %s: %w", call.Target, err)
	}
	return data, nil
}

// ExecCalldata кодирует финальную транзакцию exec_606BaXt(bytes[])
func ExecCalldata(calls [][]byte) ([]byte, error) {
	data, err := ExecutorABI.Pack("exec_606BaXt", calls)
	if err != nil {
		return nil, fmt.Errorf("executor: encode exec: %w", err)
	}
	return data, nil
}

// CallbackData кодирует (bytes[] callbacks, bytes "") - отложенные вызовы,
// исполняемые внутри callback'а протокола (onMorphoLiquidate, onPreLiquidate,
// uniswapV3SwapCallback)
func CallbackData(callbackCalls [][]byte) ([]byte, error) {
	if callbackCalls == nil {
		callbackCalls = [][]byte{}
	}
	data, err := callbackArguments.Pack(callbackCalls, []byte{})
	if err != nil {
		return nil, fmt.Errorf("executor: encode callback data: %w", err)
	}
	return data, nil
}

// ============ Типовые вызовы ============

// ERC20Approve добавляет approve(spender, amount) на токене
func (e *Encoder) ERC20Approve(token, spender common.Address, amount *big.Int) error {
	data, err := ERC20ABI.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("executor: encode approve: %w", err)
	}
	e.PushCall(token, big.NewInt(0), data)
	return nil
}

// ERC20Skim добавляет вывод всего остатка токена из executor'а в treasury
func (e *Encoder) ERC20Skim(token, recipient common.Address) error {
	data, err := ExecutorABI.Pack("skim", token, recipient)
	if err != nil {
		return fmt.Errorf("executor: encode skim: %w", err)
	}
	e.PushCall(e.address, big.NewInt(0), data)
	return nil
}

// ERC20TransferCalldata кодирует transfer(to, amount) без добавления в батч
// (используется venue'ами внутри callback-вызовов)
func ERC20TransferCalldata(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := ERC20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("executor: encode transfer: %w", err)
	}
	return data, nil
}

// ERC4626Redeem добавляет redeem(shares, receiver, owner) на vault'е
func (e *Encoder) ERC4626Redeem(vault common.Address, shares *big.Int, receiver, owner common.Address) error {
	data, err := ERC4626ABI.Pack("redeem", shares, receiver, owner)
	if err != nil {
		return fmt.Errorf("executor: encode redeem: %w", err)
	}
	e.PushCall(vault, big.NewInt(0), data)
	return nil
}

// ERC20WrapperWithdrawTo добавляет разворачивание обёртки в underlying
func (e *Encoder) ERC20WrapperWithdrawTo(wrapper, account common.Address, amount *big.Int) error {
	data, err := ERC20WrapperABI.Pack("withdrawTo", account, amount)
	if err != nil {
		return fmt.Errorf("executor: encode withdrawTo: %w", err)
	}
	e.PushCall(wrapper, big.NewInt(0), data)
	return nil
}

// morphoMarketParams - структура для ABI-упаковки tuple'а marketParams
type morphoMarketParams struct {
	LoanToken       common.Address
	CollateralToken common.Address
	Oracle          common.Address
	Irm             common.Address
	Lltv            *big.Int
}

// MorphoLiquidate добавляет вызов ликвидации
//
// callbackCalls - отложенные вызовы конвертации залога, исполняемые внутри
// onMorphoLiquidate; minRepaidShares всегда 0 (бот не торгуется за доли).
// Morpho вызывает onMorphoLiquidate(uint256,bytes) в executor даже при пустом
// списке callback'ов, поэтому вызов регистрируется с ожидаемым отправителем
// и позицией динамического аргумента 1.
func (e *Encoder) MorphoLiquidate(morpho common.Address, params models.MarketParams, borrower common.Address, seizedAssets, repaidShares *big.Int, callbackCalls [][]byte) error {
	callbackData, err := CallbackData(callbackCalls)
	if err != nil {
		return err
	}

	data, err := MorphoABI.Pack("liquidate", morphoMarketParams{
		LoanToken:       params.LoanToken,
		CollateralToken: params.CollateralToken,
		Oracle:          params.Oracle,
		Irm:             params.IRM,
		Lltv:            params.LLTV.Unwrap(),
	}, borrower, seizedAssets, repaidShares, callbackData)
	if err != nil {
		return fmt.Errorf("executor: encode liquidate: %w", err)
	}

	e.PushCallWithCallback(morpho, big.NewInt(0), data, morpho, 1)
	return nil
}

// PreLiquidate добавляет вызов пре-ликвидации
//
// Контракт пре-ликвидации вызывает onPreLiquidate(uint256,bytes) в executor:
// динамический аргумент с отложенными данными стоит на позиции 1.
func (e *Encoder) PreLiquidate(preLiquidation, borrower common.Address, seizedAssets, repaidShares *big.Int, callbackCalls [][]byte) error {
	callbackData, err := CallbackData(callbackCalls)
	if err != nil {
		return err
	}

	data, err := PreLiquidationABI.Pack("preLiquidate", borrower, seizedAssets, repaidShares, callbackData)
	if err != nil {
		return fmt.Errorf("executor: encode preLiquidate: %w", err)
	}

	e.PushCallWithCallback(preLiquidation, big.NewInt(0), data, preLiquidation, 1)
	return nil
}
