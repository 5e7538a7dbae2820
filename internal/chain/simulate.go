package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidator/internal/executor"
)

// simulate.go - атомарная симуляция попытки через eth_simulateV1
//
// Три вызова в одном симулируемом блоке:
//   1. balanceOf(signer) по loan-токену ДО исполнения
//   2. exec батча на executor-контракте
//   3. balanceOf(signer) ПОСЛЕ
//
// Разница балансов + gasUsed дают вход для проверки прибыльности без
// отправки чего-либо on-chain.

// SimulationResult - результат симуляции батча
type SimulationResult struct {
	BalanceBefore *big.Int
	BalanceAfter  *big.Int
	GasUsed       uint64

	// ExecError - ошибка исполнения батча; пустая строка = успех
	ExecError string
}

// Succeeded сообщает, прошёл ли exec-вызов в симуляции
func (r *SimulationResult) Succeeded() bool {
	return r.ExecError == ""
}

type simCall struct {
	From *common.Address `json:"from,omitempty"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

type simCallResult struct {
	Status     hexutil.Uint64 `json:"status"`
	ReturnData hexutil.Bytes  `json:"returnData"`
	GasUsed    hexutil.Uint64 `json:"gasUsed"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type simBlockResult struct {
	Calls []simCallResult `json:"calls"`
}

// SimulateExec симулирует батч и замеры баланса одним запросом
func (c *Client) SimulateExec(ctx context.Context, loanToken, executorAddress common.Address, execData []byte) (*SimulationResult, error) {
	balanceData, err := executor.ERC20ABI.Pack("balanceOf", c.from)
	if err != nil {
		return nil, fmt.Errorf("chain: pack balanceOf: %w", err)
	}

	calls := []simCall{
		{To: &loanToken, Data: balanceData},
		{From: &c.from, To: &executorAddress, Data: execData},
		{To: &loanToken, Data: balanceData},
	}

	params := map[string]interface{}{
		"blockStateCalls": []map[string]interface{}{
			{"calls": calls},
		},
		"validation":     false,
		"traceTransfers": false,
	}

	var blocks []simBlockResult
	if err := c.rpc.CallContext(ctx, &blocks, "eth_simulateV1", params, "latest"); err != nil {
		return nil, fmt.Errorf("chain: eth_simulateV1: %w", err)
	}

	if len(blocks) != 1 || len(blocks[0].Calls) != 3 {
		return nil, fmt.Errorf("chain: unexpected simulation shape")
	}
	results := blocks[0].Calls

	out := &SimulationResult{
		GasUsed: uint64(results[1].GasUsed),
	}

	if results[1].Status != 1 {
		out.ExecError = "execution reverted"
		if results[1].Error != nil {
			out.ExecError = results[1].Error.Message
		}
		return out, nil
	}

	if out.BalanceBefore, err = unpackBalance(results[0]); err != nil {
		return nil, err
	}
	if out.BalanceAfter, err = unpackBalance(results[2]); err != nil {
		return nil, err
	}

	return out, nil
}

func unpackBalance(result simCallResult) (*big.Int, error) {
	if result.Status != 1 {
		return nil, fmt.Errorf("chain: balanceOf failed in simulation")
	}
	values, err := executor.ERC20ABI.Unpack("balanceOf", result.ReturnData)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack balanceOf: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: balanceOf returned %T", values[0])
	}
	return balance, nil
}
