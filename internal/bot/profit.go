package bot

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/pricer"
)

// profitEstimate - USD-оценка попытки по результату симуляции
type profitEstimate struct {
	ProfitUSD decimal.Decimal
	GasUSD    decimal.Decimal
}

// estimateProfit решает, покрывает ли выручка попытки стоимость газа
//
// Правила принятия:
//   - прайсеры не сконфигурированы - допуск: оценить профит нечем,
//     успешная симуляция считается достаточной;
//   - прирост баланса loan-токена <= 0 - отказ;
//   - цена loan-токена или нативного токена не определена - отказ:
//     неизвестный профит хуже упущенного;
//   - иначе допуск при profit = выручка - газ > 0.
func (e *Engine) estimateProfit(ctx context.Context, loanToken common.Address, sim *chain.SimulationResult) (profitEstimate, bool) {
	var estimate profitEstimate

	if len(e.pricers) == 0 {
		return estimate, true
	}

	delta := decimal.NewFromBigInt(sim.BalanceAfter, 0).Sub(decimal.NewFromBigInt(sim.BalanceBefore, 0))
	if delta.Sign() <= 0 {
		return estimate, false
	}

	loanPrice, ok := pricer.FirstPrice(ctx, e.pricers, loanToken)
	if !ok {
		e.log.Debug("цена loan-токена не определена", zap.String("token", loanToken.Hex()))
		return estimate, false
	}
	nativePrice, ok := pricer.FirstPrice(ctx, e.pricers, e.chainCfg.WNative)
	if !ok {
		e.log.Debug("цена нативного токена не определена")
		return estimate, false
	}

	decimals, err := e.backend.TokenDecimals(ctx, loanToken)
	if err != nil {
		e.log.Warn("не удалось получить decimals loan-токена", zap.Error(err))
		return estimate, false
	}
	gasPrice, err := e.backend.GasPrice(ctx)
	if err != nil {
		e.log.Warn("не удалось получить цену газа", zap.Error(err))
		return estimate, false
	}

	revenueUSD := delta.Shift(-int32(decimals)).Mul(loanPrice)

	gasWei := decimal.NewFromBigInt(gasPrice, 0).Mul(decimal.NewFromUint64(sim.GasUsed))
	estimate.GasUSD = gasWei.Shift(-18).Mul(nativePrice)

	estimate.ProfitUSD = revenueUSD.Sub(estimate.GasUSD)
	return estimate, estimate.ProfitUSD.Sign() > 0
}
