// Package bot содержит движок ликвидации: цикл по блокам, пайплайн
// обработки позиции и проверку прибыльности.
package bot

import (
	"context"
	"fmt"
	"math/big"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/internal/config"
	"liquidator/internal/executor"
	"liquidator/internal/models"
	"liquidator/internal/pricer"
	"liquidator/internal/submitter"
	"liquidator/internal/venue"
)

// ChainBackend - операции сети, нужные движку.
// Реализуется chain.Client; в тестах подменяется моком.
type ChainBackend interface {
	ChainID() int64
	Name() string
	SignerAddress() common.Address
	GasPrice(ctx context.Context) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	SimulateExec(ctx context.Context, loanToken, executorAddress common.Address, execData []byte) (*chain.SimulationResult, error)
}

// PositionSource - индексер, отдающий рынки и ликвидируемые позиции
type PositionSource interface {
	MarketsForVaults(ctx context.Context, chainID int64, vaults []common.Address) ([]models.MarketID, error)
	LiquidatablePositions(ctx context.Context, chainID int64, marketIDs []models.MarketID) ([]models.MarketSnapshot, error)
}

// VaultSource - реестр whitelisted vault'ов (когда whitelist не задан явно)
type VaultSource interface {
	WhitelistedVaults(ctx context.Context, chainID int64) ([]common.Address, error)
}

// Converter строит маршрут конвертации залога; реализуется venue.Router
type Converter interface {
	Convert(ctx context.Context, enc *executor.Encoder, toConvert venue.ToConvert) (venue.ToConvert, bool)
}

// AttemptRecorder принимает записи о завершённых попытках (БД, websocket)
type AttemptRecorder interface {
	Record(ctx context.Context, attempt models.Attempt)
}

// Engine - движок ликвидации одной сети
//
// Запускается на каждый N-й блок; циклы могут перекрываться, поэтому всё
// разделяемое состояние (cooldown, кэши venue'ов и прайсеров) рассчитано
// на конкурентный доступ. Каждая позиция обрабатывается в своей горутине
// со своим Encoder'ом.
type Engine struct {
	chainCfg config.ChainConfig
	botCfg   config.BotConfig

	backend  ChainBackend
	indexer  PositionSource
	vaults   VaultSource
	router   Converter
	pricers  []pricer.Pricer
	submit   submitter.Submitter
	cooldown *Cooldown
	recorder AttemptRecorder

	log *zap.Logger
}

// NewEngine собирает движок; vaults и recorder могут быть nil
func NewEngine(
	chainCfg config.ChainConfig,
	botCfg config.BotConfig,
	backend ChainBackend,
	positionSource PositionSource,
	vaultSource VaultSource,
	router Converter,
	pricers []pricer.Pricer,
	submit submitter.Submitter,
	recorder AttemptRecorder,
	log *zap.Logger,
) *Engine {
	return &Engine{
		chainCfg: chainCfg,
		botCfg:   botCfg,
		backend:  backend,
		indexer:  positionSource,
		vaults:   vaultSource,
		router:   router,
		pricers:  pricers,
		submit:   submit,
		cooldown: NewCooldown(botCfg.CooldownEnabled, botCfg.CooldownPeriod),
		recorder: recorder,
		log:      log,
	}
}

// treasury - получатель skim'а: явный адрес из конфигурации или подписант
func (e *Engine) treasury() common.Address {
	if e.chainCfg.TreasuryAddress != (common.Address{}) {
		return e.chainCfg.TreasuryAddress
	}
	return e.backend.SignerAddress()
}

// RunCycle выполняет один полный цикл: рынки → позиции → попытки
//
// Ошибки индексера завершают цикл целиком (без позиций делать нечего),
// ошибки отдельных позиций изолированы в их горутинах.
func (e *Engine) RunCycle(ctx context.Context, blockNumber uint64) {
	started := time.Now()
	defer func() {
		cycleDuration.WithLabelValues(e.chainCfg.Name).Observe(time.Since(started).Seconds())
	}()

	marketIDs, err := e.collectMarkets(ctx)
	if err != nil {
		indexerErrors.WithLabelValues(e.chainCfg.Name).Inc()
		e.log.Error("не удалось собрать список рынков", zap.Error(err))
		return
	}
	if len(marketIDs) == 0 {
		e.log.Debug("нет рынков для наблюдения")
		return
	}

	snapshots, err := e.indexer.LiquidatablePositions(ctx, e.chainCfg.ChainID, marketIDs)
	if err != nil {
		indexerErrors.WithLabelValues(e.chainCfg.Name).Inc()
		e.log.Error("не удалось получить позиции", zap.Error(err))
		return
	}

	total := 0
	var wg sync.WaitGroup
	for _, snap := range snapshots {
		market := snap.Market
		for _, pos := range snap.PositionsLiq {
			total++
			wg.Add(1)
			go func(pos models.LiquidatablePosition) {
				defer wg.Done()
				defer e.recoverPipeline(ctx, market, pos.User, models.AttemptKindLiquidation)
				e.processLiquidation(ctx, blockNumber, market, pos)
			}(pos)
		}
		for _, pos := range snap.PositionsPreLiq {
			total++
			wg.Add(1)
			go func(pos models.PreLiquidatablePosition) {
				defer wg.Done()
				defer e.recoverPipeline(ctx, market, pos.User, models.AttemptKindPreLiquidation)
				e.processPreLiquidation(ctx, blockNumber, market, pos)
			}(pos)
		}
	}
	positionsSeen.WithLabelValues(e.chainCfg.Name).Set(float64(total))
	wg.Wait()

	if total > 0 {
		e.log.Info("цикл завершён",
			zap.Uint64("block", blockNumber),
			zap.Int("positions", total),
			zap.Duration("took", time.Since(started)))
	}
}

// recoverPipeline изолирует панику одного пайплайна: сбой на одной позиции
// (например, неожиданный ответ RPC) не должен останавливать остальные
// позиции и сети
func (e *Engine) recoverPipeline(ctx context.Context, market models.Market, borrower common.Address, kind string) {
	r := recover()
	if r == nil {
		return
	}
	e.log.Error("паника в пайплайне позиции",
		zap.Any("panic", r),
		zap.String("market", market.Params.ID().Hex()),
		zap.String("borrower", borrower.Hex()),
		zap.ByteString("stack", debug.Stack()))
	e.finish(ctx, models.Attempt{
		Chain:     e.chainCfg.Name,
		MarketID:  market.Params.ID().Hex(),
		Borrower:  borrower.Hex(),
		Kind:      kind,
		Outcome:   models.AttemptStateFailed,
		Error:     fmt.Sprintf("panic: %v", r),
		CreatedAt: time.Now(),
	})
}

// collectMarkets возвращает рынки под наблюдением: объединение
// withdraw-очередей whitelisted vault'ов и явно добавленных рынков
func (e *Engine) collectMarkets(ctx context.Context) ([]models.MarketID, error) {
	vaults := e.chainCfg.VaultWhitelist
	if e.chainCfg.UseRegistry && e.vaults != nil {
		fetched, err := e.vaults.WhitelistedVaults(ctx, e.chainCfg.ChainID)
		if err != nil {
			return nil, err
		}
		vaults = fetched
	}

	var marketIDs []models.MarketID
	if len(vaults) > 0 {
		fetched, err := e.indexer.MarketsForVaults(ctx, e.chainCfg.ChainID, vaults)
		if err != nil {
			return nil, err
		}
		marketIDs = fetched
	}

	seen := make(map[models.MarketID]bool, len(marketIDs))
	for _, id := range marketIDs {
		seen[id] = true
	}
	for _, id := range e.chainCfg.AdditionalMarkets {
		if !seen[id] {
			marketIDs = append(marketIDs, id)
			seen[id] = true
		}
	}
	return marketIDs, nil
}

// processLiquidation ведёт одну позицию через пайплайн до терминального
// исхода: submitted, skipped или failed
func (e *Engine) processLiquidation(ctx context.Context, blockNumber uint64, market models.Market, pos models.LiquidatablePosition) {
	badDebt := pos.BadDebt()
	attempt := models.Attempt{
		Chain:     e.chainCfg.Name,
		MarketID:  market.Params.ID().Hex(),
		Borrower:  pos.User.Hex(),
		Kind:      models.AttemptKindLiquidation,
		Outcome:   models.AttemptStatePending,
		BadDebt:   badDebt,
		CreatedAt: time.Now(),
	}

	if !e.cooldown.TryAcquire(market.Params.ID(), pos.User) {
		return
	}
	attempt.Outcome = models.AttemptStateCooldownChecked

	// Ликвидация изымает полный seizable; буфер страхует только маршрут
	// конвертации от проскальзывания. Bad debt конвертируется целиком:
	// протокол и так отдаёт весь залог.
	seizable := pos.SeizableCollateral.Unwrap()
	toConvert := seizable
	if !badDebt {
		toConvert = applyBuffer(seizable, e.chainCfg.LiquidationBufferBps)
	}
	if toConvert.Sign() <= 0 {
		return
	}

	enc := executor.NewEncoder(e.chainCfg.ExecutorAddress)

	callbackCalls, ok := e.convertCollateral(ctx, enc, market.Params, toConvert)
	if !ok {
		attempt.Outcome = models.AttemptStateSkippedRouteFailed
		e.finish(ctx, attempt)
		return
	}
	attempt.Outcome = models.AttemptStateRouted

	if err := enc.ERC20Approve(market.Params.LoanToken, e.chainCfg.MorphoAddress, executor.MaxUint256); err != nil {
		e.fail(ctx, attempt, err)
		return
	}
	if err := enc.MorphoLiquidate(e.chainCfg.MorphoAddress, market.Params, pos.User, seizable, big.NewInt(0), callbackCalls); err != nil {
		e.fail(ctx, attempt, err)
		return
	}
	attempt.Outcome = models.AttemptStateEncoded

	e.simulateAndSubmit(ctx, blockNumber, attempt, enc, market.Params.LoanToken, badDebt)
}

// processPreLiquidation - тот же пайплайн, но через контракт пре-ликвидации,
// авторизованный заёмщиком
func (e *Engine) processPreLiquidation(ctx context.Context, blockNumber uint64, market models.Market, pos models.PreLiquidatablePosition) {
	attempt := models.Attempt{
		Chain:     e.chainCfg.Name,
		MarketID:  market.Params.ID().Hex(),
		Borrower:  pos.User.Hex(),
		Kind:      models.AttemptKindPreLiquidation,
		Outcome:   models.AttemptStatePending,
		CreatedAt: time.Now(),
	}

	if !e.cooldown.TryAcquire(market.Params.ID(), pos.User) {
		return
	}
	attempt.Outcome = models.AttemptStateCooldownChecked

	// Как и в обычной ликвидации, буфер применяется только к конвертации
	seizable := pos.SeizableCollateral.Unwrap()
	toConvert := applyBuffer(seizable, e.chainCfg.LiquidationBufferBps)
	if toConvert.Sign() <= 0 {
		return
	}

	enc := executor.NewEncoder(e.chainCfg.ExecutorAddress)

	callbackCalls, ok := e.convertCollateral(ctx, enc, market.Params, toConvert)
	if !ok {
		attempt.Outcome = models.AttemptStateSkippedRouteFailed
		e.finish(ctx, attempt)
		return
	}
	attempt.Outcome = models.AttemptStateRouted

	if err := enc.ERC20Approve(market.Params.LoanToken, pos.PreLiquidation, executor.MaxUint256); err != nil {
		e.fail(ctx, attempt, err)
		return
	}
	if err := enc.PreLiquidate(pos.PreLiquidation, pos.User, seizable, big.NewInt(0), callbackCalls); err != nil {
		e.fail(ctx, attempt, err)
		return
	}
	attempt.Outcome = models.AttemptStateEncoded

	e.simulateAndSubmit(ctx, blockNumber, attempt, enc, market.Params.LoanToken, false)
}

// convertCollateral строит маршрут залог → loan-токен и возвращает
// закодированные callback-вызовы конвертации
//
// Совпадающие токены - пустой маршрут. Отказ роутера - отказ попытки:
// позиция без пути конвертации не обрабатывается.
func (e *Engine) convertCollateral(ctx context.Context, enc *executor.Encoder, params models.MarketParams, seized *big.Int) ([][]byte, bool) {
	if params.CollateralToken == params.LoanToken {
		return nil, true
	}

	_, ok := e.router.Convert(ctx, enc, venue.ToConvert{
		Src:       params.CollateralToken,
		Dst:       params.LoanToken,
		SrcAmount: seized,
	})
	if !ok {
		return nil, false
	}

	callbackCalls, err := enc.Flush()
	if err != nil {
		e.log.Error("не удалось закодировать маршрут", zap.Error(err))
		return nil, false
	}
	return callbackCalls, true
}

// simulateAndSubmit - общий хвост пайплайна: skim, симуляция, профит, отправка
func (e *Engine) simulateAndSubmit(ctx context.Context, blockNumber uint64, attempt models.Attempt, enc *executor.Encoder, loanToken common.Address, badDebt bool) {
	if err := enc.ERC20Skim(loanToken, e.treasury()); err != nil {
		e.fail(ctx, attempt, err)
		return
	}

	calls, err := enc.Flush()
	if err != nil {
		e.fail(ctx, attempt, err)
		return
	}
	execData, err := executor.ExecCalldata(calls)
	if err != nil {
		e.fail(ctx, attempt, err)
		return
	}

	sim, err := e.backend.SimulateExec(ctx, loanToken, e.chainCfg.ExecutorAddress, execData)
	if err != nil {
		e.fail(ctx, attempt, err)
		return
	}
	if !sim.Succeeded() {
		attempt.Outcome = models.AttemptStateFailed
		attempt.Error = sim.ExecError
		e.finish(ctx, attempt)
		return
	}
	attempt.Outcome = models.AttemptStateSimulated

	// Bad debt при соответствующем флаге отправляется без проверки профита:
	// оздоровление рынка важнее убытка на газ
	skipCheck := badDebt && e.botCfg.AlwaysRealizeBadDebt
	if e.chainCfg.CheckProfit && !skipCheck {
		estimate, profitable := e.estimateProfit(ctx, loanToken, sim)
		attempt.ProfitUSD, _ = estimate.ProfitUSD.Float64()
		attempt.GasUSD, _ = estimate.GasUSD.Float64()
		if !profitable {
			attempt.Outcome = models.AttemptStateSkippedUnprofitable
			e.finish(ctx, attempt)
			return
		}
	}

	hash, err := e.submit.Submit(ctx, e.chainCfg.ExecutorAddress, execData, blockNumber)
	if err != nil {
		e.fail(ctx, attempt, err)
		return
	}

	attempt.Outcome = models.AttemptStateSubmitted
	attempt.TxHash = hash.Hex()
	submittedProfitUSD.WithLabelValues(e.chainCfg.Name).Add(attempt.ProfitUSD)
	e.log.Info("попытка отправлена",
		zap.String("kind", attempt.Kind),
		zap.String("market", attempt.MarketID),
		zap.String("borrower", attempt.Borrower),
		zap.String("tx_hash", attempt.TxHash),
		zap.Float64("profit_usd", attempt.ProfitUSD))
	e.finish(ctx, attempt)
}

// fail фиксирует ошибку пайплайна
func (e *Engine) fail(ctx context.Context, attempt models.Attempt, err error) {
	attempt.Outcome = models.AttemptStateFailed
	attempt.Error = err.Error()
	e.log.Warn("попытка не удалась",
		zap.String("kind", attempt.Kind),
		zap.String("market", attempt.MarketID),
		zap.String("borrower", attempt.Borrower),
		zap.Error(err))
	e.finish(ctx, attempt)
}

// finish учитывает терминальный исход в метриках и истории
func (e *Engine) finish(ctx context.Context, attempt models.Attempt) {
	attemptsTotal.WithLabelValues(e.chainCfg.Name, attempt.Kind, attempt.Outcome).Inc()
	if e.recorder != nil {
		e.recorder.Record(ctx, attempt)
	}
}
