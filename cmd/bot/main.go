package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"liquidator/internal/api"
	"liquidator/internal/bot"
	"liquidator/internal/chain"
	"liquidator/internal/config"
	"liquidator/internal/indexer"
	"liquidator/internal/models"
	"liquidator/internal/pricer"
	"liquidator/internal/repository"
	"liquidator/internal/submitter"
	"liquidator/internal/venue"
	"liquidator/internal/websocket"
	"liquidator/pkg/utils"
)

func main() {
	// .env опционален: в контейнере конфигурация приходит через окружение
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	for name, chainErr := range cfg.ChainErrors {
		logger.Error("сеть не сконфигурирована и будет пропущена",
			zap.String("chain", name), zap.Error(chainErr))
	}

	// БД опциональна: без неё бот работает, но без истории попыток
	var attemptRepo *repository.AttemptRepository
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("не удалось открыть БД", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatal("БД недоступна", zap.Error(err))
		}
		attemptRepo = repository.NewAttemptRepository(db)
		logger.Info("история попыток пишется в Postgres")
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	recorder := &fanoutRecorder{repo: attemptRepo, hub: hub, log: logger}

	indexerClient := indexer.NewClient(cfg.IndexerURL, logger)
	vaultRegistry := indexer.NewVaultRegistry(cfg.RegistryURL, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var launched []string
	var clients []*chain.Client
	for _, chainCfg := range cfg.Chains {
		chainLog := utils.ChainLogger(logger, chainCfg.Name)

		client, err := chain.Dial(ctx, chainCfg, chainLog)
		if err != nil {
			chainLog.Error("сеть не запустилась", zap.Error(err))
			continue
		}
		clients = append(clients, client)

		engine := buildEngine(cfg, chainCfg, client, indexerClient, vaultRegistry, recorder, chainLog)

		go client.WatchHeads(ctx, chainCfg.BlockInterval, func(blockNumber uint64) {
			engine.RunCycle(ctx, blockNumber)
		})

		launched = append(launched, chainCfg.Name)
		chainLog.Info("пайплайн запущен",
			zap.Int64("chain_id", chainCfg.ChainID),
			zap.String("signer", client.SignerAddress().Hex()))
	}

	if len(launched) == 0 {
		logger.Fatal("ни одна сеть не запустилась")
	}

	router := api.SetupRoutes(&api.Dependencies{
		Attempts:     attemptRepo,
		Hub:          hub,
		Chains:       launched,
		APITokenHash: cfg.Server.APITokenHash,
		Log:          logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("ops сервер запущен", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ops сервер упал", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("останавливаюсь...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops сервер не остановился штатно", zap.Error(err))
	}

	for _, client := range clients {
		client.Close()
	}
	logger.Info("остановлен")
}

// buildEngine собирает движок сети: venue'ы, прайсеры, submitter
func buildEngine(
	cfg *config.Config,
	chainCfg config.ChainConfig,
	client *chain.Client,
	indexerClient *indexer.Client,
	vaultRegistry *indexer.VaultRegistry,
	recorder bot.AttemptRecorder,
	chainLog *zap.Logger,
) *bot.Engine {
	// Порядок venue'ов = приоритет: дешёвые детерминированные конвертации
	// раньше swap'ов
	venues := []venue.LiquidityVenue{
		venue.NewErc20Wrapper(nil), // таблица обёрток пополняется по мере появления
		venue.NewErc4626(client),
		venue.NewUniswapV3(client, chainCfg.UniswapV3Factory, chainLog),
	}
	if cfg.Bot.OneInchAPIKey != "" {
		venues = append(venues, venue.NewOneInch(chainCfg.ChainID, cfg.Bot.OneInchAPIKey, "", 0, chainLog))
	}
	router := venue.NewRouter(venues, cfg.Bot.MaxRouteHops, chainLog)

	var pricers []pricer.Pricer
	pricers = append(pricers, pricer.NewChainlink(client, chainLog))
	if llama := pricer.NewDefiLlama(chainCfg.ChainID, "", chainLog); llama != nil {
		pricers = append(pricers, llama)
	}

	var sub submitter.Submitter
	if chainCfg.UseFlashbots && cfg.Bot.FlashbotsPrivateKey != "" {
		flashbots, err := submitter.NewFlashbots(client, cfg.Bot.FlashbotsRelayURL, cfg.Bot.FlashbotsPrivateKey, chainLog)
		if err != nil {
			chainLog.Warn("flashbots недоступен, переключаюсь на прямую отправку", zap.Error(err))
		} else {
			sub = flashbots
		}
	}
	if sub == nil {
		sub = submitter.NewDirect(client, chainLog)
	}

	var vaultSource bot.VaultSource
	if chainCfg.UseRegistry {
		vaultSource = vaultRegistry
	}

	return bot.NewEngine(chainCfg, cfg.Bot, client, indexerClient, vaultSource,
		router, pricers, sub, recorder, chainLog)
}

// fanoutRecorder раздаёт завершённые попытки в БД и websocket-поток
type fanoutRecorder struct {
	repo *repository.AttemptRepository
	hub  *websocket.Hub
	log  *zap.Logger
}

func (r *fanoutRecorder) Record(_ context.Context, attempt models.Attempt) {
	if r.repo != nil {
		if err := r.repo.Create(&attempt); err != nil {
			r.log.Warn("не удалось сохранить попытку", zap.Error(err))
		}
	}
	r.hub.BroadcastAttempt(attempt)
}
