// Package indexer - клиент сервиса индексации: он следит за рынками
// протокола и отдаёт боту готовый список ликвидируемых позиций.
//
// Бот доверяет индексеру факт ликвидируемости, но не профитность:
// каждая позиция дальше проходит симуляцию и проверку профита.
package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"liquidator/internal/models"
	"liquidator/pkg/httpclient"
	"liquidator/pkg/retry"
)

// Client - HTTP-клиент индексера
type Client struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewClient создаёт клиент с общим HTTP-пулом процесса
func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  httpclient.Get(),
		log:     log,
	}
}

// marketsRequest / marketsResponse - POST /chain/{id}/withdraw-queue-set
type marketsRequest struct {
	Vaults []common.Address `json:"vaults"`
}

type marketsResponse struct {
	Markets []models.MarketID `json:"markets"`
}

// MarketsForVaults возвращает объединение withdraw-очередей vault'ов:
// множество рынков, в которых может находиться залог их вкладчиков
func (c *Client) MarketsForVaults(ctx context.Context, chainID int64, vaults []common.Address) ([]models.MarketID, error) {
	endpoint := fmt.Sprintf("%s/chain/%d/withdraw-queue-set", c.baseURL, chainID)

	var parsed marketsResponse
	if err := c.post(ctx, endpoint, marketsRequest{Vaults: vaults}, &parsed); err != nil {
		return nil, err
	}
	return parsed.Markets, nil
}

// positionsRequest / positionsResponse - POST /chain/{id}/liquidatable-positions
type positionsRequest struct {
	MarketIDs []models.MarketID `json:"marketIds"`
}

type positionsResponse struct {
	Results  []models.MarketSnapshot `json:"results"`
	Warnings []string                `json:"warnings"`
}

// LiquidatablePositions возвращает срезы рынков с позициями, доступными
// для ликвидации и пре-ликвидации
//
// Warnings индексера (рынки, которые он не смог оценить) не являются
// ошибкой: они логируются, остальные результаты обрабатываются.
func (c *Client) LiquidatablePositions(ctx context.Context, chainID int64, marketIDs []models.MarketID) ([]models.MarketSnapshot, error) {
	endpoint := fmt.Sprintf("%s/chain/%d/liquidatable-positions", c.baseURL, chainID)

	var parsed positionsResponse
	if err := c.post(ctx, endpoint, positionsRequest{MarketIDs: marketIDs}, &parsed); err != nil {
		return nil, err
	}

	for _, warning := range parsed.Warnings {
		c.log.Warn("предупреждение индексера", zap.String("warning", warning))
	}
	return parsed.Results, nil
}

// post выполняет POST с JSON-телом и ретраями на сетевых ошибках
func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := jsoniter.Marshal(payload)
	if err != nil {
		return fmt.Errorf("indexer: encode request: %w", err)
	}

	return retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("indexer: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("indexer: request %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("indexer: read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("indexer: %s: status %d: %s", endpoint, resp.StatusCode, string(raw))
		}

		if err := jsoniter.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("indexer: decode response: %w", err)
		}
		return nil
	}, retry.NetworkConfig())
}
