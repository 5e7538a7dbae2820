package venue

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"liquidator/internal/executor"
	"liquidator/internal/models"
	"liquidator/pkg/httpclient"
)

// DefaultOneInchBaseURL - прод-эндпоинт агрегатора
const DefaultOneInchBaseURL = "https://api.1inch.dev"

// DefaultOneInchSlippageBps - допустимое проскальзывание quote'а (1%)
const DefaultOneInchSlippageBps = 100

// oneInchNetworks - сети, которые обслуживает swap API
var oneInchNetworks = map[int64]bool{
	1:     true, // Ethereum
	10:    true, // Optimism
	56:    true, // BNB Chain
	137:   true, // Polygon
	8453:  true, // Base
	42161: true, // Arbitrum
	43114: true, // Avalanche
}

// OneInch - терминальный venue поверх swap API агрегатора
//
// Fallback для пар без собственного пула: любой src меняется напрямую в dst
// по заранее построенному агрегатором маршруту. Без API-ключа venue
// отключён.
type OneInch struct {
	chainID     int64
	apiKey      string
	baseURL     string
	slippageBps int64
	client      *http.Client
	log         *zap.Logger
}

// NewOneInch создаёт venue; пустой baseURL и нулевой slippage заменяются
// значениями по умолчанию
func NewOneInch(chainID int64, apiKey, baseURL string, slippageBps int64, log *zap.Logger) *OneInch {
	if baseURL == "" {
		baseURL = DefaultOneInchBaseURL
	}
	if slippageBps <= 0 {
		slippageBps = DefaultOneInchSlippageBps
	}
	return &OneInch{
		chainID:     chainID,
		apiKey:      apiKey,
		baseURL:     baseURL,
		slippageBps: slippageBps,
		client:      httpclient.Get(),
		log:         log,
	}
}

func (v *OneInch) Name() string { return "oneinch" }

func (v *OneInch) SupportsRoute(_ context.Context, src, dst common.Address) bool {
	return v.apiKey != "" && oneInchNetworks[v.chainID] && src != dst
}

// oneInchSwapResponse - ответ GET /swap/v6.0/{chain}/swap
type oneInchSwapResponse struct {
	DstAmount models.BigInt `json:"dstAmount"`
	Tx        struct {
		To    common.Address `json:"to"`
		Data  string         `json:"data"`
		Value models.BigInt  `json:"value"`
	} `json:"tx"`
}

// Convert запрашивает готовый маршрут у агрегатора и кодирует
// approve(router) + сам swap-вызов
func (v *OneInch) Convert(ctx context.Context, enc *executor.Encoder, toConvert ToConvert) (ToConvert, error) {
	swap, err := v.fetchSwap(ctx, toConvert.Src, toConvert.Dst, toConvert.SrcAmount, enc.Address())
	if err != nil {
		return toConvert, err
	}

	if err := enc.ERC20Approve(toConvert.Src, swap.Tx.To, toConvert.SrcAmount); err != nil {
		return toConvert, err
	}

	calldata, err := hexutil.Decode(swap.Tx.Data)
	if err != nil {
		return toConvert, fmt.Errorf("oneinch: decode calldata: %w", err)
	}
	enc.PushCall(swap.Tx.To, swap.Tx.Value.Unwrap(), calldata)

	return ToConvert{Src: toConvert.Dst, Dst: toConvert.Dst, SrcAmount: swap.DstAmount.Unwrap()}, nil
}

func (v *OneInch) fetchSwap(ctx context.Context, src, dst common.Address, amount *big.Int, from common.Address) (*oneInchSwapResponse, error) {
	endpoint := fmt.Sprintf("%s/swap/v6.0/%d/swap", v.baseURL, v.chainID)

	query := url.Values{}
	query.Set("src", src.Hex())
	query.Set("dst", dst.Hex())
	query.Set("amount", amount.String())
	query.Set("from", from.Hex())
	query.Set("origin", from.Hex())
	// API принимает проскальзывание в процентах
	query.Set("slippage", strconv.FormatFloat(float64(v.slippageBps)/100, 'f', -1, 64))
	query.Set("disableEstimate", "true")
	query.Set("allowPartialFill", "false")
	query.Set("usePermit2", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("oneinch: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oneinch: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oneinch: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oneinch: status %d: %s", resp.StatusCode, string(body))
	}

	var swap oneInchSwapResponse
	if err := jsoniter.Unmarshal(body, &swap); err != nil {
		return nil, fmt.Errorf("oneinch: decode response: %w", err)
	}
	if swap.Tx.To == (common.Address{}) {
		return nil, fmt.Errorf("oneinch: empty router address in response")
	}
	return &swap, nil
}
