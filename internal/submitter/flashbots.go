package submitter

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"liquidator/internal/chain"
	"liquidator/pkg/httpclient"
)

// DefaultFlashbotsRelayURL - прод-релей Flashbots (только mainnet)
const DefaultFlashbotsRelayURL = "https://relay.flashbots.net"

// Flashbots отправляет транзакцию приватным бандлом, минуя публичный
// mempool - защита от фронтраннинга ликвидации
//
// Бандл таргетируется на следующий блок после того, что запустил цикл.
// Невключение бандла не ошибка: попытка просто истекает и позиция
// переоценивается.
type Flashbots struct {
	client   *chain.Client
	relayURL string
	authKey  *ecdsa.PrivateKey
	authAddr common.Address
	http     *http.Client
	log      *zap.Logger
}

// NewFlashbots создаёт submitter; authKeyHex - отдельный ключ подписи
// запросов к релею (репутация searcher'а), не ключ отправителя
func NewFlashbots(client *chain.Client, relayURL, authKeyHex string, log *zap.Logger) (*Flashbots, error) {
	if relayURL == "" {
		relayURL = DefaultFlashbotsRelayURL
	}

	authKey, err := crypto.HexToECDSA(strings.TrimPrefix(authKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("flashbots: parse auth key: %w", err)
	}

	return &Flashbots{
		client:   client,
		relayURL: relayURL,
		authKey:  authKey,
		authAddr: crypto.PubkeyToAddress(authKey.PublicKey),
		http:     httpclient.Get(),
		log:      log,
	}, nil
}

func (f *Flashbots) Name() string { return "flashbots" }

type bundleParams struct {
	Txs         []string `json:"txs"`
	BlockNumber string   `json:"blockNumber"`
}

type bundleRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  []bundleParams `json:"params"`
}

type bundleResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Submit подписывает транзакцию и отправляет бандл на блок blockNumber+1
func (f *Flashbots) Submit(ctx context.Context, to common.Address, data []byte, blockNumber uint64) (common.Hash, error) {
	raw, txHash, err := f.client.SignExecRaw(ctx, to, data)
	if err != nil {
		return common.Hash{}, err
	}

	target := blockNumber + 1
	body, err := jsoniter.Marshal(bundleRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_sendBundle",
		Params: []bundleParams{{
			Txs:         []string{hexutil.Encode(raw)},
			BlockNumber: hexutil.EncodeUint64(target),
		}},
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("flashbots: encode bundle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.relayURL, bytes.NewReader(body))
	if err != nil {
		return common.Hash{}, fmt.Errorf("flashbots: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	signature, err := f.signPayload(body)
	if err != nil {
		return common.Hash{}, err
	}
	req.Header.Set("X-Flashbots-Signature", signature)

	resp, err := f.http.Do(req)
	if err != nil {
		return common.Hash{}, fmt.Errorf("flashbots: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.Hash{}, fmt.Errorf("flashbots: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return common.Hash{}, fmt.Errorf("flashbots: status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed bundleResponse
	if err := jsoniter.Unmarshal(respBody, &parsed); err != nil {
		return common.Hash{}, fmt.Errorf("flashbots: decode response: %w", err)
	}
	if parsed.Error != nil {
		return common.Hash{}, fmt.Errorf("flashbots: relay error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	f.log.Info("бандл отправлен в релей",
		zap.Uint64("target_block", target),
		zap.String("tx_hash", txHash.Hex()))
	return txHash, nil
}

// signPayload строит заголовок X-Flashbots-Signature: подпись EIP-191
// над hex-представлением keccak256 тела запроса
func (f *Flashbots) signPayload(body []byte) (string, error) {
	hashed := crypto.Keccak256Hash(body).Hex()
	signature, err := crypto.Sign(accounts.TextHash([]byte(hashed)), f.authKey)
	if err != nil {
		return "", fmt.Errorf("flashbots: sign payload: %w", err)
	}
	return f.authAddr.Hex() + ":" + hexutil.Encode(signature), nil
}
