// Package chain инкапсулирует доступ к EVM-сети: view-вызовы контрактов,
// симуляцию батча, подпись и отправку транзакций, подписку на блоки.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"liquidator/internal/config"
	"liquidator/internal/executor"
)

// Client - клиент одной сети
//
// Кэш decimals и методы чтения безопасны для конкурентных пайплайнов.
// Назначение nonce сериализовано мьютексом: параллельные отправки не должны
// затирать nonce друг друга.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client

	chainID *big.Int
	name    string

	key  *ecdsa.PrivateKey
	from common.Address

	// nonceMu сериализует назначение nonce при прямой отправке
	nonceMu sync.Mutex

	// Кэш decimals токенов: значение неизменяемо, живёт весь процесс
	decimalsMu sync.RWMutex
	decimals   map[common.Address]uint8

	log *zap.Logger
}

// Dial подключается к RPC и проверяет соответствие chain id конфигурации
func Dial(ctx context.Context, cfg config.ChainConfig, log *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.Name, err)
	}

	eth := ethclient.NewClient(rpcClient)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if chainID.Int64() != cfg.ChainID {
		rpcClient.Close()
		return nil, fmt.Errorf("chain: rpc reports chain id %d, config says %d", chainID.Int64(), cfg.ChainID)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}

	return &Client{
		rpc:      rpcClient,
		eth:      eth,
		chainID:  chainID,
		name:     strings.ToLower(cfg.Name),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		decimals: make(map[common.Address]uint8),
		log:      log,
	}, nil
}

// Close закрывает RPC-соединение
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID возвращает идентификатор сети
func (c *Client) ChainID() int64 {
	return c.chainID.Int64()
}

// Name возвращает slug сети (ключ для прайсеров: "<name>:<asset>")
func (c *Client) Name() string {
	return c.name
}

// SignerAddress возвращает адрес подписанта
func (c *Client) SignerAddress() common.Address {
	return c.from
}

// CallView выполняет view-вызов контракта и распаковывает результат
func (c *Client) CallView(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s on %s: %w", method, to, err)
	}

	result, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return result, nil
}

// TokenDecimals возвращает decimals токена с кэшированием
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	c.decimalsMu.RLock()
	cached, ok := c.decimals[token]
	c.decimalsMu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err := c.CallView(ctx, token, executor.ERC20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	value, ok := result[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chain: decimals of %s: unexpected type %T", token, result[0])
	}

	c.decimalsMu.Lock()
	c.decimals[token] = value
	c.decimalsMu.Unlock()

	return value, nil
}

// GasPrice возвращает текущую цену газа
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

// BlockNumber возвращает номер последнего блока
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// buildExecTx собирает и подписывает транзакцию exec под текущий nonce.
// Вызывать только под nonceMu.
func (c *Client) buildExecTx(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("chain: nonce: %w", err)
	}

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: head: %w", err)
	}

	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: tip cap: %w", err)
	}

	// feeCap = 2*baseFee + tip, переживает умеренный рост baseFee
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit + gasLimit/5,
		To:        &to,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("chain: sign tx: %w", err)
	}
	return signed, nil
}

// SendExec подписывает и отправляет транзакцию exec в публичный mempool
func (c *Client) SendExec(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	tx, err := c.buildExecTx(ctx, to, data)
	if err != nil {
		return common.Hash{}, err
	}

	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("chain: send tx: %w", err)
	}
	return tx.Hash(), nil
}

// SignExecRaw подписывает транзакцию exec и возвращает raw-байты
// (для приватной отправки бандлом, минуя mempool)
func (c *Client) SignExecRaw(ctx context.Context, to common.Address, data []byte) ([]byte, common.Hash, error) {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	tx, err := c.buildExecTx(ctx, to, data)
	if err != nil {
		return nil, common.Hash{}, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("chain: marshal tx: %w", err)
	}
	return raw, tx.Hash(), nil
}
