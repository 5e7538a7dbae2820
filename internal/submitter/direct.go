package submitter

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidator/internal/chain"
)

// Direct отправляет транзакцию в публичный mempool сети
//
// На L2 с приватным секвенсером фронтраннинг не угрожает и прямая
// отправка - штатный путь.
type Direct struct {
	client *chain.Client
	log    *zap.Logger
}

// NewDirect создаёт submitter поверх клиента сети
func NewDirect(client *chain.Client, log *zap.Logger) *Direct {
	return &Direct{client: client, log: log}
}

func (d *Direct) Name() string { return "direct" }

// Submit подписывает и отправляет транзакцию; номер блока не используется
func (d *Direct) Submit(ctx context.Context, to common.Address, data []byte, _ uint64) (common.Hash, error) {
	hash, err := d.client.SendExec(ctx, to, data)
	if err != nil {
		return common.Hash{}, err
	}

	d.log.Info("транзакция отправлена в mempool",
		zap.String("tx_hash", hash.Hex()))
	return hash, nil
}
