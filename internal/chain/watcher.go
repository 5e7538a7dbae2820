package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// watcher.go - запуск цикла движка по приходу блоков
//
// Основной путь - подписка newHeads (websocket RPC). Если подписки
// недоступны (http RPC), используется опрос номера блока с интервалом.
//
// Обработчик запускается в отдельной горутине: циклы могут перекрываться,
// отмены начатого цикла при новом блоке нет - это осознанная модель,
// общие кэши рассчитаны на конкурентный доступ.

const headPollInterval = 2 * time.Second

// WatchHeads вызывает handler каждые blockInterval блоков до отмены ctx
func (c *Client) WatchHeads(ctx context.Context, blockInterval int, handler func(blockNumber uint64)) {
	if blockInterval < 1 {
		blockInterval = 1
	}

	heads := make(chan *types.Header, 16)
	sub, err := c.eth.SubscribeNewHead(ctx, heads)
	if err != nil {
		c.log.Warn("подписка newHeads недоступна, переключаюсь на polling",
			zap.Error(err))
		c.pollHeads(ctx, blockInterval, handler)
		return
	}
	defer sub.Unsubscribe()

	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			c.log.Warn("подписка newHeads оборвалась, переключаюсь на polling",
				zap.Error(err))
			c.pollHeads(ctx, blockInterval, handler)
			return
		case head := <-heads:
			if count%blockInterval == 0 {
				go handler(head.Number.Uint64())
			}
			count++
		}
	}
}

// pollHeads - fallback на опрос номера блока
func (c *Client) pollHeads(ctx context.Context, blockInterval int, handler func(blockNumber uint64)) {
	ticker := time.NewTicker(headPollInterval)
	defer ticker.Stop()

	var lastSeen uint64
	count := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			number, err := c.BlockNumber(ctx)
			if err != nil {
				c.log.Warn("не удалось получить номер блока", zap.Error(err))
				continue
			}
			if number <= lastSeen {
				continue
			}
			lastSeen = number

			if count%blockInterval == 0 {
				go handler(number)
			}
			count++
		}
	}
}
