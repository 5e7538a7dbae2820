package bot

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidator/internal/models"
)

// Cooldown троттлит повторные попытки по одной позиции
//
// Циклы перекрываются и несколько горутин могут одновременно дойти до
// одной позиции: TryAcquire атомарен, ровно одна горутина получает право
// на попытку в пределах периода. Исход попытки на cooldown не влияет -
// неудачная попытка тоже жгла бы газ при мгновенном повторе.
type Cooldown struct {
	enabled bool
	period  time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last map[cooldownKey]time.Time
}

type cooldownKey struct {
	market   models.MarketID
	borrower common.Address
}

// NewCooldown создаёт трекер; при enabled == false попытки не троттлятся
func NewCooldown(enabled bool, period time.Duration) *Cooldown {
	return &Cooldown{
		enabled: enabled,
		period:  period,
		now:     time.Now,
		last:    map[cooldownKey]time.Time{},
	}
}

// TryAcquire атомарно проверяет и ставит отметку попытки.
// true = можно пробовать, false = позиция на cooldown'е.
func (c *Cooldown) TryAcquire(market models.MarketID, borrower common.Address) bool {
	if !c.enabled {
		return true
	}

	key := cooldownKey{market: market, borrower: borrower}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[key]; ok && now.Sub(last) < c.period {
		return false
	}
	c.last[key] = now
	return true
}
