package venue

import (
	"context"

	"go.uber.org/zap"

	"liquidator/internal/executor"
)

// Router проводит ToConvert через цепочку venue'ов до целевого актива
//
// Алгоритм: venue'ы опрашиваются в фиксированном порядке приоритета; первый,
// поддерживающий текущую пару (src, dst), делает шаг конвертации, после чего
// обход НАЧИНАЕТСЯ ЗАНОВО с первого venue - так собираются многошаговые пути
// вида "unwrap → redeem vault → swap на DEX".
//
// Защита от зацикливания: maxHops ограничивает число шагов; два venue,
// перекидывающих состояние друг другу без прогресса, упрутся в лимит и
// роутер вернёт отказ (эквивалент route-not-found).
type Router struct {
	venues  []LiquidityVenue
	maxHops int
	log     *zap.Logger
}

// DefaultMaxHops - запас с избытком: реальные маршруты укладываются в 3-4 шага
const DefaultMaxHops = 8

// NewRouter создаёт роутер с заданным порядком venue'ов
func NewRouter(venues []LiquidityVenue, maxHops int, log *zap.Logger) *Router {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Router{venues: venues, maxHops: maxHops, log: log}
}

// Convert ведёт конвертацию до Src == Dst
//
// Возвращает (финальное состояние, true) при успехе. Отказ - если полный
// проход по списку не нашёл применимого venue либо исчерпан лимит шагов.
// Частичный маршрут не является успехом: вызывающая сторона обязана
// отбросить попытку целиком.
func (r *Router) Convert(ctx context.Context, enc *executor.Encoder, toConvert ToConvert) (ToConvert, bool) {
	current := toConvert

	for hop := 0; hop < r.maxHops; hop++ {
		if current.Done() {
			return current, true
		}

		progressed := false

		for _, v := range r.venues {
			if !v.SupportsRoute(ctx, current.Src, current.Dst) {
				continue
			}

			next, err := v.Convert(ctx, enc, current)
			if err != nil {
				r.log.Warn("venue не смог конвертировать",
					zap.String("venue", v.Name()),
					zap.String("src", current.Src.Hex()),
					zap.String("dst", current.Dst.Hex()),
					zap.Error(err))
				continue
			}

			// Venue вернул состояние без изменений - прогресса нет,
			// пробуем следующий
			if next == current || (next.Src == current.Src && next.SrcAmount.Cmp(current.SrcAmount) == 0) {
				continue
			}

			current = next
			progressed = true
			break
		}

		if current.Done() {
			return current, true
		}

		if !progressed {
			return current, false
		}
	}

	r.log.Warn("маршрут превысил лимит шагов",
		zap.Int("max_hops", r.maxHops),
		zap.String("src", current.Src.Hex()),
		zap.String("dst", current.Dst.Hex()))
	return current, false
}
