package models

import "time"

// Виды попыток
const (
	AttemptKindLiquidation    = "liquidation"
	AttemptKindPreLiquidation = "preliquidation"
)

// Состояния попытки ликвидации
//
// Промежуточные состояния проходятся строго последовательно внутри одного
// пайплайна; терминальные - четыре последних. Повторов внутри цикла нет:
// следующая попытка происходит естественно на следующем тике.
const (
	AttemptStatePending         = "pending"
	AttemptStateCooldownChecked = "cooldown_checked"
	AttemptStateRouted          = "routed"
	AttemptStateEncoded         = "encoded"
	AttemptStateSimulated       = "simulated"

	AttemptStateSubmitted           = "submitted"
	AttemptStateSkippedUnprofitable = "skipped_unprofitable"
	AttemptStateSkippedRouteFailed  = "skipped_route_failed"
	AttemptStateFailed              = "failed"
)

// Attempt - запись о попытке ликвидации для истории и ops API
type Attempt struct {
	ID        int64     `json:"id" db:"id"`
	Chain     string    `json:"chain" db:"chain"`
	MarketID  string    `json:"market_id" db:"market_id"`
	Borrower  string    `json:"borrower" db:"borrower"`
	Kind      string    `json:"kind" db:"kind"`
	Outcome   string    `json:"outcome" db:"outcome"`
	BadDebt   bool      `json:"bad_debt" db:"bad_debt"`
	ProfitUSD float64   `json:"profit_usd" db:"profit_usd"`
	GasUSD    float64   `json:"gas_usd" db:"gas_usd"`
	TxHash    string    `json:"tx_hash,omitempty" db:"tx_hash"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
