// Package repository - доступ к Postgres с историей попыток ликвидации.
//
// БД опциональна: бот полностью работоспособен без неё, история нужна
// только для ops API и разбора инцидентов.
package repository

import (
	"database/sql"
	"errors"
	"time"

	"liquidator/internal/models"
)

// Ошибки репозитория попыток
var (
	ErrAttemptNotFound = errors.New("attempt not found")
)

// AttemptRepository - работа с таблицей attempts
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository создает новый экземпляр репозитория
func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create сохраняет запись о завершённой попытке
func (r *AttemptRepository) Create(attempt *models.Attempt) error {
	query := `
		INSERT INTO attempts (chain, market_id, borrower, kind, outcome, bad_debt, profit_usd, gas_usd, tx_hash, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	return r.db.QueryRow(
		query,
		attempt.Chain,
		attempt.MarketID,
		attempt.Borrower,
		attempt.Kind,
		attempt.Outcome,
		attempt.BadDebt,
		attempt.ProfitUSD,
		attempt.GasUSD,
		attempt.TxHash,
		attempt.Error,
		attempt.CreatedAt,
	).Scan(&attempt.ID)
}

// GetByID возвращает попытку по ID
func (r *AttemptRepository) GetByID(id int64) (*models.Attempt, error) {
	query := `
		SELECT id, chain, market_id, borrower, kind, outcome, bad_debt, profit_usd, gas_usd, tx_hash, error, created_at
		FROM attempts
		WHERE id = $1`

	attempt := &models.Attempt{}
	err := r.db.QueryRow(query, id).Scan(
		&attempt.ID,
		&attempt.Chain,
		&attempt.MarketID,
		&attempt.Borrower,
		&attempt.Kind,
		&attempt.Outcome,
		&attempt.BadDebt,
		&attempt.ProfitUSD,
		&attempt.GasUSD,
		&attempt.TxHash,
		&attempt.Error,
		&attempt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	return attempt, nil
}

// ListRecent возвращает последние попытки, опционально фильтруя по сети
func (r *AttemptRepository) ListRecent(chain string, limit int) ([]*models.Attempt, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, chain, market_id, borrower, kind, outcome, bad_debt, profit_usd, gas_usd, tx_hash, error, created_at
		FROM attempts
		WHERE ($1 = '' OR chain = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, chain, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		attempt := &models.Attempt{}
		err := rows.Scan(
			&attempt.ID,
			&attempt.Chain,
			&attempt.MarketID,
			&attempt.Borrower,
			&attempt.Kind,
			&attempt.Outcome,
			&attempt.BadDebt,
			&attempt.ProfitUSD,
			&attempt.GasUSD,
			&attempt.TxHash,
			&attempt.Error,
			&attempt.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return attempts, nil
}

// SubmittedStats возвращает агрегаты по отправленным попыткам за период
func (r *AttemptRepository) SubmittedStats(since time.Time) (count int64, profitUSD float64, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(profit_usd), 0)
		FROM attempts
		WHERE outcome = $1 AND created_at >= $2`

	err = r.db.QueryRow(query, models.AttemptStateSubmitted, since).Scan(&count, &profitUSD)
	return count, profitUSD, err
}
