package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"liquidator/internal/models"
)

// ============================================================
// AttemptRepository Tests
// ============================================================

func newMockRepo(t *testing.T) (*AttemptRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAttemptRepository(db), mock
}

func TestAttemptRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	attempt := &models.Attempt{
		Chain:     "mainnet",
		MarketID:  "0x01",
		Borrower:  "0xb1",
		Kind:      models.AttemptKindLiquidation,
		Outcome:   models.AttemptStateSubmitted,
		ProfitUSD: 12.5,
		TxHash:    "0xfeed",
	}

	mock.ExpectQuery(`INSERT INTO attempts`).
		WithArgs("mainnet", "0x01", "0xb1", models.AttemptKindLiquidation,
			models.AttemptStateSubmitted, false, 12.5, 0.0, "0xfeed", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	if err := repo.Create(attempt); err != nil {
		t.Fatalf("Create вернул ошибку: %v", err)
	}
	if attempt.ID != 7 {
		t.Errorf("ID = %d, ожидается 7", attempt.ID)
	}
	if attempt.CreatedAt.IsZero() {
		t.Error("CreatedAt должен быть проставлен")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("невыполненные ожидания: %v", err)
	}
}

func TestAttemptRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	columns := []string{"id", "chain", "market_id", "borrower", "kind", "outcome",
		"bad_debt", "profit_usd", "gas_usd", "tx_hash", "error", "created_at"}

	mock.ExpectQuery(`SELECT .+ FROM attempts`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "mainnet", "0x01", "0xb1", models.AttemptKindLiquidation,
				models.AttemptStateSubmitted, false, 12.5, 0.3, "0xfeed", "", time.Now()))

	attempt, err := repo.GetByID(7)
	if err != nil {
		t.Fatalf("GetByID вернул ошибку: %v", err)
	}
	if attempt.Chain != "mainnet" || attempt.ProfitUSD != 12.5 {
		t.Errorf("неожиданная запись: %+v", attempt)
	}
}

func TestAttemptRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM attempts`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(404)
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("err = %v, ожидается ErrAttemptNotFound", err)
	}
}

func TestAttemptRepositoryListRecent(t *testing.T) {
	repo, mock := newMockRepo(t)

	columns := []string{"id", "chain", "market_id", "borrower", "kind", "outcome",
		"bad_debt", "profit_usd", "gas_usd", "tx_hash", "error", "created_at"}

	mock.ExpectQuery(`SELECT .+ FROM attempts`).
		WithArgs("base", 50).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "base", "0x02", "0xb2", models.AttemptKindPreLiquidation,
				models.AttemptStateSkippedUnprofitable, false, 0.0, 0.1, "", "", time.Now()).
			AddRow(1, "base", "0x01", "0xb1", models.AttemptKindLiquidation,
				models.AttemptStateSubmitted, true, 3.2, 0.2, "0xfeed", "", time.Now()))

	attempts, err := repo.ListRecent("base", 50)
	if err != nil {
		t.Fatalf("ListRecent вернул ошибку: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("получено %d записей, ожидается 2", len(attempts))
	}
	if attempts[1].BadDebt != true {
		t.Error("bad_debt не прочитан")
	}
}

func TestAttemptRepositorySubmittedStats(t *testing.T) {
	repo, mock := newMockRepo(t)

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(models.AttemptStateSubmitted, since).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(5, 42.7))

	count, profit, err := repo.SubmittedStats(since)
	if err != nil {
		t.Fatalf("SubmittedStats вернул ошибку: %v", err)
	}
	if count != 5 || profit != 42.7 {
		t.Errorf("count=%d profit=%f, ожидается 5 и 42.7", count, profit)
	}
}
