package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	jsoniter "github.com/json-iterator/go"

	"liquidator/internal/models"
	"liquidator/internal/repository"
)

func newHandlerFixture(t *testing.T) (*AttemptHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAttemptHandler(repository.NewAttemptRepository(db)), mock
}

var attemptColumns = []string{"id", "chain", "market_id", "borrower", "kind", "outcome",
	"bad_debt", "profit_usd", "gas_usd", "tx_hash", "error", "created_at"}

func TestGetAttempts(t *testing.T) {
	handler, mock := newHandlerFixture(t)

	mock.ExpectQuery(`SELECT .+ FROM attempts`).
		WithArgs("mainnet", 100).
		WillReturnRows(sqlmock.NewRows(attemptColumns).
			AddRow(1, "mainnet", "0x01", "0xb1", models.AttemptKindLiquidation,
				models.AttemptStateSubmitted, false, 3.5, 0.2, "0xfeed", "", time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts?chain=mainnet", nil)
	rec := httptest.NewRecorder()
	handler.GetAttempts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидается 200", rec.Code)
	}

	var attempts []models.Attempt
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), &attempts); err != nil {
		t.Fatalf("ответ не распарсился: %v", err)
	}
	if len(attempts) != 1 || attempts[0].TxHash != "0xfeed" {
		t.Errorf("неожиданный ответ: %+v", attempts)
	}
}

func TestGetAttemptsInvalidLimit(t *testing.T) {
	handler, _ := newHandlerFixture(t)

	tests := []string{"0", "-5", "10000", "abc"}
	for _, limit := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts?limit="+limit, nil)
		rec := httptest.NewRecorder()
		handler.GetAttempts(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, ожидается 400", limit, rec.Code)
		}
	}
}

func TestGetStats(t *testing.T) {
	handler, mock := newHandlerFixture(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(models.AttemptStateSubmitted, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, 17.5))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts/stats?hours=12", nil)
	rec := httptest.NewRecorder()
	handler.GetStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидается 200", rec.Code)
	}

	var stats statsResponse
	if err := jsoniter.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("ответ не распарсился: %v", err)
	}
	if stats.Submitted != 3 || stats.ProfitUSD != 17.5 {
		t.Errorf("неожиданные агрегаты: %+v", stats)
	}
}
