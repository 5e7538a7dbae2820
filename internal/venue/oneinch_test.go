package venue

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"liquidator/internal/executor"
)

func TestOneInchSupportsRoute(t *testing.T) {
	tests := []struct {
		name    string
		chainID int64
		apiKey  string
		want    bool
	}{
		{"mainnet с ключом", 1, "key", true},
		{"base с ключом", 8453, "key", true},
		{"без ключа venue выключен", 1, "", false},
		{"неподдерживаемая сеть", 999999, "key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewOneInch(tt.chainID, tt.apiKey, "", 0, zap.NewNop())
			got := v.SupportsRoute(context.Background(), tokenA, tokenB)
			if got != tt.want {
				t.Errorf("SupportsRoute = %v, ожидается %v", got, tt.want)
			}
		})
	}
}

func TestOneInchConvert(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		if r.URL.Query().Get("src") != tokenA.Hex() {
			t.Errorf("src = %s, ожидается %s", r.URL.Query().Get("src"), tokenA.Hex())
		}
		if r.URL.Query().Get("amount") != "5000" {
			t.Errorf("amount = %s, ожидается 5000", r.URL.Query().Get("amount"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"dstAmount": "4900n",
			"tx": {
				"to": "0x1111111254EEB25477B68fb85Ed929f73A960582",
				"data": "0xdeadbeef",
				"value": "0n"
			}
		}`))
	}))
	defer server.Close()

	v := NewOneInch(1, "test-key", server.URL, 0, zap.NewNop())
	enc := executor.NewEncoder(executr)

	next, err := v.Convert(context.Background(), enc, ToConvert{Src: tokenA, Dst: tokenB, SrcAmount: big.NewInt(5000)})
	if err != nil {
		t.Fatalf("Convert вернул ошибку: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, ожидается Bearer с ключом", gotAuth)
	}
	if gotPath != "/swap/v6.0/1/swap" {
		t.Errorf("path = %s, ожидается /swap/v6.0/1/swap", gotPath)
	}

	if !next.Done() {
		t.Errorf("ожидается терминальное состояние, получено src=%s", next.Src.Hex())
	}
	if next.SrcAmount.Cmp(big.NewInt(4900)) != 0 {
		t.Errorf("SrcAmount = %s, ожидается 4900 (dstAmount quote'а)", next.SrcAmount)
	}
	// approve(router) + сам swap-вызов
	if enc.Len() != 2 {
		t.Errorf("в батче %d вызовов, ожидается 2", enc.Len())
	}
}

func TestOneInchConvertAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient liquidity"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	v := NewOneInch(1, "test-key", server.URL, 0, zap.NewNop())
	enc := executor.NewEncoder(executr)

	state := ToConvert{Src: tokenA, Dst: tokenB, SrcAmount: big.NewInt(5000)}
	if _, err := v.Convert(context.Background(), enc, state); err == nil {
		t.Fatal("ожидается ошибка при не-200 ответе API")
	}
	// При ошибке батч не должен пополняться
	if enc.Len() != 0 {
		t.Errorf("в батче %d вызовов, ожидается 0", enc.Len())
	}
}
