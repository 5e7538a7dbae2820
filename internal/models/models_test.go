package models

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// ============ BigInt Tests ============

func TestBigIntUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"суффикс n", `"123456789012345678901234567890n"`, "123456789012345678901234567890", false},
		{"отрицательное с суффиксом", `"-42n"`, "-42", false},
		{"строка без суффикса", `"1000"`, "1000", false},
		{"обычное число", `1000`, "1000", false},
		{"ноль", `"0n"`, "0", false},
		{"мусор", `"abcn"`, "", true},
		{"пустая строка", `""`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b BigInt
			err := json.Unmarshal([]byte(tt.input), &b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ожидалась ошибка")
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if b.String() != tt.want {
				t.Errorf("ожидалось %s, получено %s", tt.want, b.String())
			}
		})
	}
}

func TestBigIntRoundTrip(t *testing.T) {
	src := NewBigInt(big.NewInt(987654321))

	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"987654321n"` {
		t.Errorf("ожидался формат с суффиксом n, получено %s", data)
	}

	var back BigInt
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Cmp(&src.Int) != 0 {
		t.Errorf("round-trip изменил значение: %s != %s", back.String(), src.String())
	}
}

// ============ MarketParams Tests ============

func TestMarketParamsID(t *testing.T) {
	params := MarketParams{
		LoanToken:       common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		CollateralToken: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Oracle:          common.HexToAddress("0x0000000000000000000000000000000000000001"),
		IRM:             common.HexToAddress("0x0000000000000000000000000000000000000002"),
		LLTV:            NewBigInt(big.NewInt(860000000000000000)),
	}

	id := params.ID()
	if id == (common.Hash{}) {
		t.Fatal("MarketID не должен быть нулевым")
	}

	// Детерминированность
	if params.ID() != id {
		t.Error("повторный вызов ID() дал другой хэш")
	}

	// Любое изменение параметров меняет идентификатор
	changed := params
	changed.LLTV = NewBigInt(big.NewInt(770000000000000000))
	if changed.ID() == id {
		t.Error("изменение lltv не изменило MarketID")
	}
}

func TestMarketParamsJSON(t *testing.T) {
	raw := `{
		"loanToken": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"collateralToken": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"oracle": "0x0000000000000000000000000000000000000001",
		"irm": "0x0000000000000000000000000000000000000002",
		"lltv": "860000000000000000n"
	}`

	var params MarketParams
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if params.LoanToken != common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48") {
		t.Errorf("loanToken распарсен неверно: %s", params.LoanToken)
	}
	if params.LLTV.String() != "860000000000000000" {
		t.Errorf("lltv распарсен неверно: %s", params.LLTV.String())
	}
}

// ============ Position Tests ============

func TestLiquidatablePositionBadDebt(t *testing.T) {
	tests := []struct {
		name       string
		collateral int64
		seizable   int64
		want       bool
	}{
		{"частичное изъятие", 1000, 500, false},
		{"полное изъятие - bad debt", 1000, 1000, true},
		{"нулевая позиция", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := LiquidatablePosition{
				Collateral:         NewBigInt(big.NewInt(tt.collateral)),
				SeizableCollateral: NewBigInt(big.NewInt(tt.seizable)),
			}
			if got := p.BadDebt(); got != tt.want {
				t.Errorf("BadDebt() = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

func TestMarketSnapshotJSON(t *testing.T) {
	raw := `{
		"market": {
			"params": {
				"loanToken": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
				"collateralToken": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
				"oracle": "0x0000000000000000000000000000000000000001",
				"irm": "0x0000000000000000000000000000000000000002",
				"lltv": "860000000000000000n"
			}
		},
		"positionsLiq": [
			{"user": "0x00000000000000000000000000000000000000aa", "collateral": "1000n", "seizableCollateral": "1000n"}
		],
		"positionsPreLiq": [
			{"user": "0x00000000000000000000000000000000000000bb", "collateral": "2000n", "seizableCollateral": "500n", "preLiquidation": "0x00000000000000000000000000000000000000cc"}
		]
	}`

	var snap MarketSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(snap.PositionsLiq) != 1 || len(snap.PositionsPreLiq) != 1 {
		t.Fatalf("неверное количество позиций: %d/%d", len(snap.PositionsLiq), len(snap.PositionsPreLiq))
	}
	if !snap.PositionsLiq[0].BadDebt() {
		t.Error("позиция с seizable == collateral должна быть bad debt")
	}
	if snap.PositionsPreLiq[0].PreLiquidation != common.HexToAddress("0x00000000000000000000000000000000000000cc") {
		t.Error("preLiquidation распарсен неверно")
	}
}
