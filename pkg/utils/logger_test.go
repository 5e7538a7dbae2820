package utils

import "testing"

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"пустые значения - дефолты", "", "", false},
		{"неизвестный уровень", "trace", "json", true},
		{"неизвестный формат", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := InitLogger(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ожидалась ошибка")
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if logger == nil {
				t.Fatal("InitLogger вернул nil")
			}
		})
	}
}

func TestChainLogger(t *testing.T) {
	base, err := InitLogger("info", "json")
	if err != nil {
		t.Fatalf("InitLogger: %v", err)
	}

	chainLog := ChainLogger(base, "mainnet")
	if chainLog == nil {
		t.Fatal("ChainLogger вернул nil")
	}
}
