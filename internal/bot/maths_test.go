package bot

import (
	"math/big"
	"testing"
)

func TestWMulDown(t *testing.T) {
	tests := []struct {
		name string
		x    string
		y    string
		want string
	}{
		{"единица", "1000000000000000000", "1000000000000000000", "1000000000000000000"},
		{"половина", "1000000000000000000", "500000000000000000", "500000000000000000"},
		{"округление вниз", "3", "500000000000000000", "1"},
		{"ноль", "0", "1000000000000000000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, _ := new(big.Int).SetString(tt.x, 10)
			y, _ := new(big.Int).SetString(tt.y, 10)
			if got := wMulDown(x, y); got.String() != tt.want {
				t.Errorf("wMulDown(%s, %s) = %s, ожидается %s", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestApplyBuffer(t *testing.T) {
	tests := []struct {
		name      string
		seizable  string
		bufferBps int64
		want      string
	}{
		// 10 bps = 0.1%: 1e18 * 0.999
		{"дефолтный буфер", "1000000000000000000", 10, "999000000000000000"},
		{"нулевой буфер - identity", "1000000000000000000", 0, "1000000000000000000"},
		{"100 bps", "1000000", 100, "990000"},
		{"буфер больше целого", "1000", 10001, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seizable, _ := new(big.Int).SetString(tt.seizable, 10)
			if got := applyBuffer(seizable, tt.bufferBps); got.String() != tt.want {
				t.Errorf("applyBuffer(%s, %d) = %s, ожидается %s", tt.seizable, tt.bufferBps, got, tt.want)
			}
		})
	}
}

func TestApplyBufferDoesNotMutate(t *testing.T) {
	seizable := big.NewInt(1000000)
	applyBuffer(seizable, 10)
	if seizable.Int64() != 1000000 {
		t.Errorf("входное значение изменено: %s", seizable)
	}
}
