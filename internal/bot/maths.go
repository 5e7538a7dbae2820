package bot

import "math/big"

// maths.go - fixed-point арифметика протокола (WAD = 1e18)

var (
	wad       = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	bpsFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(14), nil)
)

// wMulDown умножает два WAD-числа с округлением вниз: x * y / WAD
func wMulDown(x, y *big.Int) *big.Int {
	out := new(big.Int).Mul(x, y)
	return out.Div(out, wad)
}

// applyBuffer уменьшает изымаемый залог на буфер в bps
//
// Индексер считает seizable по своему взгляду на оракул; к моменту попадания
// транзакции в блок цена может сдвинуться и полное изъятие ревертнёт.
// Буфер жертвует крохами профита ради надёжности включения.
func applyBuffer(seizable *big.Int, bufferBps int64) *big.Int {
	if bufferBps <= 0 {
		return new(big.Int).Set(seizable)
	}
	discount := new(big.Int).Sub(wad, new(big.Int).Mul(big.NewInt(bufferBps), bpsFactor))
	if discount.Sign() <= 0 {
		return big.NewInt(0)
	}
	return wMulDown(seizable, discount)
}
