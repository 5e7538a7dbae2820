package models

import (
	"fmt"
	"math/big"
	"strings"
)

// BigInt - JSON-кодек для целых произвольной точности
//
// Индексер сериализует bigint-поля строкой с суффиксом "n"
// (например "12345678901234567890n"), чтобы отличать их от float.
// Для устойчивости принимаются также обычные JSON-числа и строки без суффикса.
type BigInt struct {
	big.Int
}

// NewBigInt оборачивает *big.Int (nil трактуется как 0)
func NewBigInt(v *big.Int) *BigInt {
	b := &BigInt{}
	if v != nil {
		b.Set(v)
	}
	return b
}

// Unwrap возвращает значение как *big.Int
func (b *BigInt) Unwrap() *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return &b.Int
}

// UnmarshalJSON принимает "123n", "123" и 123
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}

	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSuffix(s, "n")

	if s == "" {
		return fmt.Errorf("models: empty bigint value")
	}

	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("models: invalid bigint value %q", s)
	}
	return nil
}

// MarshalJSON сериализует в формат индексера: "<digits>n"
func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `n"`), nil
}
