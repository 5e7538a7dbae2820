package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MarketParams - неизменяемый идентификатор рынка кредитования
//
// Поля соответствуют on-chain структуре протокола; бот получает их от
// индексера и никогда не мутирует.
type MarketParams struct {
	LoanToken       common.Address `json:"loanToken"`
	CollateralToken common.Address `json:"collateralToken"`
	Oracle          common.Address `json:"oracle"`
	IRM             common.Address `json:"irm"`
	LLTV            *BigInt        `json:"lltv"`
}

// MarketID - стабильный идентификатор рынка: keccak256(abi.encode(params))
type MarketID = common.Hash

// ID вычисляет MarketID как хэш ABI-кодировки параметров
// (5 слов по 32 байта: адреса с левым паддингом + lltv)
func (p MarketParams) ID() MarketID {
	buf := make([]byte, 0, 5*32)
	buf = append(buf, common.LeftPadBytes(p.LoanToken.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(p.CollateralToken.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(p.Oracle.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(p.IRM.Bytes(), 32)...)

	lltv := new(big.Int)
	if p.LLTV != nil {
		lltv.Set(p.LLTV.Unwrap())
	}
	buf = append(buf, common.LeftPadBytes(lltv.Bytes(), 32)...)

	return crypto.Keccak256Hash(buf)
}

// Market - рынок в ответе индексера
type Market struct {
	Params MarketParams `json:"params"`
}

// LiquidatablePosition - позиция, доступная для стандартной ликвидации
//
// SeizableCollateral вычислен индексером. Если он равен полному Collateral,
// позиция является bad debt: заёмщик неплатёжеспособен и буфер не применяется.
type LiquidatablePosition struct {
	User               common.Address `json:"user"`
	Collateral         *BigInt        `json:"collateral"`
	SeizableCollateral *BigInt        `json:"seizableCollateral"`
}

// BadDebt возвращает true если изъятию подлежит весь залог позиции
func (p LiquidatablePosition) BadDebt() bool {
	if p.Collateral == nil || p.SeizableCollateral == nil {
		return false
	}
	return p.Collateral.Cmp(&p.SeizableCollateral.Int) == 0
}

// PreLiquidatablePosition - позиция с активированной пре-ликвидацией
//
// PreLiquidation - адрес контракта пре-ликвидации, авторизованного заёмщиком
// заранее, со своей кривой дисконта.
type PreLiquidatablePosition struct {
	User               common.Address `json:"user"`
	Collateral         *BigInt        `json:"collateral"`
	SeizableCollateral *BigInt        `json:"seizableCollateral"`
	PreLiquidation     common.Address `json:"preLiquidation"`
}

// MarketSnapshot - срез одного рынка из ответа /liquidatable-positions
type MarketSnapshot struct {
	Market          Market                    `json:"market"`
	PositionsLiq    []LiquidatablePosition    `json:"positionsLiq"`
	PositionsPreLiq []PreLiquidatablePosition `json:"positionsPreLiq"`
}
