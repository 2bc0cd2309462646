// Package asset formats native coin balances.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used for display.
package asset

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrNegativeAmount is the panic value for a negative raw amount.
var ErrNegativeAmount = errors.New("asset: negative amount")

// Coin is the metadata of a native coin.
type Coin struct {
	Symbol   string
	Decimals uint8
}

// Ether is the native coin of Ethereum mainnet and its testnets.
var Ether = Coin{Symbol: "ETH", Decimals: 18}

// Amount is an immutable quantity of a coin in its smallest unit.
type Amount struct {
	raw  *big.Int
	coin Coin
}

// NewAmount creates an Amount from a raw value. A nil raw value is zero.
func NewAmount(coin Coin, raw *big.Int) Amount {
	if raw == nil {
		raw = new(big.Int)
	}
	if raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	return Amount{
		raw:  new(big.Int).Set(raw),
		coin: coin,
	}
}

// Raw returns a copy of the raw value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

// Coin returns the coin this amount is denominated in.
func (a Amount) Coin() Coin {
	return a.coin
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

// ToDecimal converts to a human-readable decimal.
func (a Amount) ToDecimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.Raw(), -int32(a.coin.Decimals))
}

// String returns the full precision value with the coin symbol.
func (a Amount) String() string {
	return a.ToDecimal().String() + " " + a.coin.Symbol
}

// StringFixed returns the value truncated to places with the coin symbol.
func (a Amount) StringFixed(places int32) string {
	return a.ToDecimal().Truncate(places).StringFixed(places) + " " + a.coin.Symbol
}
