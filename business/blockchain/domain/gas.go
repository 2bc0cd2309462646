package domain

import (
	"math/big"
)

// FeeQuote holds EIP-1559 pricing and the gas limit for one call.
type FeeQuote struct {
	GasTipCap *big.Int
	GasFeeCap *big.Int
	GasLimit  uint64
}

// NewFeeQuote derives the fee cap as 2*baseFee + tip.
func NewFeeQuote(baseFee, tip *big.Int, gasLimit uint64) *FeeQuote {
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	return &FeeQuote{
		GasTipCap: tip,
		GasFeeCap: feeCap,
		GasLimit:  gasLimit,
	}
}

// MaxCost is the upper bound the transaction can spend on gas.
func (q *FeeQuote) MaxCost() *big.Int {
	return new(big.Int).Mul(q.GasFeeCap, new(big.Int).SetUint64(q.GasLimit))
}

// BufferGas adds percent to an estimated gas limit.
func BufferGas(estimate uint64, percent uint64) uint64 {
	return estimate + estimate*percent/100
}
