package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a single contract invocation.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// TxHandle identifies a submitted transaction.
type TxHandle struct {
	Hash common.Hash
}

// ReceiptStatus is the resolution state of a transaction receipt.
type ReceiptStatus int

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptSuccess
	ReceiptFailure
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptSuccess:
		return "success"
	case ReceiptFailure:
		return "failure"
	default:
		return "pending"
	}
}
