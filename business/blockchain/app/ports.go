// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/crystal-ball/business/blockchain/domain"
)

// ChainReader is the read-only provider for the configured network.
type ChainReader interface {
	// ChainID returns the network id reported by the node.
	ChainID(ctx context.Context) (*big.Int, error)

	// BalanceAt returns the latest balance of addr in wei.
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)

	// Call executes a read-only contract call against the latest block.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// Receipt reports the receipt status of hash. Unknown receipts are pending.
	Receipt(ctx context.Context, hash common.Hash) (domain.ReceiptStatus, error)
}

// Signer sends transactions on behalf of a connected account.
type Signer interface {
	Address() common.Address

	// SendTransaction signs and submits calls in order and returns the handle
	// of the last one.
	SendTransaction(ctx context.Context, calls []domain.Call) (domain.TxHandle, error)
}

// Connector unlocks a Signer.
type Connector interface {
	Info() domain.ConnectorInfo
	Connect(ctx context.Context) (Signer, error)
}

// ReceiptWatcher blocks until a transaction receipt resolves.
type ReceiptWatcher interface {
	Watch(ctx context.Context, hash common.Hash) (domain.ReceiptStatus, error)
}
