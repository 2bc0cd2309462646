// Package app contains application services and port definitions for the oracle context.
package app

import (
	"context"
	"math/big"

	blockchainApp "github.com/fd1az/crystal-ball/business/blockchain/app"
	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
)

// Presenter renders session snapshots. Render is called with the session lock
// held, so it must not block or call back into the session.
type Presenter interface {
	Render(snap domain.Snapshot)
}

// CounterContract is the on-chain prophecy counter.
type CounterContract interface {
	// Count reads get_current_count().
	Count(ctx context.Context) (*big.Int, error)

	// IncrementCall builds the increment() call.
	IncrementCall() blockchainDomain.Call
}

// Wallet is the part of the connection provider the session needs.
type Wallet interface {
	Account() (*blockchainDomain.Account, bool)
	Signer() (blockchainApp.Signer, error)
	RefreshBalance(ctx context.Context) error
	OnAccountChange(fn blockchainApp.AccountListener)
}
