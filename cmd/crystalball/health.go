package main

import (
	"context"
	"math/big"

	"github.com/sony/gobreaker/v2"

	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/health"
)

// rpcProbe is the part of the chain reader the rpc check looks at.
type rpcProbe interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BreakerState() gobreaker.State
}

// accountSource reports the connected account.
type accountSource interface {
	Account() (*blockchainDomain.Account, bool)
}

// rpcCheck reports unhealthy without calling the node while the breaker is
// open.
func rpcCheck(r rpcProbe) health.CheckFunc {
	return func(ctx context.Context) (bool, string) {
		if r.BreakerState() == gobreaker.StateOpen {
			return false, "circuit open"
		}
		id, err := r.ChainID(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, "chain " + id.String()
	}
}

func walletCheck(src accountSource) health.CheckFunc {
	return func(context.Context) (bool, string) {
		if acc, ok := src.Account(); ok {
			return true, acc.ShortAddress()
		}
		return false, "not connected"
	}
}
