// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/crystal-ball/business/blockchain/app"
	"github.com/fd1az/crystal-ball/business/blockchain/infra/ethereum"
	"github.com/fd1az/crystal-ball/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ConnectionService = di.NewToken[*app.ConnectionService]("blockchain.ConnectionService")
	ReceiptWatcher    = di.NewToken[app.ReceiptWatcher]("blockchain.ReceiptWatcher")
)

// Private dependency tokens - internal to blockchain module
var (
	Reader    = di.NewToken[*ethereum.Reader]("blockchain:reader")
	FeeOracle = di.NewToken[*ethereum.FeeOracle]("blockchain:feeOracle")
)

// Helper functions for type-safe access
func GetConnectionService(c di.ServiceRegistry) *app.ConnectionService {
	return di.GetToken(c, ConnectionService)
}

func GetReceiptWatcher(c di.ServiceRegistry) app.ReceiptWatcher {
	return di.GetToken(c, ReceiptWatcher)
}

func GetReader(c di.ServiceRegistry) *ethereum.Reader {
	return di.GetToken(c, Reader)
}

func GetFeeOracle(c di.ServiceRegistry) *ethereum.FeeOracle {
	return di.GetToken(c, FeeOracle)
}
