// Package blockchain implements the connection provider: network, wallet
// connectors and the chain read provider.
package blockchain

import (
	"context"
	"crypto/ecdsa"

	"github.com/fd1az/crystal-ball/business/blockchain/app"
	blockchainDI "github.com/fd1az/crystal-ball/business/blockchain/di"
	"github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/business/blockchain/infra/ethereum"
	"github.com/fd1az/crystal-ball/internal/config"
	"github.com/fd1az/crystal-ball/internal/di"
	"github.com/fd1az/crystal-ball/internal/logger"
	"github.com/fd1az/crystal-ball/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Reader (private - every RPC goes through it)
	di.RegisterToken(c, blockchainDI.Reader, func(sr di.ServiceRegistry) *ethereum.Reader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		backend := sr.Get("ethClient").(ethereum.Backend)

		r, err := ethereum.NewReader(backend, ethereum.ReaderConfig{
			RequestTimeout:     cfg.Chain.RequestTimeout,
			RateLimitPerMinute: cfg.Chain.RateLimitPerMinute,
		}, log)
		if err != nil {
			panic("failed to create reader: " + err.Error())
		}
		return r
	})

	// Register FeeOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.FeeOracle, func(sr di.ServiceRegistry) *ethereum.FeeOracle {
		fees, err := ethereum.NewFeeOracle(ethereum.DefaultFeeConfig(), blockchainDI.GetReader(sr))
		if err != nil {
			panic("failed to create fee oracle: " + err.Error())
		}
		return fees
	})

	// Register ReceiptWatcher (public - used by the oracle)
	di.RegisterToken(c, blockchainDI.ReceiptWatcher, func(sr di.ServiceRegistry) app.ReceiptWatcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		w, err := ethereum.NewReceiptWatcher(ethereum.WatcherConfig{
			PollInterval: cfg.Oracle.ReceiptPollInterval,
			Timeout:      cfg.Oracle.ReceiptTimeout,
		}, blockchainDI.GetReader(sr), log)
		if err != nil {
			panic("failed to create receipt watcher: " + err.Error())
		}
		return w
	})

	// Register ConnectionService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.ConnectionService, func(sr di.ServiceRegistry) *app.ConnectionService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		reader := blockchainDI.GetReader(sr)
		fees := blockchainDI.GetFeeOracle(sr)

		newSigner := func(key *ecdsa.PrivateKey) (app.Signer, error) {
			s, err := ethereum.NewSigner(key, cfg.Chain.ChainID, reader, fees, log)
			if err != nil {
				return nil, err
			}
			return s, nil
		}

		return app.NewConnectionService(app.ConnectionConfig{
			Chain: domain.ChainConfig{
				Name:    cfg.Chain.Name,
				ChainID: cfg.Chain.ChainID,
				RPCURL:  cfg.Chain.RPCURL,
			},
			DefaultConnector: cfg.Wallet.DefaultConnector,
			AutoConnect:      cfg.Wallet.AutoConnect,
		}, reader, ethereum.ConnectorsFromConfig(cfg.Wallet, newSigner), log)
	})

	return nil
}

// Startup auto-connects the wallet. A failed auto-connect is not fatal.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := blockchainDI.GetConnectionService(mono.Services())
	if err := svc.AutoConnect(ctx); err != nil {
		log.Error(ctx, "auto-connect failed", "error", err)
	}

	log.Info(ctx, "blockchain module started",
		"chain", svc.Chain().Name,
		"state", svc.State())
	return nil
}
