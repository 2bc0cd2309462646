// Package oracle implements the oracle view: question, reveal, increment and
// counter refresh.
package oracle

import (
	"context"

	"github.com/fd1az/crystal-ball/business/blockchain/app"
	blockchainDI "github.com/fd1az/crystal-ball/business/blockchain/di"
	oracleApp "github.com/fd1az/crystal-ball/business/oracle/app"
	oracleDI "github.com/fd1az/crystal-ball/business/oracle/di"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
	"github.com/fd1az/crystal-ball/business/oracle/infra"
	"github.com/fd1az/crystal-ball/business/oracle/infra/counter"
	"github.com/fd1az/crystal-ball/internal/config"
	"github.com/fd1az/crystal-ball/internal/di"
	"github.com/fd1az/crystal-ball/internal/logger"
	"github.com/fd1az/crystal-ball/internal/monolith"
	"github.com/fd1az/crystal-ball/pkg/ui"
)

// Module implements the oracle bounded context. It depends on the blockchain
// module and must be registered after it.
type Module struct {
	// Presenter overrides the presenter picked from config.
	Presenter oracleApp.Presenter
}

// RegisterServices registers all oracle services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Counter (private - reads go through the blockchain reader)
	di.RegisterToken(c, oracleDI.Counter, func(sr di.ServiceRegistry) oracleApp.CounterContract {
		cfg := sr.Get("config").(*config.Config)
		svc := blockchainDI.GetConnectionService(sr)

		contract, err := counter.New(cfg.Contract.AddressHex(), svc.Reader())
		if err != nil {
			panic("failed to create counter contract: " + err.Error())
		}
		return contract
	})

	// Register Presenter (private - TUI or console)
	di.RegisterToken(c, oracleDI.Presenter, func(sr di.ServiceRegistry) oracleApp.Presenter {
		if m.Presenter != nil {
			return m.Presenter
		}

		cfg := sr.Get("config").(*config.Config)
		if cfg.App.TUIMode {
			return infra.NewTUIPresenter(func(snap domain.Snapshot) {
				ui.Send(ui.SnapshotMsg{Snapshot: snap})
			})
		}
		return infra.NewConsolePresenter()
	})

	// Register Session (public - driven by the UI)
	di.RegisterToken(c, oracleDI.Session, func(sr di.ServiceRegistry) *oracleApp.Session {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		s, err := oracleApp.NewSession(oracleApp.SessionConfig{
			AnimationDelay: cfg.Oracle.AnimationDelay,
			RefreshDelay:   cfg.Oracle.RefreshDelay,
		},
			blockchainDI.GetConnectionService(sr),
			oracleDI.GetCounter(sr),
			blockchainDI.GetReceiptWatcher(sr),
			oracleDI.GetPresenter(sr),
			log,
		)
		if err != nil {
			panic("failed to create session: " + err.Error())
		}
		return s
	})

	return nil
}

// Startup publishes the first view and reads the counter.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	session := oracleDI.GetSession(mono.Services())
	session.Start(ctx)

	log.Info(ctx, "oracle module started",
		"contract", cfg.Contract.AddressHex().Hex(),
		"animation_delay", cfg.Oracle.AnimationDelay,
		"refresh_delay", cfg.Oracle.RefreshDelay)
	return nil
}

// Shutdown stops the session and then the presenter.
func Shutdown(sr di.ServiceRegistry) {
	oracleDI.GetSession(sr).Close()

	if closer, ok := oracleDI.GetPresenter(sr).(interface{ Close() }); ok {
		closer.Close()
	}
}

var _ oracleApp.Wallet = (*app.ConnectionService)(nil)
