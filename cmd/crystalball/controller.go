package main

import (
	"context"

	blockchainApp "github.com/fd1az/crystal-ball/business/blockchain/app"
	blockchainDI "github.com/fd1az/crystal-ball/business/blockchain/di"
	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	oracleApp "github.com/fd1az/crystal-ball/business/oracle/app"
	oracleDI "github.com/fd1az/crystal-ball/business/oracle/di"
	"github.com/fd1az/crystal-ball/internal/di"
	"github.com/fd1az/crystal-ball/pkg/ui"
)

var _ ui.Controller = (*controller)(nil)

// controller joins the wallet and the oracle session for the front-ends.
type controller struct {
	*oracleApp.Session
	wallet *blockchainApp.ConnectionService
}

func newController(sr di.ServiceRegistry) *controller {
	return &controller{
		Session: oracleDI.GetSession(sr),
		wallet:  blockchainDI.GetConnectionService(sr),
	}
}

func (c *controller) Network() string {
	return c.wallet.Chain().Name
}

func (c *controller) Connectors() []blockchainDomain.ConnectorInfo {
	return c.wallet.Connectors()
}

func (c *controller) Connect(ctx context.Context, connectorID string) error {
	_, err := c.wallet.Connect(ctx, connectorID)
	return err
}

func (c *controller) Disconnect(ctx context.Context) {
	c.wallet.Disconnect(ctx)
}
