// Package ui provides the Bubble Tea TUI for Crystal Ball Prophecies.
package ui

import (
	"context"

	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
)

// Controller is what the TUI drives once modules are up.
type Controller interface {
	Network() string
	Connectors() []blockchainDomain.ConnectorInfo
	Connect(ctx context.Context, connectorID string) error
	Disconnect(ctx context.Context)

	SetQuestion(q string)
	Ask(ctx context.Context) error
	Refresh(ctx context.Context) error
	Snapshot() domain.Snapshot
}

// Message types for TUI updates

// SnapshotMsg carries the latest session snapshot.
type SnapshotMsg struct {
	Snapshot domain.Snapshot
}

// ReadyMsg is sent once modules started and the controller can be used.
type ReadyMsg struct {
	Controller Controller
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step   string // "config", "rpc", "wallet", "oracle"
	Status string // "connecting", "connected", "done", "failed"
}

// StartupFailedMsg is sent when modules could not start.
type StartupFailedMsg struct {
	Err error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// connectResultMsg reports a finished connect attempt.
type connectResultMsg struct {
	err error
}

// actionErrorMsg reports a failed refresh or ask.
type actionErrorMsg struct {
	err error
}
