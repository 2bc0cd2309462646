package app

import (
	"context"
	"sync"

	"github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/logger"
)

// AccountListener is notified with the new account, or nil on disconnect.
type AccountListener func(acc *domain.Account)

// ConnectionConfig configures the ConnectionService.
type ConnectionConfig struct {
	Chain            domain.ChainConfig
	DefaultConnector string
	AutoConnect      bool
}

// ConnectionService owns the wallet connection for the configured chain.
type ConnectionService struct {
	cfg        ConnectionConfig
	reader     ChainReader
	connectors []Connector
	logger     logger.LoggerInterface

	mu        sync.RWMutex
	state     domain.ConnectionState
	account   *domain.Account
	signer    Signer
	listeners []AccountListener
}

// NewConnectionService creates a new ConnectionService. Connector order is the
// order shown to the user.
func NewConnectionService(cfg ConnectionConfig, reader ChainReader, connectors []Connector, log logger.LoggerInterface) *ConnectionService {
	return &ConnectionService{
		cfg:        cfg,
		reader:     reader,
		connectors: connectors,
		logger:     log,
		state:      domain.StateDisconnected,
	}
}

// Chain returns the configured network.
func (s *ConnectionService) Chain() domain.ChainConfig {
	return s.cfg.Chain
}

// Connectors lists the available wallet connectors.
func (s *ConnectionService) Connectors() []domain.ConnectorInfo {
	infos := make([]domain.ConnectorInfo, 0, len(s.connectors))
	for _, c := range s.connectors {
		infos = append(infos, c.Info())
	}
	return infos
}

// Reader returns the chain read provider.
func (s *ConnectionService) Reader() ChainReader {
	return s.reader
}

// State returns the current connection state.
func (s *ConnectionService) State() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connect unlocks the given connector and makes its account current.
func (s *ConnectionService) Connect(ctx context.Context, connectorID string) (*domain.Account, error) {
	conn := s.findConnector(connectorID)
	if conn == nil {
		return nil, apperror.New(apperror.CodeConnectorNotFound, apperror.WithContext(connectorID))
	}
	if !conn.Info().Ready {
		return nil, apperror.New(apperror.CodeConnectorUnavailable, apperror.WithContext(connectorID))
	}

	s.setState(domain.StateConnecting)

	acc, signer, err := s.connect(ctx, conn)
	if err != nil {
		s.setState(domain.StateDisconnected)
		s.logger.Warn(ctx, "wallet connection failed", "connector", connectorID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.account = acc
	s.signer = signer
	s.state = domain.StateConnected
	s.mu.Unlock()

	s.logger.Info(ctx, "wallet connected",
		"connector", connectorID,
		"address", acc.Address.Hex())

	s.notify(acc)

	return cloneAccount(acc), nil
}

func (s *ConnectionService) connect(ctx context.Context, conn Connector) (*domain.Account, Signer, error) {
	id := conn.Info().ID

	signer, err := conn.Connect(ctx)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeWalletConnectionFailed, id)
	}

	chainID, err := s.reader.ChainID(ctx)
	if err != nil {
		return nil, nil, apperror.New(apperror.CodeWalletConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("read chain id"))
	}
	if chainID.Uint64() != s.cfg.Chain.ChainID {
		return nil, nil, apperror.New(apperror.CodeChainMismatch,
			apperror.WithMessage("Node is on chain "+chainID.String()),
			apperror.WithContext(s.cfg.Chain.Name))
	}

	acc := &domain.Account{
		Address:   signer.Address(),
		Connector: id,
	}

	balance, err := s.reader.BalanceAt(ctx, acc.Address)
	if err != nil {
		s.logger.Warn(ctx, "balance read failed", "address", acc.Address.Hex(), "error", err)
	} else {
		acc.Balance = balance
	}

	return acc, signer, nil
}

// AutoConnect connects the default connector, or the first ready one, when
// auto-connect is enabled. Failures leave the account absent.
func (s *ConnectionService) AutoConnect(ctx context.Context) error {
	if !s.cfg.AutoConnect {
		return nil
	}

	id := s.autoConnector()
	if id == "" {
		s.logger.Info(ctx, "auto-connect skipped, no connector configured")
		return nil
	}

	_, err := s.Connect(ctx, id)
	return err
}

func (s *ConnectionService) autoConnector() string {
	if c := s.findConnector(s.cfg.DefaultConnector); c != nil && c.Info().Ready {
		return s.cfg.DefaultConnector
	}
	for _, c := range s.connectors {
		if info := c.Info(); info.Ready {
			return info.ID
		}
	}
	return ""
}

// Disconnect clears the current account.
func (s *ConnectionService) Disconnect(ctx context.Context) {
	s.mu.Lock()
	had := s.account != nil
	s.account = nil
	s.signer = nil
	s.state = domain.StateDisconnected
	s.mu.Unlock()

	if had {
		s.logger.Info(ctx, "wallet disconnected")
		s.notify(nil)
	}
}

// Account returns a copy of the current account.
func (s *ConnectionService) Account() (*domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil, false
	}
	return cloneAccount(s.account), true
}

// Signer returns the connected account's signer.
func (s *ConnectionService) Signer() (Signer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.signer == nil {
		return nil, apperror.New(apperror.CodeWalletNotConnected)
	}
	return s.signer, nil
}

// RefreshBalance re-reads the balance of the connected account.
func (s *ConnectionService) RefreshBalance(ctx context.Context) error {
	s.mu.RLock()
	acc := s.account
	s.mu.RUnlock()
	if acc == nil {
		return apperror.New(apperror.CodeWalletNotConnected)
	}

	balance, err := s.reader.BalanceAt(ctx, acc.Address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.account == nil || s.account.Address != acc.Address {
		s.mu.Unlock()
		return nil
	}
	s.account.Balance = balance
	updated := cloneAccount(s.account)
	s.mu.Unlock()

	s.notify(updated)
	return nil
}

// OnAccountChange registers fn for account changes.
func (s *ConnectionService) OnAccountChange(fn AccountListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *ConnectionService) notify(acc *domain.Account) {
	s.mu.RLock()
	listeners := make([]AccountListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(cloneAccount(acc))
	}
}

func (s *ConnectionService) findConnector(id string) Connector {
	for _, c := range s.connectors {
		if c.Info().ID == id {
			return c
		}
	}
	return nil
}

func (s *ConnectionService) setState(state domain.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func cloneAccount(acc *domain.Account) *domain.Account {
	if acc == nil {
		return nil
	}
	c := *acc
	return &c
}
