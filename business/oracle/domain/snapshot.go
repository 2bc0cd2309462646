package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
)

// Phase is the visible state of the crystal ball.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseAnimating Phase = "animating"
	PhaseAnswered  Phase = "answered"
)

// Count is the on-chain prophecy counter. The zero value is unknown.
type Count struct {
	value *big.Int
}

// NewCount wraps a counter value read from the contract.
func NewCount(v *big.Int) Count {
	if v == nil {
		return Count{}
	}
	return Count{value: new(big.Int).Set(v)}
}

// Known reports whether the counter has been read at least once.
func (c Count) Known() bool {
	return c.value != nil
}

// Value returns a copy of the counter, nil when unknown.
func (c Count) Value() *big.Int {
	if c.value == nil {
		return nil
	}
	return new(big.Int).Set(c.value)
}

func (c Count) String() string {
	if c.value == nil {
		return "Loading..."
	}
	return c.value.String()
}

// PendingTx tracks the latest increment transaction until its receipt
// resolves. Hash is zero while the send is still in flight.
type PendingTx struct {
	Hash   common.Hash
	Status blockchainDomain.ReceiptStatus
}

// Submitted reports whether the node accepted the transaction.
func (p PendingTx) Submitted() bool {
	return p.Hash != (common.Hash{})
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	Question  string
	Answer    string
	Animating bool
	Pending   *PendingTx
	Confirmed uint64 // increments with a successful receipt
	Count     Count
	Account   *blockchainDomain.Account
	LastError string
}

// Phase derives the crystal ball state.
func (s Snapshot) Phase() Phase {
	switch {
	case s.Animating:
		return PhaseAnimating
	case s.Answer != "":
		return PhaseAnswered
	default:
		return PhaseIdle
	}
}

// Connected reports whether a wallet account is present.
func (s Snapshot) Connected() bool {
	return s.Account != nil
}

// Sending reports whether the wallet has not yet returned a hash for the
// latest increment.
func (s Snapshot) Sending() bool {
	return s.Pending != nil && !s.Pending.Submitted()
}

// Busy reports whether an ask is in progress. A submitted transaction waiting
// for its receipt does not block the next ask.
func (s Snapshot) Busy() bool {
	return s.Animating || s.Sending()
}

// CanAsk mirrors the submission guard.
func (s Snapshot) CanAsk() bool {
	return s.Connected() && !s.Busy() && strings.TrimSpace(s.Question) != ""
}
