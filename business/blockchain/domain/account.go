// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account is the connected wallet account.
type Account struct {
	Address   common.Address
	Connector string
	Balance   *big.Int // nil when the balance read failed
}

// ShortAddress renders the address as 0x1234...abcd.
func (a Account) ShortAddress() string {
	return ShortenAddress(a.Address.Hex())
}

// ShortenAddress keeps the first 6 and last 4 characters of an address.
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// ChainConfig describes the single network the app talks to.
type ChainConfig struct {
	Name    string
	ChainID uint64
	RPCURL  string
}

// ConnectionState represents the state of the wallet connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)
