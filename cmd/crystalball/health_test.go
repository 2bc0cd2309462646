package main

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"

	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
)

type fakeProbe struct {
	state gobreaker.State
	err   error
	calls int
}

func (f *fakeProbe) ChainID(context.Context) (*big.Int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return big.NewInt(11155111), nil
}

func (f *fakeProbe) BreakerState() gobreaker.State { return f.state }

func TestRPCCheck(t *testing.T) {
	tests := []struct {
		name      string
		probe     *fakeProbe
		wantOK    bool
		wantMsg   string
		wantCalls int
	}{
		{name: "healthy", probe: &fakeProbe{state: gobreaker.StateClosed}, wantOK: true, wantMsg: "chain 11155111", wantCalls: 1},
		{name: "half_open_probes", probe: &fakeProbe{state: gobreaker.StateHalfOpen}, wantOK: true, wantMsg: "chain 11155111", wantCalls: 1},
		{name: "rpc_error", probe: &fakeProbe{err: errors.New("dial tcp: refused")}, wantMsg: "dial tcp: refused", wantCalls: 1},
		{name: "circuit_open", probe: &fakeProbe{state: gobreaker.StateOpen}, wantMsg: "circuit open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := rpcCheck(tt.probe)(context.Background())
			if ok != tt.wantOK || msg != tt.wantMsg {
				t.Errorf("rpcCheck() = (%v, %q), want (%v, %q)", ok, msg, tt.wantOK, tt.wantMsg)
			}
			if tt.probe.calls != tt.wantCalls {
				t.Errorf("expected %d ChainID calls, got %d", tt.wantCalls, tt.probe.calls)
			}
		})
	}
}

type fakeAccounts struct{ acc *blockchainDomain.Account }

func (f fakeAccounts) Account() (*blockchainDomain.Account, bool) { return f.acc, f.acc != nil }

func TestWalletCheck(t *testing.T) {
	if ok, msg := walletCheck(fakeAccounts{})(context.Background()); ok || msg != "not connected" {
		t.Errorf("unexpected (%v, %q) without a wallet", ok, msg)
	}

	acc := &blockchainDomain.Account{Address: common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")}
	if ok, msg := walletCheck(fakeAccounts{acc: acc})(context.Background()); !ok || msg != acc.ShortAddress() {
		t.Errorf("unexpected (%v, %q) with a wallet", ok, msg)
	}
}
