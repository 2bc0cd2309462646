package counter

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
)

var counterAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeReader answers eth_call with a fixed payload.
type fakeReader struct {
	result []byte
	err    error

	gotTo   common.Address
	gotData []byte
}

func (f *fakeReader) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1337), nil }

func (f *fakeReader) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeReader) Call(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	f.gotTo = to
	f.gotData = data
	return f.result, f.err
}

func (f *fakeReader) Receipt(context.Context, common.Hash) (blockchainDomain.ReceiptStatus, error) {
	return blockchainDomain.ReceiptPending, nil
}

func TestCount(t *testing.T) {
	reader := &fakeReader{}
	c, err := New(counterAddr, reader)
	if err != nil {
		t.Fatal(err)
	}

	packed, err := c.abi.Methods[methodCount].Outputs.Pack(big.NewInt(7))
	if err != nil {
		t.Fatal(err)
	}
	reader.result = packed

	got, err := c.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if got.Int64() != 7 {
		t.Errorf("expected 7, got %s", got)
	}
	if reader.gotTo != counterAddr {
		t.Errorf("called %s, want %s", reader.gotTo.Hex(), counterAddr.Hex())
	}
	if !bytes.Equal(reader.gotData, c.abi.Methods[methodCount].ID) {
		t.Errorf("unexpected call data %x", reader.gotData)
	}
}

func TestCount_Errors(t *testing.T) {
	tests := []struct {
		name     string
		result   []byte
		err      error
		wantCode apperror.Code
	}{
		{name: "rpc_failure", err: errors.New("connection refused"), wantCode: apperror.CodeCounterReadFailed},
		{name: "empty_response", result: []byte{}, wantCode: apperror.CodeInvalidCounterResponse},
		{name: "short_response", result: []byte{0x01, 0x02}, wantCode: apperror.CodeInvalidCounterResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(counterAddr, &fakeReader{result: tt.result, err: tt.err})
			if err != nil {
				t.Fatal(err)
			}

			_, err = c.Count(context.Background())
			if apperror.GetCode(err) != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestIncrementCall(t *testing.T) {
	c, err := New(counterAddr, &fakeReader{})
	if err != nil {
		t.Fatal(err)
	}

	call := c.IncrementCall()
	if call.To != counterAddr {
		t.Errorf("unexpected target %s", call.To.Hex())
	}
	if got := hexutil.Encode(call.Data); got != "0xd09de08a" {
		t.Errorf("unexpected increment selector %s", got)
	}
	if call.Value != nil && call.Value.Sign() != 0 {
		t.Error("increment must not carry value")
	}

	// callers may not mutate the cached encoding
	call.Data[0] = 0
	if c.IncrementCall().Data[0] != 0xd0 {
		t.Error("IncrementCall returned shared call data")
	}
}
