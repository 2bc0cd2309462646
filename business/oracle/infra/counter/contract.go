// Package counter implements the CounterContract port over the chain read provider.
package counter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	blockchainApp "github.com/fd1az/crystal-ball/business/blockchain/app"
	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/business/oracle/app"
	"github.com/fd1az/crystal-ball/internal/apperror"
)

// Ensure Contract implements CounterContract.
var _ app.CounterContract = (*Contract)(nil)

// Contract reads and increments the on-chain prophecy counter.
type Contract struct {
	address common.Address
	abi     abi.ABI
	reader  blockchainApp.ChainReader

	incrementData []byte
}

// New binds the counter at address. Reads go through reader.
func New(address common.Address, reader blockchainApp.ChainReader) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(CounterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse counter ABI: %w", err)
	}

	data, err := parsed.Pack(methodIncrement)
	if err != nil {
		return nil, fmt.Errorf("failed to encode increment: %w", err)
	}

	return &Contract{
		address:       address,
		abi:           parsed,
		reader:        reader,
		incrementData: data,
	}, nil
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Count calls get_current_count().
func (c *Contract) Count(ctx context.Context) (*big.Int, error) {
	callData, err := c.abi.Pack(methodCount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := c.reader.Call(ctx, c.address, callData)
	if err != nil {
		return nil, apperror.New(apperror.CodeCounterReadFailed,
			apperror.WithCause(err),
			apperror.WithContext(c.address.Hex()))
	}

	outputs, err := c.abi.Unpack(methodCount, result)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidCounterResponse,
			apperror.WithCause(err))
	}
	if len(outputs) != 1 {
		return nil, apperror.New(apperror.CodeInvalidCounterResponse,
			apperror.WithContext(fmt.Sprintf("unexpected output length: %d", len(outputs))))
	}

	count, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidCounterResponse,
			apperror.WithContext(fmt.Sprintf("unexpected output type %T", outputs[0])))
	}
	return count, nil
}

// IncrementCall builds the increment() call.
func (c *Contract) IncrementCall() blockchainDomain.Call {
	data := make([]byte, len(c.incrementData))
	copy(data, c.incrementData)
	return blockchainDomain.Call{To: c.address, Data: data}
}
