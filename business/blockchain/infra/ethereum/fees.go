package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
)

// FeeConfig holds configuration for the fee oracle.
type FeeConfig struct {
	MaxFeeCap        *big.Int // safety cap on maxFeePerGas
	GasBufferPercent uint64   // headroom added to gas estimates
}

// DefaultFeeConfig returns sensible defaults.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		MaxFeeCap:        new(big.Int).Mul(big.NewInt(500), big.NewInt(params.GWei)), // 500 gwei
		GasBufferPercent: 10,
	}
}

// feeMetrics holds OTEL metric instruments.
type feeMetrics struct {
	quotes         metric.Int64Counter
	tipCapGwei     metric.Float64Gauge
	estimateFailed metric.Int64Counter
}

// FeeOracle prices EIP-1559 transactions.
type FeeOracle struct {
	config FeeConfig
	rpc    *Reader

	tracer  trace.Tracer
	metrics *feeMetrics
}

// NewFeeOracle creates a new fee oracle on top of the reader's RPC path.
func NewFeeOracle(cfg FeeConfig, r *Reader) (*FeeOracle, error) {
	f := &FeeOracle{
		config: cfg,
		rpc:    r,
		tracer: otel.Tracer(tracerName),
	}

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return f, nil
}

// initMetrics initializes OTEL metric instruments.
func (f *FeeOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &feeMetrics{}

	f.metrics.quotes, err = meter.Int64Counter(
		"eth_fee_quotes_total",
		metric.WithDescription("Total fee quotes computed"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	f.metrics.tipCapGwei, err = meter.Float64Gauge(
		"eth_tip_cap_gwei",
		metric.WithDescription("Last suggested priority fee in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	f.metrics.estimateFailed, err = meter.Int64Counter(
		"eth_gas_estimate_failures_total",
		metric.WithDescription("Gas estimations that failed"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Quote prices call when sent from from.
func (f *FeeOracle) Quote(ctx context.Context, from common.Address, call domain.Call) (*domain.FeeQuote, error) {
	ctx, span := f.tracer.Start(ctx, "fees.quote",
		trace.WithAttributes(attribute.String("to", call.To.Hex())),
	)
	defer span.End()

	tip, err := doRPC(ctx, f.rpc, "eth_maxPriorityFeePerGas", f.rpc.backend.SuggestGasTipCap)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext("suggest tip cap"))
	}

	head, err := doRPC(ctx, f.rpc, "eth_getBlockByNumber", func(ctx context.Context) (*types.Header, error) {
		return f.rpc.backend.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext("latest header"))
	}

	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}

	gas, err := doRPC(ctx, f.rpc, "eth_estimateGas", func(ctx context.Context) (uint64, error) {
		return f.rpc.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &call.To,
			Data:  call.Data,
			Value: call.Value,
		})
	})
	if err != nil {
		f.metrics.estimateFailed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return nil, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(call.To.Hex()))
	}

	quote := domain.NewFeeQuote(baseFee, tip, domain.BufferGas(gas, f.config.GasBufferPercent))

	if f.config.MaxFeeCap != nil && quote.GasFeeCap.Cmp(f.config.MaxFeeCap) > 0 {
		err := apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithMessage("Gas price above configured cap"),
			apperror.WithContext(quote.GasFeeCap.String()))
		span.RecordError(err)
		return nil, err
	}

	f.metrics.quotes.Add(ctx, 1)
	tipGwei, _ := new(big.Float).Quo(new(big.Float).SetInt(tip), big.NewFloat(params.GWei)).Float64()
	f.metrics.tipCapGwei.Record(ctx, tipGwei)

	span.SetAttributes(
		attribute.Int64("gas_limit", int64(quote.GasLimit)),
		attribute.String("fee_cap", quote.GasFeeCap.String()),
	)
	span.SetStatus(codes.Ok, "quoted")

	return quote, nil
}
