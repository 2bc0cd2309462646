package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/circuitbreaker"
	"github.com/fd1az/crystal-ball/internal/logger"
	"github.com/fd1az/crystal-ball/internal/ratelimit"
)

// ReaderConfig holds configuration for the RPC reader.
type ReaderConfig struct {
	RequestTimeout     time.Duration // per-call deadline, 0 = none
	RateLimitPerMinute int           // 0 = unlimited
}

// readerMetrics holds OTEL metric instruments.
type readerMetrics struct {
	rpcCalls   metric.Int64Counter
	rpcErrors  metric.Int64Counter
	rpcLatency metric.Float64Histogram
}

// Reader is the chain read provider. Every RPC issued by this package goes
// through its rate limiter and circuit breaker.
type Reader struct {
	backend Backend
	config  ReaderConfig
	logger  logger.LoggerInterface

	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[any]

	// Observability
	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader creates a new Reader over backend.
func NewReader(backend Backend, cfg ReaderConfig, log logger.LoggerInterface) (*Reader, error) {
	r := &Reader{
		backend: backend,
		config:  cfg,
		logger:  log,
		limiter: ratelimit.New(cfg.RateLimitPerMinute),
		tracer:  otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	r.initCircuitBreaker()

	return r, nil
}

// initMetrics initializes OTEL metric instruments.
func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.rpcCalls, err = meter.Int64Counter(
		"eth_rpc_calls_total",
		metric.WithDescription("Total JSON-RPC calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.rpcErrors, err = meter.Int64Counter(
		"eth_rpc_errors_total",
		metric.WithDescription("Total failed JSON-RPC calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	r.metrics.rpcLatency, err = meter.Float64Histogram(
		"eth_rpc_latency_ms",
		metric.WithDescription("JSON-RPC call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// initCircuitBreaker initializes the circuit breaker.
func (r *Reader) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("eth-rpc")
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		r.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	r.cb = circuitbreaker.New[any](cfg)
}

// doRPC runs fn with rate limiting, a per-call deadline, the circuit breaker,
// a span and metrics.
func doRPC[T any](ctx context.Context, r *Reader, method string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ctx, span := r.tracer.Start(ctx, "eth."+method)
	defer span.End()

	if err := r.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limited")
		return zero, err
	}

	if r.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	v, err := r.cb.Execute(func() (any, error) {
		return fn(ctx)
	})

	attrs := metric.WithAttributes(attribute.String("method", method))
	r.metrics.rpcCalls.Add(ctx, 1, attrs)
	r.metrics.rpcLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil {
		r.metrics.rpcErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return zero, err
	}

	span.SetStatus(codes.Ok, "ok")
	out, _ := v.(T)
	return out, nil
}

// ChainID returns the network id reported by the node.
func (r *Reader) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := doRPC(ctx, r, "eth_chainId", r.backend.ChainID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeEthereumRPCError, "eth_chainId")
	}
	return id, nil
}

// BalanceAt returns the latest balance of addr.
func (r *Reader) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := doRPC(ctx, r, "eth_getBalance", func(ctx context.Context) (*big.Int, error) {
		return r.backend.BalanceAt(ctx, addr, nil)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeEthereumRPCError, "eth_getBalance")
	}
	return bal, nil
}

// Call executes a read-only call against the latest block.
func (r *Reader) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := doRPC(ctx, r, "eth_call", func(ctx context.Context) ([]byte, error) {
		return r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeContractCallFailed, to.Hex())
	}
	return out, nil
}

// Receipt reports the receipt status of hash.
func (r *Reader) Receipt(ctx context.Context, hash common.Hash) (domain.ReceiptStatus, error) {
	receipt, err := doRPC(ctx, r, "eth_getTransactionReceipt", func(ctx context.Context) (*types.Receipt, error) {
		rc, err := r.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			// not mined yet; must not count against the breaker
			return nil, nil
		}
		return rc, err
	})
	if err != nil {
		return domain.ReceiptPending, apperror.Wrap(err, apperror.CodeEthereumRPCError, "eth_getTransactionReceipt")
	}

	if receipt == nil {
		return domain.ReceiptPending, nil
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return domain.ReceiptSuccess, nil
	}
	return domain.ReceiptFailure, nil
}

// BreakerState exposes the circuit breaker state for health checks.
func (r *Reader) BreakerState() gobreaker.State {
	return r.cb.State()
}
