package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/crystal-ball/business/blockchain/app"
	"github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/logger"
)

// signerMetrics holds OTEL metric instruments.
type signerMetrics struct {
	sent     metric.Int64Counter
	rejected metric.Int64Counter
}

// Signer signs EIP-1559 transactions with a local key and submits them.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int

	rpc    *Reader
	fees   *FeeOracle
	logger logger.LoggerInterface

	// serializes nonce allocation
	mu sync.Mutex

	tracer  trace.Tracer
	metrics *signerMetrics
}

var _ app.Signer = (*Signer)(nil)

// NewSigner creates a signer for key on chainID.
func NewSigner(key *ecdsa.PrivateKey, chainID uint64, r *Reader, fees *FeeOracle, log logger.LoggerInterface) (*Signer, error) {
	s := &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).SetUint64(chainID),
		rpc:     r,
		fees:    fees,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *Signer) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &signerMetrics{}

	s.metrics.sent, err = meter.Int64Counter(
		"eth_transactions_sent_total",
		metric.WithDescription("Transactions accepted by the node"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejected, err = meter.Int64Counter(
		"eth_transactions_rejected_total",
		metric.WithDescription("Transactions that could not be priced, signed or submitted"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Address returns the signing account.
func (s *Signer) Address() common.Address {
	return s.address
}

// SendTransaction signs and submits calls with consecutive nonces.
func (s *Signer) SendTransaction(ctx context.Context, calls []domain.Call) (domain.TxHandle, error) {
	ctx, span := s.tracer.Start(ctx, "signer.send",
		trace.WithAttributes(
			attribute.String("from", s.address.Hex()),
			attribute.Int("calls", len(calls)),
		),
	)
	defer span.End()

	if len(calls) == 0 {
		return domain.TxHandle{}, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("no calls"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := doRPC(ctx, s.rpc, "eth_getTransactionCount", func(ctx context.Context) (uint64, error) {
		return s.rpc.backend.PendingNonceAt(ctx, s.address)
	})
	if err != nil {
		s.metrics.rejected.Add(ctx, 1)
		span.RecordError(err)
		return domain.TxHandle{}, apperror.New(apperror.CodeTransactionRejected,
			apperror.WithCause(err),
			apperror.WithContext("pending nonce"))
	}

	txSigner := types.LatestSignerForChainID(s.chainID)
	var handle domain.TxHandle

	for i, call := range calls {
		signed, err := s.sign(ctx, txSigner, nonce+uint64(i), call)
		if err != nil {
			s.metrics.rejected.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, "sign failed")
			return domain.TxHandle{}, err
		}

		_, err = doRPC(ctx, s.rpc, "eth_sendRawTransaction", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.rpc.backend.SendTransaction(ctx, signed)
		})
		if err != nil {
			s.metrics.rejected.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
			return domain.TxHandle{}, apperror.New(apperror.CodeTransactionRejected,
				apperror.WithCause(err),
				apperror.WithContext(call.To.Hex()))
		}

		s.metrics.sent.Add(ctx, 1)
		handle = domain.TxHandle{Hash: signed.Hash()}

		s.logger.Info(ctx, "transaction sent",
			"hash", signed.Hash().Hex(),
			"nonce", signed.Nonce(),
			"to", call.To.Hex())
	}

	span.SetAttributes(attribute.String("tx_hash", handle.Hash.Hex()))
	span.SetStatus(codes.Ok, "sent")

	return handle, nil
}

func (s *Signer) sign(ctx context.Context, txSigner types.Signer, nonce uint64, call domain.Call) (*types.Transaction, error) {
	quote, err := s.fees.Quote(ctx, s.address, call)
	if err != nil {
		return nil, err
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	to := call.To

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: quote.GasTipCap,
		GasFeeCap: quote.GasFeeCap,
		Gas:       quote.GasLimit,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	})

	signed, err := types.SignTx(tx, txSigner, s.key)
	if err != nil {
		return nil, apperror.New(apperror.CodeTransactionRejected,
			apperror.WithCause(err),
			apperror.WithContext("sign"))
	}
	return signed, nil
}
