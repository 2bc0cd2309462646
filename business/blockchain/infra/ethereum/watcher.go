package ethereum

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
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

// WatcherConfig holds configuration for the receipt watcher.
type WatcherConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration // 0 = wait until the context ends
}

// DefaultWatcherConfig returns sensible defaults.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval: 2 * time.Second,
		Timeout:      5 * time.Minute,
	}
}

// watcherMetrics holds OTEL metric instruments.
type watcherMetrics struct {
	polls    metric.Int64Counter
	resolved metric.Int64Counter
	waitTime metric.Float64Histogram
}

// ReceiptWatcher polls for a receipt until it resolves.
type ReceiptWatcher struct {
	config WatcherConfig
	reader app.ChainReader
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *watcherMetrics
}

var _ app.ReceiptWatcher = (*ReceiptWatcher)(nil)

// NewReceiptWatcher creates a new ReceiptWatcher.
func NewReceiptWatcher(cfg WatcherConfig, reader app.ChainReader, log logger.LoggerInterface) (*ReceiptWatcher, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultWatcherConfig().PollInterval
	}

	w := &ReceiptWatcher{
		config: cfg,
		reader: reader,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := w.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return w, nil
}

// initMetrics initializes OTEL metric instruments.
func (w *ReceiptWatcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &watcherMetrics{}

	w.metrics.polls, err = meter.Int64Counter(
		"eth_receipt_polls_total",
		metric.WithDescription("Receipt poll attempts"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return err
	}

	w.metrics.resolved, err = meter.Int64Counter(
		"eth_receipts_resolved_total",
		metric.WithDescription("Receipts resolved by status"),
		metric.WithUnit("{receipt}"),
	)
	if err != nil {
		return err
	}

	w.metrics.waitTime, err = meter.Float64Histogram(
		"eth_receipt_wait_ms",
		metric.WithDescription("Time from watch start to receipt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Watch polls until the receipt for hash is mined. Poll errors are logged and
// retried on the next tick.
func (w *ReceiptWatcher) Watch(ctx context.Context, hash common.Hash) (domain.ReceiptStatus, error) {
	ctx, span := w.tracer.Start(ctx, "eth.watch_receipt",
		trace.WithAttributes(attribute.String("tx_hash", hash.Hex())),
	)
	defer span.End()

	parent := ctx
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		w.metrics.polls.Add(ctx, 1)

		status, err := w.reader.Receipt(ctx, hash)
		switch {
		case err != nil:
			w.logger.Warn(ctx, "receipt poll failed", "hash", hash.Hex(), "error", err)
		case status != domain.ReceiptPending:
			w.metrics.resolved.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
			w.metrics.waitTime.Record(ctx, float64(time.Since(start).Milliseconds()))
			span.SetAttributes(attribute.String("status", status.String()))
			span.SetStatus(codes.Ok, "resolved")
			return status, nil
		}

		select {
		case <-ctx.Done():
			if parent.Err() != nil {
				return domain.ReceiptPending, parent.Err()
			}
			err := apperror.New(apperror.CodeReceiptTimeout, apperror.WithContext(hash.Hex()))
			span.RecordError(err)
			span.SetStatus(codes.Error, "timeout")
			return domain.ReceiptPending, err
		case <-ticker.C:
		}
	}
}
