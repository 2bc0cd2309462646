package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	blockchainApp "github.com/fd1az/crystal-ball/business/blockchain/app"
	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
	"github.com/fd1az/crystal-ball/internal/apm"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/logger"
)

const (
	tracerName = "github.com/fd1az/crystal-ball/business/oracle/app"
	meterName  = "github.com/fd1az/crystal-ball/business/oracle/app"
)

// SessionConfig holds the submission flow timings.
type SessionConfig struct {
	AnimationDelay time.Duration
	RefreshDelay   time.Duration

	// IntN picks the answer index. Defaults to math/rand.Intn.
	IntN func(n int) int
}

// DefaultSessionConfig returns the stock 2s animation and 3s refresh delays.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AnimationDelay: 2 * time.Second,
		RefreshDelay:   3 * time.Second,
	}
}

// sessionMetrics holds OTEL metric instruments.
type sessionMetrics struct {
	asked        metric.Int64Counter
	rejected     metric.Int64Counter
	dispatched   metric.Int64Counter
	txFailed     metric.Int64Counter
	counterReads metric.Int64Counter
	counterValue metric.Int64Gauge
}

// Session is the oracle view state machine: question, animation, answer,
// increment transaction and counter.
type Session struct {
	config    SessionConfig
	wallet    Wallet
	counter   CounterContract
	watcher   blockchainApp.ReceiptWatcher
	presenter Presenter
	logger    logger.LoggerInterface
	sched     *Scheduler

	// lifetime of background work
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// receipt watches of the current generation
	genCtx    context.Context
	genCancel context.CancelFunc

	tracer  apm.Tracer
	metrics *sessionMetrics

	mu        sync.Mutex
	closed    bool
	gen       uint64 // bumped when in-flight work is superseded
	question  string
	answer    string
	animating bool
	pending   *domain.PendingTx
	confirmed uint64
	count     domain.Count
	account   *blockchainDomain.Account
	lastErr   string
}

// NewSession creates a new Session and subscribes it to account changes.
func NewSession(
	cfg SessionConfig,
	wallet Wallet,
	counter CounterContract,
	watcher blockchainApp.ReceiptWatcher,
	presenter Presenter,
	log logger.LoggerInterface,
) (*Session, error) {
	if cfg.IntN == nil {
		cfg.IntN = rand.Intn
	}

	if cfg.AnimationDelay <= 0 || cfg.RefreshDelay <= 0 {
		def := DefaultSessionConfig()
		if cfg.AnimationDelay <= 0 {
			cfg.AnimationDelay = def.AnimationDelay
		}
		if cfg.RefreshDelay <= 0 {
			cfg.RefreshDelay = def.RefreshDelay
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	genCtx, genCancel := context.WithCancel(ctx)

	s := &Session{
		config:    cfg,
		wallet:    wallet,
		counter:   counter,
		watcher:   watcher,
		presenter: presenter,
		logger:    log,
		sched:     NewScheduler(),
		ctx:       ctx,
		cancel:    cancel,
		genCtx:    genCtx,
		genCancel: genCancel,
		tracer:    apm.NewTracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		cancel()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	if acc, ok := wallet.Account(); ok {
		s.account = acc
	}
	wallet.OnAccountChange(s.onAccountChange)

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *Session) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &sessionMetrics{}

	s.metrics.asked, err = meter.Int64Counter(
		"oracle_questions_asked_total",
		metric.WithDescription("Questions accepted by the oracle"),
		metric.WithUnit("{question}"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejected, err = meter.Int64Counter(
		"oracle_asks_rejected_total",
		metric.WithDescription("Asks refused by the submission guard"),
		metric.WithUnit("{question}"),
	)
	if err != nil {
		return err
	}

	s.metrics.dispatched, err = meter.Int64Counter(
		"oracle_transactions_dispatched_total",
		metric.WithDescription("increment() transactions dispatched"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	s.metrics.txFailed, err = meter.Int64Counter(
		"oracle_transactions_failed_total",
		metric.WithDescription("increment() transactions rejected or reverted"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	s.metrics.counterReads, err = meter.Int64Counter(
		"oracle_counter_reads_total",
		metric.WithDescription("get_current_count() reads"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	s.metrics.counterValue, err = meter.Int64Gauge(
		"oracle_counter_value",
		metric.WithDescription("Last prophecy counter value read"),
		metric.WithUnit("{prophecy}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Start publishes the initial view and performs the first counter read.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.publishLocked()
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial counter read failed", "error", err)
	}
}

// SetQuestion stores the question text.
func (s *Session) SetQuestion(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.question == q {
		return
	}
	s.question = q
	s.publishLocked()
}

// Ask starts the reveal animation. Rejected asks leave the session untouched.
func (s *Session) Ask(ctx context.Context) error {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "oracle.ask")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked(); err != nil {
		s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("code", string(err.Code))))
		span.SetAttributes(attribute.String("rejected", string(err.Code)))
		s.logger.Debug(ctx, "ask rejected", "code", err.Code)
		return err
	}

	s.animating = true
	s.answer = ""
	s.lastErr = ""

	gen := s.gen
	s.sched.After(s.config.AnimationDelay, func() {
		s.reveal(gen)
	})

	s.metrics.asked.Add(ctx, 1)
	s.logger.Info(ctx, "question asked", "question", s.question)

	s.publishLocked()
	return nil
}

func (s *Session) guardLocked() *apperror.AppError {
	switch {
	case s.closed:
		return apperror.New(apperror.CodeSessionClosed)
	case s.account == nil:
		return apperror.New(apperror.CodeWalletNotConnected)
	case strings.TrimSpace(s.question) == "":
		return apperror.New(apperror.CodeEmptyQuestion)
	case s.animating || s.sendingLocked():
		return apperror.New(apperror.CodeSessionBusy)
	}
	return nil
}

// sendingLocked reports whether the wallet still holds the latest increment.
// Submitted transactions waiting for a receipt do not block asks.
func (s *Session) sendingLocked() bool {
	return s.pending != nil && !s.pending.Submitted()
}

// reveal picks the answer, publishes it, then dispatches increment().
func (s *Session) reveal(gen uint64) {
	ctx, span := s.tracer.StartSpanFromContext(s.ctx, "oracle.reveal")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen || !s.animating {
		return
	}

	s.answer = domain.Pick(s.config.IntN)
	s.animating = false
	s.pending = &domain.PendingTx{Status: blockchainDomain.ReceiptPending}

	span.SetAttributes(attribute.String("answer", s.answer))
	s.logger.Info(ctx, "answer revealed", "answer", s.answer)

	// answer is rendered before the transaction leaves
	s.publishLocked()

	signer, err := s.wallet.Signer()
	if err != nil {
		span.NoticeError(err)
		s.pending = nil
		s.failTxLocked(ctx, err)
		return
	}

	watchCtx, cancel := context.WithCancel(s.genCtx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.dispatch(watchCtx, gen, signer)
	}()
}

// dispatch sends increment() and follows its receipt. Once the hash is back
// the session accepts the next ask while this receipt is still watched.
func (s *Session) dispatch(ctx context.Context, gen uint64, signer blockchainApp.Signer) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "oracle.dispatch")
	defer span.End()

	s.metrics.dispatched.Add(ctx, 1)

	handle, err := signer.SendTransaction(ctx, []blockchainDomain.Call{s.counter.IncrementCall()})
	if err != nil {
		span.NoticeError(err)
		s.finishTx(ctx, gen, common.Hash{}, blockchainDomain.ReceiptPending, err)
		return
	}

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.sendingLocked() {
		s.pending.Hash = handle.Hash
	}
	span.SetAttributes(attribute.String("hash", handle.Hash.Hex()))
	s.logger.Info(ctx, "increment submitted", "hash", handle.Hash.Hex())
	s.publishLocked()
	s.mu.Unlock()

	status, err := s.watcher.Watch(ctx, handle.Hash)
	if err != nil {
		span.NoticeError(err)
	}
	s.finishTx(ctx, gen, handle.Hash, status, err)
}

// finishTx resolves the transaction identified by hash (zero for a failed
// send). Pending is cleared only if it still refers to that transaction. Each
// success schedules its own counter refresh.
func (s *Session) finishTx(ctx context.Context, gen uint64, hash common.Hash, status blockchainDomain.ReceiptStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return
	}
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}

	if s.pending != nil && s.pending.Hash == hash {
		s.pending = nil
	}

	switch {
	case err != nil:
		s.failTxLocked(ctx, err)
	case status == blockchainDomain.ReceiptSuccess:
		s.confirmed++
		s.logger.Info(ctx, "increment confirmed", "hash", hash.Hex())

		s.sched.After(s.config.RefreshDelay, func() {
			s.runRefresh(gen)
		})
		s.publishLocked()
	default:
		s.failTxLocked(ctx, apperror.New(apperror.CodeTransactionFailed,
			apperror.WithContext(hash.Hex())))
	}
}

func (s *Session) failTxLocked(ctx context.Context, err error) {
	s.lastErr = apperror.UserMessage(err)
	s.metrics.txFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", string(apperror.GetCode(err)))))
	s.logger.Error(ctx, "increment failed", "error", err)
	s.publishLocked()
}

func (s *Session) runRefresh(gen uint64) {
	s.mu.Lock()
	live := !s.closed && gen == s.gen
	s.mu.Unlock()

	if !live {
		return
	}

	if err := s.Refresh(s.ctx); err != nil {
		s.logger.Warn(s.ctx, "counter refresh failed", "error", err)
	}
	if err := s.wallet.RefreshBalance(s.ctx); err != nil {
		s.logger.Warn(s.ctx, "balance refresh failed", "error", err)
	}
}

// Refresh reads the counter. A failed read keeps the previous value.
func (s *Session) Refresh(ctx context.Context) error {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "oracle.refresh")
	defer span.End()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return apperror.New(apperror.CodeSessionClosed)
	}

	value, err := s.counter.Count(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		span.NoticeError(err)
		s.metrics.counterReads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
		if !s.closed {
			s.lastErr = apperror.UserMessage(err)
			s.publishLocked()
		}
		return err
	}

	s.metrics.counterReads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	if value.IsInt64() {
		s.metrics.counterValue.Record(ctx, value.Int64())
	}

	if s.closed {
		return nil
	}
	s.count = domain.NewCount(value)
	s.lastErr = ""
	s.logger.Debug(ctx, "counter read", "count", value.String())
	s.publishLocked()
	return nil
}

// onAccountChange supersedes in-flight work when the account goes away or
// changes.
func (s *Session) onAccountChange(acc *blockchainDomain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	prev := s.account
	s.account = acc

	if acc == nil || (prev != nil && prev.Address != acc.Address) {
		s.resetLocked()
	}

	s.publishLocked()
}

func (s *Session) resetLocked() {
	s.gen++
	s.sched.CancelAll()

	s.genCancel()
	s.genCtx, s.genCancel = context.WithCancel(s.ctx)

	s.animating = false
	s.pending = nil
}

// Snapshot returns the current view.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Question:  s.question,
		Answer:    s.answer,
		Animating: s.animating,
		Confirmed: s.confirmed,
		Count:     s.count,
		LastError: s.lastErr,
	}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	if s.account != nil {
		a := *s.account
		snap.Account = &a
	}
	return snap
}

func (s *Session) publishLocked() {
	s.presenter.Render(s.snapshotLocked())
}

// Close cancels scheduled tasks and receipt watches and waits for them.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.mu.Unlock()

	s.cancel()
	s.sched.Close()
	s.wg.Wait()
}
