package app

import (
	"context"
	"errors"
	"math"
	"math/big"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/goleak"

	blockchainApp "github.com/fd1az/crystal-ball/business/blockchain/app"
	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/logger"
)

const (
	testAnimation = 40 * time.Millisecond
	testRefresh   = 60 * time.Millisecond
)

var (
	testAccount  = &blockchainDomain.Account{Address: common.HexToAddress("0x1234567890abcdef1234567890abcdef1234abcd"), Connector: "keystore"}
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

// recordingPresenter keeps every rendered snapshot.
type recordingPresenter struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
	times []time.Time
}

func (p *recordingPresenter) Render(snap domain.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	p.times = append(p.times, time.Now())
}

func (p *recordingPresenter) last() domain.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snaps) == 0 {
		return domain.Snapshot{}
	}
	return p.snaps[len(p.snaps)-1]
}

// firstAnswerAt returns when the answer was first rendered.
func (p *recordingPresenter) firstAnswerAt() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.snaps {
		if s.Answer != "" {
			return p.times[i], true
		}
	}
	return time.Time{}, false
}

// fakeSigner hands out a distinct hash per send.
type fakeSigner struct {
	mu     sync.Mutex
	calls  [][]blockchainDomain.Call
	sentAt []time.Time
	err    error
	onSend func()
}

func (f *fakeSigner) Address() common.Address { return testAccount.Address }

func (f *fakeSigner) SendTransaction(_ context.Context, calls []blockchainDomain.Call) (blockchainDomain.TxHandle, error) {
	f.mu.Lock()
	onSend := f.onSend
	f.mu.Unlock()
	if onSend != nil {
		onSend()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, calls)
	f.sentAt = append(f.sentAt, time.Now())
	if f.err != nil {
		return blockchainDomain.TxHandle{}, f.err
	}
	return blockchainDomain.TxHandle{Hash: common.BigToHash(big.NewInt(int64(0xabc0 + len(f.calls))))}, nil
}

func (f *fakeSigner) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeWallet struct {
	mu        sync.Mutex
	account   *blockchainDomain.Account
	signer    *fakeSigner
	listeners []blockchainApp.AccountListener
	balances  int
}

func (w *fakeWallet) Account() (*blockchainDomain.Account, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account, w.account != nil
}

func (w *fakeWallet) Signer() (blockchainApp.Signer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.account == nil {
		return nil, apperror.New(apperror.CodeWalletNotConnected)
	}
	return w.signer, nil
}

func (w *fakeWallet) RefreshBalance(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances++
	return nil
}

func (w *fakeWallet) OnAccountChange(fn blockchainApp.AccountListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *fakeWallet) set(acc *blockchainDomain.Account) {
	w.mu.Lock()
	w.account = acc
	listeners := append([]blockchainApp.AccountListener(nil), w.listeners...)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(acc)
	}
}

type fakeCounter struct {
	mu     sync.Mutex
	value  int64
	err    error
	reads  int
	readAt []time.Time
}

func (c *fakeCounter) Count(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	c.readAt = append(c.readAt, time.Now())
	if c.err != nil {
		return nil, c.err
	}
	return big.NewInt(c.value), nil
}

func (c *fakeCounter) IncrementCall() blockchainDomain.Call {
	return blockchainDomain.Call{To: testContract, Data: []byte{0xd0, 0x9d, 0xe0, 0x8a}}
}

func (c *fakeCounter) increment() {
	c.mu.Lock()
	c.value++
	c.mu.Unlock()
}

func (c *fakeCounter) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// fakeWatcher resolves every receipt with status once release is closed.
type fakeWatcher struct {
	status    blockchainDomain.ReceiptStatus
	err       error
	release   chan struct{}
	onResolve func()

	mu         sync.Mutex
	resolvedAt []time.Time
}

func (w *fakeWatcher) Watch(ctx context.Context, _ common.Hash) (blockchainDomain.ReceiptStatus, error) {
	if w.release != nil {
		select {
		case <-w.release:
		case <-ctx.Done():
			return blockchainDomain.ReceiptPending, ctx.Err()
		}
	}
	if w.onResolve != nil {
		w.onResolve()
	}

	w.mu.Lock()
	w.resolvedAt = append(w.resolvedAt, time.Now())
	w.mu.Unlock()

	return w.status, w.err
}

func (w *fakeWatcher) resolved() []time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Time(nil), w.resolvedAt...)
}

type harness struct {
	session   *Session
	wallet    *fakeWallet
	signer    *fakeSigner
	counter   *fakeCounter
	watcher   *fakeWatcher
	presenter *recordingPresenter
}

func newHarness(t *testing.T, connected bool) *harness {
	t.Helper()

	h := &harness{
		signer:    &fakeSigner{},
		counter:   &fakeCounter{value: 41},
		watcher:   &fakeWatcher{status: blockchainDomain.ReceiptSuccess},
		presenter: &recordingPresenter{},
	}
	h.wallet = &fakeWallet{signer: h.signer}
	if connected {
		h.wallet.account = testAccount
	}

	cfg := SessionConfig{
		AnimationDelay: testAnimation,
		RefreshDelay:   testRefresh,
		IntN:           func(int) int { return 0 },
	}

	s, err := NewSession(cfg, h.wallet, h.counter, h.watcher, h.presenter, logger.NewDiscard())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	h.session = s
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAsk_WillItRain(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	h.session.Start(ctx)
	if got := h.session.Snapshot().Count.String(); got != "41" {
		t.Fatalf("expected initial count 41, got %s", got)
	}

	// the chain counts the increment when the receipt resolves
	h.watcher.onResolve = h.counter.increment

	h.session.SetQuestion("Will it rain?")
	askedAt := time.Now()
	if err := h.session.Ask(ctx); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	snap := h.session.Snapshot()
	if !snap.Animating || snap.Answer != "" {
		t.Fatalf("expected animating with no answer, got %+v", snap)
	}

	waitFor(t, "count refresh", func() bool { return h.session.Snapshot().Count.String() == "42" })

	answeredAt, ok := h.presenter.firstAnswerAt()
	if !ok {
		t.Fatal("answer never rendered")
	}
	if d := answeredAt.Sub(askedAt); d < testAnimation {
		t.Errorf("answer shown after %s, before the %s animation delay", d, testAnimation)
	}

	final := h.session.Snapshot()
	if final.Answer != "It is certain." || final.Animating || final.Pending != nil || final.Confirmed != 1 {
		t.Errorf("unexpected final snapshot %+v", final)
	}
	if final.Question != "Will it rain?" {
		t.Error("question must not be cleared after asking")
	}

	if h.signer.sent() != 1 {
		t.Fatalf("expected exactly one increment, got %d", h.signer.sent())
	}
	if call := h.signer.calls[0]; len(call) != 1 || call[0].To != testContract {
		t.Errorf("unexpected dispatched calls %+v", call)
	}
	if h.signer.sentAt[0].Sub(askedAt) < testAnimation {
		t.Error("increment dispatched before the animation delay")
	}

	// start read + one refresh after success
	time.Sleep(2 * testRefresh)
	if got := h.counter.readCount(); got != 2 {
		t.Errorf("expected 2 counter reads, got %d", got)
	}
	resolved := h.watcher.resolved()
	if len(resolved) != 1 {
		t.Fatalf("expected one resolved receipt, got %d", len(resolved))
	}
	h.counter.mu.Lock()
	refreshedAt := h.counter.readAt[1]
	h.counter.mu.Unlock()
	if d := refreshedAt.Sub(resolved[0]); d < testRefresh {
		t.Errorf("refresh %s after the receipt, before the %s refresh delay", d, testRefresh)
	}
}

func TestAsk_Guards(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		question  string
		wantCode  apperror.Code
	}{
		{name: "blank", connected: true, question: "", wantCode: apperror.CodeEmptyQuestion},
		{name: "whitespace", connected: true, question: "  \t ", wantCode: apperror.CodeEmptyQuestion},
		{name: "no_wallet", connected: false, question: "Will it rain?", wantCode: apperror.CodeWalletNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.connected)
			h.session.SetQuestion(tt.question)
			before := h.session.Snapshot()

			err := h.session.Ask(context.Background())
			if apperror.GetCode(err) != tt.wantCode {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}

			after := h.session.Snapshot()
			if after.Animating || after.Answer != before.Answer {
				t.Errorf("rejected ask changed state: %+v", after)
			}

			time.Sleep(testAnimation + 20*time.Millisecond)
			if h.signer.sent() != 0 {
				t.Error("rejected ask dispatched a transaction")
			}
		})
	}
}

func TestAsk_BusyWhileAnimating(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.session.Ask(ctx); apperror.GetCode(err) != apperror.CodeSessionBusy {
		t.Fatalf("expected SESSION_BUSY, got %v", err)
	}

	waitFor(t, "dispatch", func() bool { return h.signer.sent() == 1 })
	time.Sleep(testAnimation)
	if h.signer.sent() != 1 {
		t.Errorf("expected a single dispatch, got %d", h.signer.sent())
	}
}

func TestAsk_BusyWhileSending(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	sending := make(chan struct{})
	proceed := make(chan struct{})
	unblock := sync.OnceFunc(func() { close(proceed) })
	defer unblock()
	h.signer.onSend = func() {
		close(sending)
		<-proceed
	}

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case <-sending:
	case <-time.After(2 * time.Second):
		t.Fatal("increment never sent")
	}

	snap := h.session.Snapshot()
	if !snap.Sending() || !snap.Busy() {
		t.Fatalf("expected sending snapshot, got %+v", snap)
	}
	if err := h.session.Ask(ctx); apperror.GetCode(err) != apperror.CodeSessionBusy {
		t.Fatalf("expected SESSION_BUSY while the wallet holds the tx, got %v", err)
	}

	unblock()
	waitFor(t, "submitted tx", func() bool {
		p := h.session.Snapshot().Pending
		return p == nil || p.Submitted()
	})

	h.signer.mu.Lock()
	h.signer.onSend = nil
	h.signer.mu.Unlock()

	if err := h.session.Ask(ctx); err != nil {
		t.Errorf("expected ask to be accepted once the hash is back, got %v", err)
	}
}

func TestAsk_AcceptedWhileReceiptPending(t *testing.T) {
	h := newHarness(t, true)
	h.watcher.release = make(chan struct{})
	ctx := context.Background()

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first submitted tx", func() bool {
		p := h.session.Snapshot().Pending
		return p != nil && p.Submitted()
	})
	first := h.session.Snapshot().Pending.Hash

	if h.session.Snapshot().Busy() {
		t.Fatal("a submitted tx waiting for its receipt must not block the oracle")
	}
	if err := h.session.Ask(ctx); err != nil {
		t.Fatalf("expected second ask to be accepted while mining, got %v", err)
	}
	waitFor(t, "second submitted tx", func() bool {
		p := h.session.Snapshot().Pending
		return h.signer.sent() == 2 && p != nil && p.Submitted()
	})
	if h.session.Snapshot().Pending.Hash == first {
		t.Error("pending should track the latest increment")
	}

	close(h.watcher.release)
	waitFor(t, "both confirmed", func() bool { return h.session.Snapshot().Confirmed == 2 })
	if p := h.session.Snapshot().Pending; p != nil {
		t.Errorf("pending must clear after the latest receipt, got %+v", p)
	}

	// one refresh per confirmed increment
	waitFor(t, "refreshes", func() bool { return h.counter.readCount() == 2 })
	time.Sleep(2 * testRefresh)
	if got := h.counter.readCount(); got != 2 {
		t.Errorf("expected 2 counter reads, got %d", got)
	}
}

func TestAnswerPublishedBeforeDispatch(t *testing.T) {
	h := newHarness(t, true)

	var answerAtSend string
	h.signer.onSend = func() {
		answerAtSend = h.presenter.last().Answer
	}

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "dispatch", func() bool { return h.signer.sent() == 1 })

	if answerAtSend == "" {
		t.Error("increment dispatched before the answer was rendered")
	}
}

func TestTransactionRejected(t *testing.T) {
	h := newHarness(t, true)
	h.signer.err = apperror.New(apperror.CodeTransactionRejected, apperror.WithCause(errors.New("user rejected")))

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "error surfaced", func() bool { return h.session.Snapshot().LastError != "" })

	snap := h.session.Snapshot()
	if snap.Pending != nil || snap.Busy() {
		t.Errorf("expected idle session after rejection, got %+v", snap)
	}
	if snap.Answer == "" {
		t.Error("answer should stay visible after a failed transaction")
	}

	time.Sleep(testRefresh + 20*time.Millisecond)
	if h.counter.readCount() != 0 {
		t.Error("no refresh expected after a failed transaction")
	}
}

func TestReceiptFailure(t *testing.T) {
	h := newHarness(t, true)
	h.watcher.status = blockchainDomain.ReceiptFailure

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "error surfaced", func() bool { return h.session.Snapshot().LastError != "" })
	if h.session.Snapshot().Pending != nil {
		t.Error("pending must clear after a failed receipt")
	}

	time.Sleep(testRefresh + 20*time.Millisecond)
	if h.counter.readCount() != 0 {
		t.Error("no refresh expected after a reverted transaction")
	}
}

func TestRefreshFailureKeepsLoading(t *testing.T) {
	h := newHarness(t, true)
	h.counter.err = apperror.New(apperror.CodeCounterReadFailed)

	h.session.Start(context.Background())

	snap := h.session.Snapshot()
	if snap.Count.Known() || snap.Count.String() != "Loading..." {
		t.Errorf("expected unknown count, got %s", snap.Count)
	}
	if snap.LastError != "Failed to read prophecy counter" {
		t.Errorf("unexpected error line %q", snap.LastError)
	}

	// manual refresh recovers
	h.counter.mu.Lock()
	h.counter.err = nil
	h.counter.mu.Unlock()
	if err := h.session.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap = h.session.Snapshot()
	if snap.Count.String() != "41" || snap.LastError != "" {
		t.Errorf("expected recovered count, got %+v", snap)
	}
}

func TestDisconnectCancelsReveal(t *testing.T) {
	h := newHarness(t, true)

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(context.Background()); err != nil {
		t.Fatal(err)
	}

	h.wallet.set(nil)

	snap := h.session.Snapshot()
	if snap.Connected() || snap.Animating {
		t.Errorf("expected disconnected idle session, got %+v", snap)
	}

	time.Sleep(2 * testAnimation)
	if h.signer.sent() != 0 {
		t.Error("reveal fired after disconnect")
	}
	if h.session.Snapshot().Answer != "" {
		t.Error("answer set after disconnect")
	}
}

func TestDisconnectCancelsReceiptWatch(t *testing.T) {
	h := newHarness(t, true)
	h.watcher.release = make(chan struct{})

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "submitted tx", func() bool {
		p := h.session.Snapshot().Pending
		return p != nil && p.Submitted()
	})

	h.wallet.set(nil)
	h.wallet.set(testAccount)

	snap := h.session.Snapshot()
	if snap.Pending != nil {
		t.Errorf("pending must clear on disconnect, got %+v", snap.Pending)
	}
	if err := h.session.Ask(context.Background()); err != nil {
		t.Errorf("expected fresh ask after reconnect, got %v", err)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := &harness{
		signer:    &fakeSigner{},
		counter:   &fakeCounter{},
		watcher:   &fakeWatcher{release: make(chan struct{})},
		presenter: &recordingPresenter{},
	}
	h.wallet = &fakeWallet{signer: h.signer, account: testAccount}

	s, err := NewSession(SessionConfig{AnimationDelay: time.Millisecond, RefreshDelay: time.Hour},
		h.wallet, h.counter, h.watcher, h.presenter, logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}

	s.SetQuestion("Will it rain?")
	if err := s.Ask(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "watch started", func() bool { return h.signer.sent() == 1 })

	s.Close()
	s.Close()

	if err := s.Ask(context.Background()); apperror.GetCode(err) != apperror.CodeSessionClosed {
		t.Errorf("expected SESSION_CLOSED, got %v", err)
	}
	if err := s.Refresh(context.Background()); apperror.GetCode(err) != apperror.CodeSessionClosed {
		t.Errorf("expected SESSION_CLOSED, got %v", err)
	}
}

func TestAnswerDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const trials = 100_000

	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		counts[domain.Pick(rng.Intn)]++
	}

	if len(counts) != domain.PhraseCount {
		t.Fatalf("expected all %d phrases, saw %d", domain.PhraseCount, len(counts))
	}
	for phrase, n := range counts {
		share := float64(n) / trials
		if math.Abs(share-0.05) > 0.005 {
			t.Errorf("%q drawn %.2f%% of the time", phrase, share*100)
		}
	}
}

func TestSessionUsesInjectedRandom(t *testing.T) {
	h := newHarness(t, true)
	h.session.config.IntN = func(n int) int { return n - 1 }

	h.session.SetQuestion("Will it rain?")
	if err := h.session.Ask(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "answer", func() bool { return h.session.Snapshot().Answer != "" })

	if got := h.session.Snapshot().Answer; got != "Very doubtful." {
		t.Errorf("unexpected answer %q", got)
	}
}

func TestNewSession_DefaultDelays(t *testing.T) {
	h := newHarness(t, false)

	s, err := NewSession(SessionConfig{RefreshDelay: time.Second}, h.wallet, h.counter, h.watcher, h.presenter, logger.NewDiscard())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	def := DefaultSessionConfig()
	if s.config.AnimationDelay != def.AnimationDelay {
		t.Errorf("expected default animation delay %s, got %s", def.AnimationDelay, s.config.AnimationDelay)
	}
	if s.config.RefreshDelay != time.Second {
		t.Errorf("configured refresh delay overridden: %s", s.config.RefreshDelay)
	}
	if s.config.IntN == nil {
		t.Error("expected a default random source")
	}
}
