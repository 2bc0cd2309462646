package ui

import (
	"context"
	"math/big"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
)

var testAccount = &blockchainDomain.Account{
	Address: common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"),
	Balance: big.NewInt(123_456_789_000_000_000),
}

type fakeController struct {
	snap       domain.Snapshot
	connectors []blockchainDomain.ConnectorInfo

	connected []string
	questions []string
	asks      int
	refreshes int
	askErr    error
}

func (f *fakeController) Network() string { return "sepolia" }

func (f *fakeController) Connectors() []blockchainDomain.ConnectorInfo { return f.connectors }

func (f *fakeController) Connect(_ context.Context, id string) error {
	f.connected = append(f.connected, id)
	f.snap.Account = testAccount
	return nil
}

func (f *fakeController) Disconnect(context.Context) { f.snap.Account = nil }

func (f *fakeController) SetQuestion(q string) {
	f.questions = append(f.questions, q)
	f.snap.Question = q
}

func (f *fakeController) Ask(context.Context) error {
	f.asks++
	return f.askErr
}

func (f *fakeController) Refresh(context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeController) Snapshot() domain.Snapshot { return f.snap }

func newController() *fakeController {
	return &fakeController{
		connectors: []blockchainDomain.ConnectorInfo{
			{ID: "keystore", Name: "Keystore", Recommended: true, Ready: true},
			{ID: "privatekey", Name: "Private Key", Ready: true},
		},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func ready(t *testing.T, ctrl *fakeController) Model {
	t.Helper()
	m := New()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.phase != PhaseStartup {
		t.Fatalf("expected startup phase, got %s", m.phase)
	}
	m, _ = update(t, m, ReadyMsg{Controller: ctrl})
	return m
}

func TestWelcome_RendersTitle(t *testing.T) {
	view := New().View()
	if !strings.Contains(view, "C R Y S T A L   B A L L   P R O P H E C I E S") {
		t.Errorf("welcome screen missing title:\n%s", view)
	}
}

func TestConnectScreen(t *testing.T) {
	ctrl := newController()
	m := ready(t, ctrl)

	view := m.View()
	for _, want := range []string{"Connect Keystore", "Connect Private Key", "Not connected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, ButtonIdle) {
		t.Error("submission control reachable without a wallet")
	}

	// enter is a connect, never an ask
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if ctrl.asks != 0 {
		t.Error("ask dispatched from the connector screen")
	}
	if cmd == nil {
		t.Fatal("expected a connect command")
	}
	if !m.connecting {
		t.Error("expected connecting state")
	}

	msg := cmd()
	if len(ctrl.connected) != 1 || ctrl.connected[0] != "privatekey" {
		t.Fatalf("unexpected connects %v", ctrl.connected)
	}

	m, _ = update(t, m, msg)
	if m.connecting || !m.snap.Connected() {
		t.Errorf("expected connected model after connect result")
	}
}

func TestOracleScreen(t *testing.T) {
	ctrl := newController()
	ctrl.snap.Account = testAccount
	m := ready(t, ctrl)

	view := m.View()
	for _, want := range []string{
		"Connected: " + testAccount.ShortAddress(),
		"Balance: 0.1234 ETH",
		"Ask your question...",
		ButtonIdle,
		"Prophecies revealed: Loading...",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = update(t, m, SnapshotMsg{Snapshot: domain.Snapshot{
		Account:   testAccount,
		Question:  "Will it rain?",
		Animating: true,
		Count:     domain.NewCount(big.NewInt(41)),
	}})
	view = m.View()
	if !strings.Contains(view, ButtonBusy) || strings.Contains(view, ButtonIdle) {
		t.Errorf("expected busy button while animating:\n%s", view)
	}
	if !strings.Contains(view, "Prophecies revealed: 41") {
		t.Errorf("expected count:\n%s", view)
	}

	m, _ = update(t, m, SnapshotMsg{Snapshot: domain.Snapshot{
		Account:   testAccount,
		Answer:    "Outlook good.",
		Count:     domain.NewCount(big.NewInt(42)),
		LastError: "Transaction was rejected",
	}})
	view = m.View()
	for _, want := range []string{"Outlook good.", ButtonIdle, "Prophecies revealed: 42", "Transaction was rejected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestOracleScreen_ButtonFollowsSend(t *testing.T) {
	ctrl := newController()
	ctrl.snap.Account = testAccount
	m := ready(t, ctrl)

	// the wallet has not returned a hash yet
	m, _ = update(t, m, SnapshotMsg{Snapshot: domain.Snapshot{
		Account:  testAccount,
		Question: "Will it rain?",
		Answer:   "Yes.",
		Pending:  &domain.PendingTx{},
	}})
	if view := m.View(); !strings.Contains(view, ButtonBusy) {
		t.Errorf("expected busy button while sending:\n%s", view)
	}

	// submitted and waiting for its receipt
	hash := common.HexToHash("0xbeef")
	m, _ = update(t, m, SnapshotMsg{Snapshot: domain.Snapshot{
		Account:  testAccount,
		Question: "Will it rain?",
		Answer:   "Yes.",
		Pending:  &domain.PendingTx{Hash: hash},
	}})
	view := m.View()
	if strings.Contains(view, ButtonBusy) || !strings.Contains(view, ButtonIdle) {
		t.Errorf("expected idle button once the tx is submitted:\n%s", view)
	}
	if !strings.Contains(view, "Pending tx: "+hash.Hex()) {
		t.Errorf("expected pending tx line:\n%s", view)
	}
}

func TestOracleScreen_TypingAndAsk(t *testing.T) {
	ctrl := newController()
	ctrl.snap.Account = testAccount
	m := ready(t, ctrl)

	for _, r := range "Hi?" {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if got := ctrl.questions; len(got) != 3 || got[2] != "Hi?" {
		t.Fatalf("expected question updates per keystroke, got %v", got)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if ctrl.asks != 1 {
		t.Fatalf("expected one ask, got %d", ctrl.asks)
	}
	if m.errorLine() != "" {
		t.Errorf("unexpected error line %q", m.errorLine())
	}

	// guard rejections stay quiet
	ctrl.askErr = apperror.New(apperror.CodeSessionBusy)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.errorLine() != "" {
		t.Errorf("busy rejection surfaced: %q", m.errorLine())
	}

	ctrl.askErr = apperror.New(apperror.CodeSessionClosed)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.errorLine() != "Session is closed" {
		t.Errorf("expected closed error, got %q", m.errorLine())
	}
}

func TestOracleScreen_RefreshAndDisconnect(t *testing.T) {
	ctrl := newController()
	ctrl.snap.Account = testAccount
	m := ready(t, ctrl)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd == nil {
		t.Fatal("expected refresh command")
	}
	if msg := cmd(); msg != nil {
		t.Errorf("unexpected refresh result %v", msg)
	}
	if ctrl.refreshes != 1 {
		t.Errorf("expected one refresh, got %d", ctrl.refreshes)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.snap.Connected() {
		t.Fatal("expected disconnected model")
	}
	if !strings.Contains(m.View(), "Connect Keystore") {
		t.Error("expected connector list after disconnect")
	}
}

func TestQuit(t *testing.T) {
	m := New()
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.quitting || cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
