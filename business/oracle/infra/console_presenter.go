// Package infra contains presentation adapters for the oracle context.
package infra

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/crystal-ball/business/oracle/app"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
)

// Ensure ConsolePresenter implements Presenter.
var _ app.Presenter = (*ConsolePresenter)(nil)

// ConsolePresenter prints session transitions for CLI mode.
type ConsolePresenter struct {
	out io.Writer
	now func() time.Time

	mu   sync.Mutex
	prev *domain.Snapshot
}

// NewConsolePresenter creates a ConsolePresenter writing to stdout.
func NewConsolePresenter() *ConsolePresenter {
	return NewConsolePresenterTo(os.Stdout)
}

// NewConsolePresenterTo creates a ConsolePresenter writing to out.
func NewConsolePresenterTo(out io.Writer) *ConsolePresenter {
	return &ConsolePresenter{out: out, now: time.Now}
}

// Banner prints the start banner.
func (p *ConsolePresenter) Banner() {
	fmt.Fprintln(p.out, "Crystal Ball Prophecies")
	fmt.Fprintln(p.out, "=======================")
	fmt.Fprintln(p.out, "Type a question and press Enter. /refresh re-reads the counter, /quit exits.")
}

// Render prints what changed since the previous snapshot.
func (p *ConsolePresenter) Render(snap domain.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.prev
	if prev == nil {
		prev = &domain.Snapshot{}
	}

	if snap.Connected() != prev.Connected() ||
		(snap.Connected() && snap.Account.Address != prev.Account.Address) {
		if snap.Connected() {
			p.line("Connected: %s", snap.Account.ShortAddress())
		} else if p.prev != nil {
			p.line("Wallet disconnected")
		}
	}

	if snap.Animating && !prev.Animating {
		p.line("Channeling Magic...")
	}

	if snap.Answer != "" && snap.Answer != prev.Answer {
		p.line("The oracle says: %s", snap.Answer)
	}

	if snap.Pending != nil && snap.Pending.Submitted() &&
		(prev.Pending == nil || prev.Pending.Hash != snap.Pending.Hash) {
		p.line("Transaction submitted: %s", snap.Pending.Hash.Hex())
	}

	if snap.Confirmed > prev.Confirmed {
		p.line("Prophecy recorded on-chain")
	}

	if snap.Count.String() != prev.Count.String() && snap.Count.Known() {
		p.line("Prophecies revealed: %s", snap.Count)
	}

	if snap.LastError != "" && snap.LastError != prev.LastError {
		p.line("Error: %s", snap.LastError)
	}

	cp := snap
	p.prev = &cp
}

func (p *ConsolePresenter) line(format string, args ...any) {
	fmt.Fprintf(p.out, "[%s] %s\n", p.now().Format("15:04:05"), fmt.Sprintf(format, args...))
}
