package infra

import (
	"sync"

	"github.com/fd1az/crystal-ball/business/oracle/app"
	"github.com/fd1az/crystal-ball/business/oracle/domain"
)

// Ensure TUIPresenter implements Presenter.
var _ app.Presenter = (*TUIPresenter)(nil)

// TUIPresenter forwards snapshots to the Bubble Tea program. Only the latest
// snapshot is kept: a slow UI skips intermediate frames, it never blocks the
// session.
type TUIPresenter struct {
	send func(domain.Snapshot)

	mu     sync.Mutex
	latest domain.Snapshot

	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewTUIPresenter starts the forwarding goroutine. send may block.
func NewTUIPresenter(send func(domain.Snapshot)) *TUIPresenter {
	p := &TUIPresenter{
		send:   send,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.forward()

	return p
}

// Render stores snap and wakes the forwarder.
func (p *TUIPresenter) Render(snap domain.Snapshot) {
	p.mu.Lock()
	p.latest = snap
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *TUIPresenter) forward() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case <-p.signal:
			p.mu.Lock()
			snap := p.latest
			p.mu.Unlock()

			p.send(snap)
		}
	}
}

// Close stops the forwarder. A send in progress must return first.
func (p *TUIPresenter) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
