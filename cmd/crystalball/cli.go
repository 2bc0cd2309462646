package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/pkg/ui"
)

const idlePoll = 50 * time.Millisecond

// runCLI reads one question per line. Each ask waits until the session is idle
// again, so answers and receipts print in order.
func runCLI(ctx context.Context, in io.Reader, out io.Writer, ctrl ui.Controller) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "> ")

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				waitIdle(ctx, ctrl)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/quit":
			waitIdle(ctx, ctrl)
			return nil
		case line == "/refresh":
			if err := ctrl.Refresh(ctx); err != nil {
				fmt.Fprintf(out, "Error: %s\n", apperror.UserMessage(err))
			}
			continue
		case line == "/disconnect":
			ctrl.Disconnect(ctx)
			continue
		case strings.HasPrefix(line, "/connect"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/connect"))
			if err := ctrl.Connect(ctx, id); err != nil {
				fmt.Fprintf(out, "Error: %s\n", apperror.UserMessage(err))
			}
			continue
		}

		ctrl.SetQuestion(line)
		if err := ctrl.Ask(ctx); err != nil {
			fmt.Fprintf(out, "Error: %s\n", apperror.UserMessage(err))
			continue
		}
		waitIdle(ctx, ctrl)
	}
}

// waitIdle blocks until no animation or transaction is in flight.
func waitIdle(ctx context.Context, ctrl ui.Controller) {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()

	for ctrl.Snapshot().Busy() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
