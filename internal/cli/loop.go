package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// Run drives the input loop until EOF, /quit, or context cancellation.
// Plain lines send text, /pay stages and uploads a proof file, /bill
// and /who reprint the bill panel.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return scanner.Err()
			}
			if a.handleLine(ctx, line) {
				return nil
			}
		}
	}
}

// handleLine runs one command or send and reports whether the loop
// should exit.
func (a *App) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "/quit":
		return true
	case trimmed == "/bill", trimmed == "/who":
		a.renderBill()
	case trimmed == "/pay" || strings.HasPrefix(trimmed, "/pay "):
		if path := strings.TrimSpace(strings.TrimPrefix(trimmed, "/pay")); path != "" {
			a.SelectProof(path)
		}
		// A failed upload keeps the selection, so a bare /pay retries it.
		if err := a.SendProof(ctx); errors.Is(err, ErrNoProofSelected) {
			a.rend.Notice("no proof file selected, use /pay <path>")
		}
	case trimmed == "":
		// Whitespace-only input sends nothing.
	default:
		a.SendText(line)
	}
	return false
}
