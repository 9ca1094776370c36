package recorder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// PTYRecorder is the fallback backend: it allocates a raw pseudo-terminal
// for the command and manually tees every byte flowing to the user into the
// transcript. Terminal echo travels back through the pty master, so input
// appears in the transcript exactly as the user saw it.
type PTYRecorder struct {
	logger *slog.Logger
}

// Name identifies the backend.
func (r *PTYRecorder) Name() string { return "pty" }

// Record runs argv on a pty, copying master output to the caller's terminal
// and the transcript in lockstep.
func (r *PTYRecorder) Record(ctx context.Context, argv []string, transcriptPath string) (int, error) {
	transcript, err := os.OpenFile(transcriptPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return -1, fmt.Errorf("open transcript: %w", err)
	}
	defer func() {
		if closeErr := transcript.Close(); closeErr != nil {
			r.logger.Warn("failed to close transcript", "error", closeErr)
		}
	}()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return -1, fmt.Errorf("start command on pty: %w", err)
	}
	defer func() {
		if closeErr := ptmx.Close(); closeErr != nil {
			r.logger.Debug("pty close", "error", closeErr)
		}
	}()

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		if size, sizeErr := pty.GetsizeFull(os.Stdin); sizeErr == nil {
			if resizeErr := pty.Setsize(ptmx, size); resizeErr != nil {
				r.logger.Debug("pty resize", "error", resizeErr)
			}
		}
		oldState, rawErr := term.MakeRaw(stdinFd)
		if rawErr != nil {
			return -1, fmt.Errorf("set terminal raw mode: %w", rawErr)
		}
		defer func() {
			if restoreErr := term.Restore(stdinFd, oldState); restoreErr != nil {
				r.logger.Warn("failed to restore terminal", "error", restoreErr)
			}
		}()
	}

	// User keystrokes flow to the pty; the copy unblocks when the
	// process exits and stdin is abandoned with it.
	go func() {
		_, _ = io.Copy(ptmx, os.Stdin)
	}()

	teeErr := Tee(os.Stdout, transcript, ptmx)

	code, waitErr := exitCode(cmd.Wait())
	if waitErr != nil {
		return -1, fmt.Errorf("wait for command: %w", waitErr)
	}
	if teeErr != nil {
		return code, fmt.Errorf("record session bytes: %w", teeErr)
	}
	return code, nil
}
