// Package session orchestrates one gatekeeper session: authenticate,
// authorize against the ownership registry, attach an interactive shell and
// record every byte, and finalize the audit record on every exit path.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ashureev/gatekeeper/internal/auth"
	"github.com/ashureev/gatekeeper/internal/container"
	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/recorder"
	"github.com/ashureev/gatekeeper/internal/store"
)

const (
	dockerBin        = "docker"
	finalizeTimeout  = 5 * time.Second
	sessionDirPerm   = 0750
	transcriptPerm   = 0600
	exitShellMissing = 126 // docker exec: command found but not runnable
	exitShellNoEntry = 127 // docker exec: command not found
)

// Controller runs interactive sessions. Each invocation is an independent
// OS process; everything it coordinates with other processes goes through
// the repository.
type Controller struct {
	Repo     store.Repository
	Creds    *auth.Credentials
	Runtime  container.Runtime
	Recorder recorder.Recorder

	SessionDir string
	Shells     []string

	In  *bufio.Reader
	Out io.Writer

	// PromptPassword is swappable in tests to avoid touching a terminal.
	PromptPassword func(prompt string, w io.Writer) (string, error)

	Logger *slog.Logger
	Now    func() time.Time
}

// Result describes how a session ended.
type Result struct {
	Outcome        domain.SessionOutcome
	TranscriptPath string
	ExitCode       int
}

// Run drives one session end to end. An audit record is opened before the
// interactive channel and finalized unconditionally afterwards; failures
// before authorization leave no audit trace.
func (c *Controller) Run(ctx context.Context, containerName string) (*Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}

	state := domain.StateUnauthenticated

	// Authenticate.
	acc, err := c.authenticate(ctx)
	if err != nil {
		fmt.Fprintf(c.Out, "Access denied: %v\n", err)
		return &Result{Outcome: domain.OutcomeFailed}, err
	}
	state = domain.StateAuthenticated
	logger.Info("authenticated", "username", acc.Username, "role", acc.Role)

	// Resolve the container.
	if containerName == "" {
		containerName, err = auth.PromptLine(c.In, "Container to enter: ", c.Out)
		if err != nil {
			return &Result{Outcome: domain.OutcomeFailed}, fmt.Errorf("read container name: %w", err)
		}
	}
	containerName = strings.TrimSpace(containerName)
	if err := container.ValidateName(containerName); err != nil {
		return &Result{Outcome: domain.OutcomeFailed}, err
	}
	if err := c.Runtime.EnsureRunning(ctx, containerName); err != nil {
		fmt.Fprintf(c.Out, "Cannot enter: %v\n", err)
		return &Result{Outcome: domain.OutcomeFailed}, err
	}

	// Authorize against the ownership registry.
	if err := c.authorize(ctx, acc, containerName); err != nil {
		return &Result{Outcome: domain.OutcomeFailed}, err
	}
	state = domain.StateAuthorized

	// Open the audit record before attaching, so a crash during attach
	// still leaves evidence the session was attempted.
	if err := os.MkdirAll(c.SessionDir, sessionDirPerm); err != nil {
		return &Result{Outcome: domain.OutcomeFailed}, fmt.Errorf("create session directory: %w", err)
	}
	transcriptPath := TranscriptPath(c.SessionDir, containerName, acc.Username, now())
	logID, err := c.Repo.OpenAccessLog(ctx, acc.Username, containerName, transcriptPath)
	if err != nil {
		return &Result{Outcome: domain.OutcomeFailed}, fmt.Errorf("open audit record: %w", err)
	}

	result := &Result{Outcome: domain.OutcomeFailed, TranscriptPath: transcriptPath}

	// Finalize no matter which branch or interrupt ends the session. The
	// session context may already be canceled here, so the finalize gets
	// its own bounded one. Losing ts_end is worse than losing a
	// diagnostic, so a finalize failure is logged, never propagated.
	defer func() {
		fctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		if ferr := c.Repo.CloseAccessLog(fctx, logID); ferr != nil {
			logger.Error("failed to finalize audit record", "log_id", logID, "error", ferr)
		}
		logger.Info("session closed",
			"username", acc.Username,
			"container", containerName,
			"outcome", result.Outcome,
			"state", state,
			"transcript", transcriptPath,
		)
	}()
	defer c.tightenTranscript(transcriptPath, logger)

	state = domain.StateAttached

	fmt.Fprintf(c.Out, "Starting session. Transcript: %s\n", transcriptPath)
	fmt.Fprintln(c.Out, "Type 'exit' or Ctrl-D to finish the session.")

	state = domain.StateRecording
	code, err := c.attachAndRecord(ctx, containerName, transcriptPath)
	state = domain.StateClosed

	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(c.Out, "\nSession interrupted.")
		result.Outcome = domain.OutcomeInterrupted
		return result, nil
	case err != nil:
		return result, err
	default:
		result.Outcome = domain.OutcomeCompleted
		result.ExitCode = code
		fmt.Fprintf(c.Out, "Session finished. Transcript saved to: %s\n", transcriptPath)
		return result, nil
	}
}

func (c *Controller) authenticate(ctx context.Context) (*domain.Account, error) {
	username, err := auth.PromptLine(c.In, "Username: ", c.Out)
	if err != nil {
		return nil, fmt.Errorf("read username: %w", err)
	}
	password, err := c.PromptPassword("Password: ", c.Out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return c.Creds.Verify(ctx, username, password)
}

// authorize grants entry when the caller is an admin or owns the container.
// An unclaimed container is offered as an explicit opt-in claim; losing the
// claim race is a conflict, not a standing denial.
func (c *Controller) authorize(ctx context.Context, acc *domain.Account, containerName string) error {
	ownership, err := c.Repo.Owner(ctx, containerName)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	if ownership == nil || !ownership.Claimed() {
		fmt.Fprintln(c.Out, "Container is unclaimed.")
		answer, err := auth.PromptLine(c.In, "Claim container and become owner? (y/N): ", c.Out)
		if err != nil {
			return fmt.Errorf("read claim answer: %w", err)
		}
		if !strings.EqualFold(answer, "y") {
			fmt.Fprintln(c.Out, "Not claiming. Aborting.")
			return fmt.Errorf("%w: container unclaimed and claim declined", domain.ErrNotOwner)
		}

		claimed, current, err := c.Repo.ClaimOrVerify(ctx, containerName, acc.Username)
		if err != nil {
			return fmt.Errorf("claim container: %w", err)
		}
		if !claimed {
			fmt.Fprintf(c.Out, "Could not claim container. Owner: %s\n", current)
			return fmt.Errorf("%w: owner is %s", domain.ErrClaimConflict, current)
		}
		fmt.Fprintf(c.Out, "Claim successful. You are now owner of %s\n", containerName)
		return nil
	}

	if acc.IsAdmin() || acc.Username == ownership.Owner {
		return nil
	}
	fmt.Fprintf(c.Out, "Access denied. Owner: %s. Your role: %s\n", ownership.Owner, acc.Role)
	return fmt.Errorf("%w: owner is %s", domain.ErrNotOwner, ownership.Owner)
}

// attachAndRecord tries each shell candidate in order until one starts
// inside the container. Exit codes 126 and 127 mean the shell itself never
// ran; any other code is the session's real result.
func (c *Controller) attachAndRecord(ctx context.Context, containerName, transcriptPath string) (int, error) {
	for _, shell := range c.Shells {
		argv := []string{dockerBin, "exec", "-it", containerName, shell}
		code, err := c.Recorder.Record(ctx, argv, transcriptPath)
		if err != nil {
			return code, fmt.Errorf("record session: %w", err)
		}
		if code == exitShellMissing || code == exitShellNoEntry {
			continue
		}
		return code, nil
	}
	return -1, fmt.Errorf("%w: tried %s", domain.ErrNoWorkingShell, strings.Join(c.Shells, ", "))
}

// tightenTranscript restricts the transcript to owner-only read/write once
// the channel has closed.
func (c *Controller) tightenTranscript(path string, logger *slog.Logger) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := os.Chmod(path, transcriptPerm); err != nil {
		logger.Warn("failed to tighten transcript permissions", "path", path, "error", err)
	}
}
