package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// ScriptRecorder records through the script(1) helper, which allocates the
// pty and writes the transcript itself. Argv values must already be
// restricted to the safe character set because script runs the command line
// through a shell.
type ScriptRecorder struct {
	scriptPath string
	logger     *slog.Logger
}

// Name identifies the backend.
func (r *ScriptRecorder) Name() string { return "script" }

// Record runs argv under script(1), streaming the session to the caller's
// terminal and the transcript simultaneously.
func (r *ScriptRecorder) Record(ctx context.Context, argv []string, transcriptPath string) (int, error) {
	cmd := exec.CommandContext(ctx, r.scriptPath, "-q", transcriptPath, "-c", strings.Join(argv, " "))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	r.logger.Debug("starting script recorder", "argv", argv, "transcript", transcriptPath)

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start script helper: %w", err)
	}
	code, err := exitCode(cmd.Wait())
	if err != nil {
		return -1, fmt.Errorf("wait for script helper: %w", err)
	}
	return code, nil
}
