// Package recorder captures interactive sessions byte-for-byte. Two
// interchangeable backends exist: the script(1) helper when present on the
// host, and a manual pty-and-tee fallback otherwise. Both produce the same
// transcript semantics and the same exit-status contract.
package recorder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Recorder runs a command attached to the caller's terminal while writing
// every byte shown to the user into the transcript file as it flows.
type Recorder interface {
	// Record runs argv interactively and returns the command's exit code.
	// The transcript file is created (or truncated) at transcriptPath.
	Record(ctx context.Context, argv []string, transcriptPath string) (int, error)

	// Name identifies the backend for logging.
	Name() string
}

// Detect probes the host for the script(1) helper and returns the matching
// backend.
func Detect(logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if path, err := exec.LookPath("script"); err == nil {
		logger.Debug("using script recorder", "script_path", path)
		return &ScriptRecorder{scriptPath: path, logger: logger}
	}
	logger.Debug("script helper not found, using pty recorder")
	return &PTYRecorder{logger: logger}
}

// exitCode maps a Wait error to the command's exit code. A non-exit error is
// passed through.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return -1, err
}

// Tee copies src to dst, duplicating every chunk into transcript in arrival
// order before the next read, so the transcript reproduces exactly what the
// user saw.
func Tee(dst, transcript io.Writer, src io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			if _, werr := transcript.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, unix.EIO) {
				// A pty master returns EIO once the child side
				// closes; that is the normal end of session.
				return nil
			}
			return rerr
		}
	}
}
