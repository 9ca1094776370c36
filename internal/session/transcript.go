package session

import (
	"fmt"
	"path/filepath"
	"time"
)

// TranscriptPath builds the per-session transcript path:
// <sanitized container>_<sanitized user>_<UTC timestamp>.log under dir.
func TranscriptPath(dir, containerName, username string, now time.Time) string {
	safe := sanitizeFileComponent(containerName + "_" + username)
	name := fmt.Sprintf("%s_%s.log", safe, now.UTC().Format("20060102150405"))
	return filepath.Join(dir, name)
}

// sanitizeFileComponent replaces anything outside [A-Za-z0-9-_.] with an
// underscore so container names with slashes cannot escape the log
// directory.
func sanitizeFileComponent(s string) string {
	out := []rune(s)
	for i, ch := range out {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_' || ch == '.':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
