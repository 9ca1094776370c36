package container

import (
	"fmt"

	"github.com/ashureev/gatekeeper/internal/domain"
)

// ValidateName restricts container names to a safe character set before they
// are interpolated into any externally-executed command. Alphanumerics plus
// hyphen, underscore, dot and slash cover every legal Docker name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidContainerName)
	}
	for _, ch := range name {
		if !safeNameRune(ch) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidContainerName, name)
		}
	}
	return nil
}

func safeNameRune(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z':
		return true
	case ch >= 'A' && ch <= 'Z':
		return true
	case ch >= '0' && ch <= '9':
		return true
	case ch == '-' || ch == '_' || ch == '.' || ch == '/':
		return true
	}
	return false
}
