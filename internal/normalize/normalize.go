// Package normalize cleans up strings read from library exports.
//
// macOS writes names and paths in decomposed form (NFD); everything that
// leaves this package is NFC so it prints and compares the same way on
// every platform.
package normalize

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Text returns s in NFC with surrounding whitespace removed.
func Text(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// OptionalText normalizes s and returns nil when nothing is left.
func OptionalText(s string) *string {
	s = Text(s)
	if s == "" {
		return nil
	}
	return &s
}

// FileURLPath converts a library location such as
// "file://localhost/Users/me/Music/iTunes%20Media/" into a clean local path.
// Plain paths are passed through (cleaned and normalized).
func FileURLPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	if !strings.HasPrefix(strings.ToLower(raw), "file:") {
		return filepath.Clean(norm.NFC.String(raw)), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse location %q: %w", raw, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("location %q is not on this machine", raw)
	}
	if u.Path == "" {
		return "", fmt.Errorf("location %q has no path", raw)
	}

	return filepath.Clean(norm.NFC.String(u.Path)), nil
}
