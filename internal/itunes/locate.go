package itunes

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/listenupapp/library-report/internal/errors"
)

// LibraryRelPaths are the places the Music app and iTunes write their XML
// export, relative to a user's home directory, newest layout first.
var LibraryRelPaths = []string{
	filepath.Join("Music", "Music", "Music Library.xml"),
	filepath.Join("Music", "iTunes", "iTunes Music Library.xml"),
	filepath.Join("Music", "iTunes", "iTunes Library.xml"),
}

// DefaultLibraryPaths returns the candidate export locations under home.
func DefaultLibraryPaths(home string) []string {
	paths := make([]string, 0, len(LibraryRelPaths))
	for _, rel := range LibraryRelPaths {
		paths = append(paths, filepath.Join(home, rel))
	}
	return paths
}

// LocateLibrary returns the first candidate under home that is a regular file.
func LocateLibrary(home string) (string, error) {
	candidates := DefaultLibraryPaths(home)
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", errors.CatalogUnavailablef(
		"no library export found (looked in %s)", strings.Join(candidates, ", "),
	)
}
