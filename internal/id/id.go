// Package id generates identifiers for loaded snapshots.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// snapshotAlphabet avoids '-' and '_' so IDs stay readable in file names and logs.
const snapshotAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "snap-x3k9q0vz1m2b7c4d").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(snapshotAlphabet, 16)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Snapshot returns a new snapshot load ID.
func Snapshot() (string, error) {
	return Generate("snap")
}
