package snapshot

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/listenupapp/library-report/internal/errors"
	"github.com/listenupapp/library-report/internal/itunes"
)

// backupLayout is the name format of a Time Machine backup directory,
// without its ".backup" suffix.
const backupLayout = "2006-01-02-150405"

const backupSuffix = ".backup"

// VolumeNames are the names a backed-up system volume can have inside a
// backup, APFS layout first.
var VolumeNames = []string{"Data", "Macintosh HD - Data", "Macintosh HD"}

// Backup is one Time Machine backup.
type Backup struct {
	Date time.Time
	Path string
}

// FindBackups lists the backups under a Time Machine volume
// (".../.timemachine/<UUID>"), oldest first. APFS backups nest a directory
// of the same name inside the dated one; Path points at the inner directory
// when it exists. Entries that are not dated backups are ignored.
func FindBackups(volume string) ([]Backup, error) {
	entries, err := os.ReadDir(volume)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("backup volume not found: %s", volume)
		}
		return nil, errors.Wrapf(err, errors.CodeInternal, "read backup volume %s", volume)
	}

	var backups []Backup
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		date, err := time.ParseInLocation(backupLayout, strings.TrimSuffix(name, backupSuffix), time.Local)
		if err != nil {
			continue
		}

		path := filepath.Join(volume, name)
		if info, err := os.Stat(filepath.Join(path, name)); err == nil && info.IsDir() {
			path = filepath.Join(path, name)
		}
		backups = append(backups, Backup{Date: date, Path: path})
	}

	slices.SortFunc(backups, func(a, b Backup) int {
		return a.Date.Compare(b.Date)
	})
	return backups, nil
}

// FindLibraryFile looks for user's library export inside a backup and
// returns the first match.
func FindLibraryFile(backupPath, user string) (string, bool) {
	for _, volume := range VolumeNames {
		home := filepath.Join(backupPath, volume, "Users", user)
		for _, candidate := range itunes.DefaultLibraryPaths(home) {
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, true
			}
		}
	}
	return "", false
}
