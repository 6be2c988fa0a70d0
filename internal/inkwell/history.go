package inkwell

import (
	"fmt"
	"os"
	"sort"
)

// ListSnapshots returns the names of committed snapshots under dest, oldest
// first. Staging directories, the current link and any other entries are
// ignored. A missing destination has no history.
func ListSnapshots(dest string) ([]string, error) {
	return listDirs(dest, IsSnapshotName)
}

// ListStaging returns the names of leftover staging directories under dest.
func ListStaging(dest string) ([]string, error) {
	return listDirs(dest, IsStagingName)
}

// LatestSnapshot returns the greatest committed snapshot name under dest,
// or "" when nothing has been committed yet.
func LatestSnapshot(dest string) (string, error) {
	names, err := ListSnapshots(dest)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

func listDirs(dest string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading destination %s: %w", dest, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
