package inkwell

import (
	"fmt"
	"os"
)

// CommitSnapshot promotes a staging directory to its committed name with a
// single rename. Until the rename completes the snapshot is invisible to
// ListSnapshots; afterwards it is fully visible. On failure the staging
// directory is left where it is.
func CommitSnapshot(stagingPath, finalPath string) error {
	info, err := os.Stat(stagingPath)
	if err != nil {
		return fmt.Errorf("%w: staging directory: %w", ErrCommitFailed, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: staging path is not a directory: %s", ErrCommitFailed, stagingPath)
	}

	// rename(2) silently replaces an empty directory, so check first.
	if _, err := os.Lstat(finalPath); err == nil {
		return fmt.Errorf("%w: snapshot already exists: %s", ErrCommitFailed, finalPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: checking %s: %w", ErrCommitFailed, finalPath, err)
	}

	if err := os.Rename(stagingPath, finalPath); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	return nil
}
