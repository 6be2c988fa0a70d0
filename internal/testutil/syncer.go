package testutil

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	ifs "inkwell/internal/fs"
	"inkwell/internal/inkwell"
)

// LinkingSyncer is an in-process stand-in for rsync. It mirrors the source
// into the destination, skipping excluded paths, and hard-links files from
// LinkDest whose size, mode and modification time are unchanged.
type LinkingSyncer struct {
	mu    sync.Mutex
	calls []inkwell.SyncRequest

	// Err, when set, is returned after the destination has been created and
	// before anything is copied.
	Err error
}

// NewLinkingSyncer creates a LinkingSyncer.
func NewLinkingSyncer() *LinkingSyncer {
	return &LinkingSyncer{}
}

// Calls returns the requests seen so far.
func (s *LinkingSyncer) Calls() []inkwell.SyncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inkwell.SyncRequest(nil), s.calls...)
}

func (s *LinkingSyncer) Sync(ctx context.Context, req inkwell.SyncRequest) error {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	lines, err := ifs.ParseIgnoreFile(req.ExcludeFile)
	if err != nil {
		return err
	}
	matcher := newIgnoreMatcher(lines)

	if err := os.MkdirAll(req.Destination, 0755); err != nil {
		return err
	}
	if s.Err != nil {
		return s.Err
	}

	return filepath.WalkDir(req.Source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(req.Source, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if matcher.match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(req.Destination, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			if req.LinkDest != "" && unchanged(filepath.Join(req.LinkDest, rel), info) {
				return os.Link(filepath.Join(req.LinkDest, rel), target)
			}
			return copyFile(path, target, info)
		default:
			return fmt.Errorf("unsupported file type: %s", path)
		}
	})
}

func unchanged(refPath string, info fs.FileInfo) bool {
	ref, err := os.Lstat(refPath)
	if err != nil || !ref.Mode().IsRegular() {
		return false
	}
	return ref.Size() == info.Size() &&
		ref.Mode() == info.Mode() &&
		ref.ModTime().Equal(info.ModTime())
}

func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// SyncFunc adapts a function to the inkwell.Syncer interface.
type SyncFunc func(ctx context.Context, req inkwell.SyncRequest) error

func (f SyncFunc) Sync(ctx context.Context, req inkwell.SyncRequest) error {
	return f(ctx, req)
}

var (
	_ inkwell.Syncer = (*LinkingSyncer)(nil)
	_ inkwell.Syncer = SyncFunc(nil)
)
