package inkwell_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkwell/internal/fs"
	"inkwell/internal/inkwell"
	"inkwell/internal/lock"
	"inkwell/internal/testutil"
)

type harness struct {
	src    string
	dest   string
	clock  *testutil.StubClock
	syncer *testutil.LinkingSyncer
	svc    *inkwell.Service
}

func newHarness(t *testing.T, opts inkwell.Options) *harness {
	t.Helper()

	root := t.TempDir()
	h := &harness{
		src:    filepath.Join(root, "docs"),
		dest:   filepath.Join(root, "backup"),
		clock:  testutil.NewStubClock(time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)),
		syncer: testutil.NewLinkingSyncer(),
	}
	testutil.WriteTree(t, h.src, map[string]string{
		".inkwellignore":   "*.tmp\ncache/\n",
		"notes.txt":        "notes v1",
		"photos/a.jpg":     "jpeg bytes",
		"photos/b.jpg":     "more jpeg bytes",
		"scratch.tmp":      "scratch",
		"cache/blob":       "cached",
		"projects/readme":  "readme",
		"projects/go.mod":  "module x",
		"projects/old.txt": "to be removed",
	})

	h.svc = inkwell.NewService(
		fs.NewOSFilesystemManager(),
		h.syncer,
		lock.NewFileLocker(),
		testutil.NewTestDatabase(t),
		inkwell.NewNopLogger(),
		h.clock,
		testutil.NewStubIDGenerator(),
		opts,
	)
	return h
}

func (h *harness) backup(t *testing.T) inkwell.BackupRun {
	t.Helper()
	run, err := h.svc.Backup(context.Background(), "run", h.src, h.dest)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	h.clock.Advance(time.Hour)
	return run
}

func readCurrent(t *testing.T, dest string) string {
	t.Helper()
	target, err := os.Readlink(filepath.Join(dest, inkwell.CurrentLinkName))
	if err != nil {
		t.Fatalf("reading current link: %v", err)
	}
	return target
}

func sameFile(t *testing.T, a, b string) bool {
	t.Helper()
	ai, err := os.Stat(a)
	if err != nil {
		t.Fatal(err)
	}
	bi, err := os.Stat(b)
	if err != nil {
		t.Fatal(err)
	}
	return os.SameFile(ai, bi)
}

func assertStepError(t *testing.T, err error, step string, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("Backup() error = %v, want %v", err, target)
	}
	var stepErr *inkwell.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Backup() error = %T, want *inkwell.StepError", err)
	}
	if stepErr.Step != step {
		t.Errorf("failed step = %q, want %q", stepErr.Step, step)
	}
}

func TestService_Backup_FirstRun(t *testing.T) {
	h := newHarness(t, inkwell.Options{})

	run := h.backup(t)

	wantName := "back-2026-03-14.12-30-00"
	if run.SnapshotName() != wantName {
		t.Errorf("SnapshotName() = %q, want %q", run.SnapshotName(), wantName)
	}
	if run.FinalPath != filepath.Join(h.dest, wantName) {
		t.Errorf("FinalPath = %q", run.FinalPath)
	}
	if run.Reference != "" {
		t.Errorf("Reference = %q, want none on first run", run.Reference)
	}
	if run.Ignore.Path != filepath.Join(h.src, ".inkwellignore") {
		t.Errorf("Ignore.Path = %q", run.Ignore.Path)
	}

	snap := run.FinalPath
	if got := testutil.ReadFile(t, snap, "photos/a.jpg"); got != "jpeg bytes" {
		t.Errorf("photos/a.jpg = %q", got)
	}
	for _, excluded := range []string{"scratch.tmp", "cache"} {
		if _, err := os.Lstat(filepath.Join(snap, excluded)); !os.IsNotExist(err) {
			t.Errorf("excluded path %s present in snapshot", excluded)
		}
	}

	if got := readCurrent(t, h.dest); got != wantName {
		t.Errorf("current -> %q, want %q", got, wantName)
	}

	snapshots, _ := inkwell.ListSnapshots(h.dest)
	if len(snapshots) != 1 {
		t.Errorf("ListSnapshots() = %v, want one snapshot", snapshots)
	}
	staging, _ := inkwell.ListStaging(h.dest)
	if len(staging) != 0 {
		t.Errorf("staging left behind after commit: %v", staging)
	}

	calls := h.syncer.Calls()
	if len(calls) != 1 || calls[0].LinkDest != "" {
		t.Errorf("sync calls = %+v, want one without link-dest", calls)
	}
	if calls[0].Destination != filepath.Join(h.dest, "incomplete-"+wantName) {
		t.Errorf("sync destination = %q", calls[0].Destination)
	}
}

func TestService_Backup_SecondRunSharesUnchangedFiles(t *testing.T) {
	h := newHarness(t, inkwell.Options{})

	first := h.backup(t)

	testutil.WriteTree(t, h.src, map[string]string{"notes.txt": "notes v2, longer"})
	testutil.Touch(t, h.src, "notes.txt", time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC))
	if err := os.Remove(filepath.Join(h.src, "projects", "old.txt")); err != nil {
		t.Fatal(err)
	}

	second := h.backup(t)

	if second.Reference != first.SnapshotName() {
		t.Errorf("Reference = %q, want %q", second.Reference, first.SnapshotName())
	}
	calls := h.syncer.Calls()
	if calls[1].LinkDest != first.FinalPath {
		t.Errorf("LinkDest = %q, want %q", calls[1].LinkDest, first.FinalPath)
	}

	if !sameFile(t, filepath.Join(first.FinalPath, "photos", "b.jpg"), filepath.Join(second.FinalPath, "photos", "b.jpg")) {
		t.Error("unchanged file is not shared with the previous snapshot")
	}
	if sameFile(t, filepath.Join(first.FinalPath, "notes.txt"), filepath.Join(second.FinalPath, "notes.txt")) {
		t.Error("changed file is shared with the previous snapshot")
	}
	if got := testutil.ReadFile(t, first.FinalPath, "notes.txt"); got != "notes v1" {
		t.Errorf("previous snapshot modified: notes.txt = %q", got)
	}
	if got := testutil.ReadFile(t, second.FinalPath, "notes.txt"); got != "notes v2, longer" {
		t.Errorf("notes.txt = %q", got)
	}
	if _, err := os.Lstat(filepath.Join(second.FinalPath, "projects", "old.txt")); !os.IsNotExist(err) {
		t.Error("file deleted from source is present in new snapshot")
	}

	if got := readCurrent(t, h.dest); got != second.SnapshotName() {
		t.Errorf("current -> %q, want %q", got, second.SnapshotName())
	}
}

func TestService_Backup_ReferenceIsLatestAcrossNoon(t *testing.T) {
	h := newHarness(t, inkwell.Options{})

	// Snapshots from 12:30 and 13:00 exist; 13:00 is the newer one.
	for _, name := range []string{"back-2026-03-14.13-00-00", "back-2026-03-14.12-30-00"} {
		if err := os.MkdirAll(filepath.Join(h.dest, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	h.clock.Advance(2 * time.Hour)

	run, err := h.svc.Backup(context.Background(), "run", h.src, h.dest)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if run.Reference != "back-2026-03-14.13-00-00" {
		t.Errorf("Reference = %q, want the 13:00 snapshot", run.Reference)
	}
}

func TestService_Backup_InvalidSource(t *testing.T) {
	h := newHarness(t, inkwell.Options{})

	t.Run("missing", func(t *testing.T) {
		_, err := h.svc.Backup(context.Background(), "run", filepath.Join(h.src, "absent"), h.dest)
		assertStepError(t, err, inkwell.StepValidateSource, inkwell.ErrNotADirectory)
	})

	t.Run("regular file", func(t *testing.T) {
		_, err := h.svc.Backup(context.Background(), "run", filepath.Join(h.src, "notes.txt"), h.dest)
		assertStepError(t, err, inkwell.StepValidateSource, inkwell.ErrNotADirectory)
	})

	if _, err := os.Stat(h.dest); !os.IsNotExist(err) {
		t.Error("destination created for an invalid source")
	}
}

func TestService_Backup_IgnorePolicyNotFound(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddDirectory("/data/photos")
	dest := filepath.Join(t.TempDir(), "backup")

	svc := inkwell.NewService(
		fsmgr,
		testutil.NewLinkingSyncer(),
		testutil.NewMemoryLocker(),
		nil,
		inkwell.NewNopLogger(),
		testutil.FixedClock(),
		testutil.NewStubIDGenerator(),
		inkwell.Options{},
	)

	_, err := svc.Backup(context.Background(), "run", "/data/photos", dest)
	assertStepError(t, err, inkwell.StepResolveIgnore, inkwell.ErrIgnorePolicyNotFound)

	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination created although no ignore policy was found")
	}
}

func TestService_Backup_SyncFailure(t *testing.T) {
	h := newHarness(t, inkwell.Options{})
	first := h.backup(t)

	h.syncer.Err = errors.New("no space left on device")
	_, err := h.svc.Backup(context.Background(), "run", h.src, h.dest)
	assertStepError(t, err, inkwell.StepStage, inkwell.ErrSyncFailed)

	snapshots, _ := inkwell.ListSnapshots(h.dest)
	if len(snapshots) != 1 || snapshots[0] != first.SnapshotName() {
		t.Errorf("history changed by failed run: %v", snapshots)
	}
	if got := readCurrent(t, h.dest); got != first.SnapshotName() {
		t.Errorf("current -> %q, want %q", got, first.SnapshotName())
	}
	staging, _ := inkwell.ListStaging(h.dest)
	if len(staging) != 1 {
		t.Errorf("ListStaging() = %v, want the failed run's staging directory", staging)
	}

	// The next run ignores the leftover and still links against the last commit.
	h.syncer.Err = nil
	h.clock.Advance(time.Hour)
	third := h.backup(t)
	if third.Reference != first.SnapshotName() {
		t.Errorf("Reference = %q, want %q", third.Reference, first.SnapshotName())
	}
}

func TestService_Backup_SnapshotAlreadyExists(t *testing.T) {
	h := newHarness(t, inkwell.Options{})
	first, err := h.svc.Backup(context.Background(), "run", h.src, h.dest)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	// Same clock reading: the run is refused before anything is copied.
	_, err = h.svc.Backup(context.Background(), "run", h.src, h.dest)
	assertStepError(t, err, inkwell.StepStage, inkwell.ErrCommitFailed)

	if calls := len(h.syncer.Calls()); calls != 1 {
		t.Errorf("sync calls = %d, want 1", calls)
	}
	if got := readCurrent(t, h.dest); got != first.SnapshotName() {
		t.Errorf("current -> %q, want %q", got, first.SnapshotName())
	}
	staging, _ := inkwell.ListStaging(h.dest)
	if len(staging) != 0 {
		t.Errorf("ListStaging() = %v, want no leftovers", staging)
	}
}

func TestService_Backup_ReferenceWithoutTimestamp(t *testing.T) {
	h := newHarness(t, inkwell.Options{})
	first := h.backup(t)

	// A hand-made directory that sorts after every timestamped name.
	manual := filepath.Join(h.dest, "back-manual")
	if err := os.Mkdir(manual, 0755); err != nil {
		t.Fatal(err)
	}

	run := h.backup(t)
	if run.Reference != "back-manual" {
		t.Errorf("Reference = %q, want back-manual", run.Reference)
	}
	if run.SnapshotName() == first.SnapshotName() {
		t.Fatal("second run reused the first snapshot name")
	}
	if got := readCurrent(t, h.dest); got != run.SnapshotName() {
		t.Errorf("current -> %q, want %q", got, run.SnapshotName())
	}
}

func TestService_Backup_ReleasesLock(t *testing.T) {
	h := newHarness(t, inkwell.Options{})
	locker := testutil.NewMemoryLocker()
	svc := inkwell.NewService(fs.NewOSFilesystemManager(), h.syncer, locker, nil,
		inkwell.NewNopLogger(), h.clock, testutil.NewStubIDGenerator(), inkwell.Options{})

	if _, err := svc.Backup(context.Background(), "ok", h.src, h.dest); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if locker.Held(h.dest) {
		t.Error("destination still locked after a successful run")
	}

	h.syncer.Err = errors.New("disk full")
	h.clock.Advance(time.Hour)
	if _, err := svc.Backup(context.Background(), "fail", h.src, h.dest); err == nil {
		t.Fatal("Backup() expected error")
	}
	if locker.Held(h.dest) {
		t.Error("destination still locked after a failed run")
	}
}

func TestService_Backup_LeftoverStagingWithSameName(t *testing.T) {
	h := newHarness(t, inkwell.Options{})
	leftover := filepath.Join(h.dest, "incomplete-back-2026-03-14.12-30-00")
	if err := os.MkdirAll(leftover, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := h.svc.Backup(context.Background(), "run", h.src, h.dest)
	assertStepError(t, err, inkwell.StepStage, inkwell.ErrSyncFailed)

	if len(h.syncer.Calls()) != 0 {
		t.Error("sync ran into an existing staging directory")
	}
}

func TestService_Backup_DestinationLocked(t *testing.T) {
	h := newHarness(t, inkwell.Options{})
	if err := os.MkdirAll(h.dest, 0755); err != nil {
		t.Fatal(err)
	}

	held, err := lock.NewFileLocker().TryLock(h.dest)
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}

	_, err = h.svc.Backup(context.Background(), "run", h.src, h.dest)
	assertStepError(t, err, inkwell.StepAcquireLock, inkwell.ErrDestinationLocked)
	if len(h.syncer.Calls()) != 0 {
		t.Error("sync ran without the destination lock")
	}

	if err := held.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	h.backup(t)

	// The run released its lock on the way out.
	again, err := lock.NewFileLocker().TryLock(h.dest)
	if err != nil {
		t.Fatalf("lock still held after backup: %v", err)
	}
	again.Release()
}

func TestService_Backup_Cancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		h := newHarness(t, inkwell.Options{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.svc.Backup(ctx, "run", h.src, h.dest)
		assertStepError(t, err, inkwell.StepValidateSource, context.Canceled)
		if _, err := os.Stat(h.dest); !os.IsNotExist(err) {
			t.Error("destination created by a cancelled run")
		}
	})

	t.Run("during sync", func(t *testing.T) {
		root := t.TempDir()
		src := filepath.Join(root, "src")
		dest := filepath.Join(root, "dest")
		testutil.WriteTree(t, src, map[string]string{".inkwellignore": "", "a": "a"})

		ctx, cancel := context.WithCancel(context.Background())
		syncer := testutil.SyncFunc(func(ctx context.Context, req inkwell.SyncRequest) error {
			if err := os.MkdirAll(req.Destination, 0755); err != nil {
				return err
			}
			cancel()
			return ctx.Err()
		})

		svc := inkwell.NewService(fs.NewOSFilesystemManager(), syncer, lock.NewFileLocker(), nil,
			inkwell.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator(), inkwell.Options{})

		_, err := svc.Backup(ctx, "run", src, dest)
		assertStepError(t, err, inkwell.StepStage, inkwell.ErrSyncFailed)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled in chain", err)
		}

		snapshots, _ := inkwell.ListSnapshots(dest)
		if len(snapshots) != 0 {
			t.Errorf("cancelled run committed %v", snapshots)
		}
		if _, err := os.Lstat(filepath.Join(dest, inkwell.CurrentLinkName)); !os.IsNotExist(err) {
			t.Error("current created by a cancelled run")
		}
	})
}

func TestService_Backup_RepairsMissingCurrent(t *testing.T) {
	h := newHarness(t, inkwell.Options{})
	h.backup(t)

	if err := os.Remove(filepath.Join(h.dest, inkwell.CurrentLinkName)); err != nil {
		t.Fatal(err)
	}

	second := h.backup(t)
	if got := readCurrent(t, h.dest); got != second.SnapshotName() {
		t.Errorf("current -> %q, want %q", got, second.SnapshotName())
	}
}

func TestService_Backup_NestSourceBasename(t *testing.T) {
	t.Run("nests under the source name", func(t *testing.T) {
		h := newHarness(t, inkwell.Options{NestSourceBasename: true})
		run := h.backup(t)

		want := filepath.Join(h.dest, "docs")
		if run.Destination != want {
			t.Errorf("Destination = %q, want %q", run.Destination, want)
		}
		if got := readCurrent(t, want); got != run.SnapshotName() {
			t.Errorf("current -> %q", got)
		}
	})

	t.Run("does not double an existing suffix", func(t *testing.T) {
		h := newHarness(t, inkwell.Options{NestSourceBasename: true})
		dest := filepath.Join(h.dest, "docs")

		run, err := h.svc.Backup(context.Background(), "run", h.src, dest)
		if err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
		if run.Destination != dest {
			t.Errorf("Destination = %q, want %q", run.Destination, dest)
		}
	})
}

func TestService_Backup_CustomIgnoreFileName(t *testing.T) {
	h := newHarness(t, inkwell.Options{IgnoreFileName: ".backupignore"})
	testutil.WriteTree(t, h.src, map[string]string{".backupignore": "*.jpg\n"})

	run := h.backup(t)
	if run.Ignore.Path != filepath.Join(h.src, ".backupignore") {
		t.Errorf("Ignore.Path = %q", run.Ignore.Path)
	}
	if _, err := os.Lstat(filepath.Join(run.FinalPath, "photos", "a.jpg")); !os.IsNotExist(err) {
		t.Error("pattern from the custom ignore file was not applied")
	}
	if _, err := os.Lstat(filepath.Join(run.FinalPath, "scratch.tmp")); err != nil {
		t.Error("pattern from the default ignore file was applied")
	}
}

func TestService_ListDestination(t *testing.T) {
	h := newHarness(t, inkwell.Options{})

	empty, err := h.svc.ListDestination(h.dest)
	if err != nil {
		t.Fatalf("ListDestination() error = %v", err)
	}
	if len(empty.Snapshots) != 0 || empty.Current != "" || empty.Latest() != "" {
		t.Errorf("ListDestination() on missing dest = %+v", empty)
	}

	h.backup(t)
	second := h.backup(t)
	if err := os.Mkdir(filepath.Join(h.dest, "incomplete-back-2026-03-14.15-00-00"), 0755); err != nil {
		t.Fatal(err)
	}

	listing, err := h.svc.ListDestination(h.dest)
	if err != nil {
		t.Fatalf("ListDestination() error = %v", err)
	}
	if len(listing.Snapshots) != 2 {
		t.Errorf("Snapshots = %v, want 2", listing.Snapshots)
	}
	if listing.Latest() != second.SnapshotName() || listing.Current != second.SnapshotName() {
		t.Errorf("Latest = %q, Current = %q, want %q", listing.Latest(), listing.Current, second.SnapshotName())
	}
	if len(listing.Staging) != 1 {
		t.Errorf("Staging = %v, want 1", listing.Staging)
	}
}

func TestService_GetHistory(t *testing.T) {
	t.Run("reads the run store", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		svc := inkwell.NewService(testutil.NewMockFilesystemManager(), testutil.NewLinkingSyncer(),
			testutil.NewMemoryLocker(), db, inkwell.NewNopLogger(), testutil.FixedClock(),
			testutil.NewStubIDGenerator(), inkwell.Options{})

		if _, err := db.CreateRun("r1", "/src", "/dst", time.Now()); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}

		runs, err := svc.GetHistory(10)
		if err != nil {
			t.Fatalf("GetHistory() error = %v", err)
		}
		if len(runs) != 1 || runs[0].RunID != "r1" {
			t.Errorf("GetHistory() = %+v", runs)
		}
	})

	t.Run("without a store", func(t *testing.T) {
		svc := inkwell.NewService(testutil.NewMockFilesystemManager(), testutil.NewLinkingSyncer(),
			testutil.NewMemoryLocker(), nil, inkwell.NewNopLogger(), testutil.FixedClock(),
			testutil.NewStubIDGenerator(), inkwell.Options{})

		if _, err := svc.GetHistory(10); err == nil {
			t.Error("GetHistory() expected error without a store")
		}
		if _, err := svc.GetRun("r1"); err == nil {
			t.Error("GetRun() expected error without a store")
		}
	})
}

func TestService_GetRun(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	svc := inkwell.NewService(testutil.NewMockFilesystemManager(), testutil.NewLinkingSyncer(),
		testutil.NewMemoryLocker(), db, inkwell.NewNopLogger(), testutil.FixedClock(),
		testutil.NewStubIDGenerator(), inkwell.Options{})

	if _, err := db.CreateRun("r1", "/src", "/dst", time.Now()); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	t.Run("found", func(t *testing.T) {
		run, err := svc.GetRun("r1")
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if run.Source != "/src" || run.Status != inkwell.RunStatusRunning {
			t.Errorf("GetRun() = %+v", run)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := svc.GetRun("missing"); err == nil {
			t.Error("GetRun() expected error for an unknown run")
		}
	})
}
