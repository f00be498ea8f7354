package filelock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestTryLockSecondAcquisitionFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.lock")

	unlock, err := TryLock(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := TryLock(path); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked while held, got %v", err)
	}

	if err := unlock(); err != nil {
		t.Fatal(err)
	}

	unlock2, err := TryLock(path)
	if err != nil {
		t.Fatalf("lock should be reacquirable after release: %v", err)
	}
	_ = unlock2()
}

func TestTryLockCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.lock")
	unlock, err := TryLock(path)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()
}
