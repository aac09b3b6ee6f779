package queuestore

import (
	"errors"
	"testing"
)

func TestAcquireLock_BlocksConcurrentAcquire(t *testing.T) {
	stateDir := t.TempDir()

	lock, err := AcquireLock(stateDir)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	if _, err := AcquireLock(stateDir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked on second acquire, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}

	lock2, err := AcquireLock(stateDir)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}

func TestRelease_IsIdempotent(t *testing.T) {
	lock, err := AcquireLock(t.TempDir())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}
