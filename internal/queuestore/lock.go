package queuestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLocked is returned when another process already holds the queue lock.
var ErrLocked = errors.New("queue is locked by another process")

type lockOwner struct {
	PID       int    `json:"pid"`
	Hostname  string `json:"hostname"`
	CreatedAt string `json:"created_at"`
}

// Lock is an advisory single-writer lock over the queue directory. It relies
// on os.Mkdir being atomic on POSIX filesystems.
type Lock struct {
	dir      string
	released bool
}

// AcquireLock takes the writer lock for stateDir. Callers must Release it,
// including on signal-driven shutdown.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := Mkdir(stateDir); err != nil {
		return nil, err
	}
	dir := filepath.Join(stateDir, ".queue.lock")
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			owner := describeLockOwner(dir)
			if owner != "" {
				return nil, fmt.Errorf("%w (%s)", ErrLocked, owner)
			}
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("create lock %s: %w", dir, err)
	}

	hostname, _ := os.Hostname()
	owner := lockOwner{
		PID:       os.Getpid(),
		Hostname:  hostname,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := WriteJSON(filepath.Join(dir, "owner.json"), owner); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return &Lock{dir: dir}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	if err := os.RemoveAll(l.dir); err != nil {
		return fmt.Errorf("release lock %s: %w", l.dir, err)
	}
	return nil
}

func describeLockOwner(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "owner.json"))
	if err != nil {
		return ""
	}
	var owner lockOwner
	if err := json.Unmarshal(data, &owner); err != nil {
		return ""
	}
	return fmt.Sprintf("pid %d on %s since %s", owner.PID, owner.Hostname, owner.CreatedAt)
}
