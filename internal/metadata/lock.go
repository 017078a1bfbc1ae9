package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute

	lockExt = ".lock"
)

// ErrLockExists is returned when another process holds the lock for the
// same repository.
var ErrLockExists = errors.New("lock exists: another operation on this repository may be in progress")

// Lock is an exclusive per-repository lock file.
type Lock struct {
	path  string
	token string
	file  *os.File
}

// Lock acquires the lock for id. Locks older than StaleLockThreshold are
// taken over.
func (s *Store) Lock(ctx context.Context, id release.Identity) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(s.dir, id.Key()+lockExt)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, fileMode)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if stale, _ := isLockStale(lockPath); !stale {
			return nil, fmt.Errorf("%s: %w", id, ErrLockExists)
		}
		s.logger.Warn("removing stale lock", "path", lockPath)
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, fileMode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, ErrLockExists)
		}
	}

	token := uuid.NewString()
	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\ntoken=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339), token)
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, token: token, file: file}, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}
	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > StaleLockThreshold, nil
}
