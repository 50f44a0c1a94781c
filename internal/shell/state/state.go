// Package state owns the on-disk deployment state: the directories the
// service needs and the deployed compose definition. The filesystem is the
// single source of truth between invocations - nothing here is cached.
package state

import (
	"bytes"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// ComposeFileName is the deployed definition's file name.
const ComposeFileName = "docker-compose.yml"

// dirMode is applied to every managed directory.
const dirMode = 0o755

// Dirs lists the directories the dispatcher bootstraps before any engine
// interaction.
type Dirs struct {
	// State holds runtime state (the history database lives here).
	State string
	// Models holds downloaded model weights, bind-mounted into the container.
	Models string
	// Compose holds the deployed definition file.
	Compose string
}

// DefaultDirs derives the standard layout under a single data directory.
func DefaultDirs(dataDir string) Dirs {
	return Dirs{
		State:   dataDir,
		Models:  filepath.Join(dataDir, "models"),
		Compose: filepath.Join(dataDir, "compose"),
	}
}

// ComposeFile returns the deployed definition path.
func (d Dirs) ComposeFile() string {
	return filepath.Join(d.Compose, ComposeFileName)
}

// =============================================================================
// Directory Bootstrap
// =============================================================================

// EnsureDirs idempotently creates the managed directories. When running as
// root and owner names an existing account, ownership is handed to it;
// otherwise the directories stay with the invoking user.
func EnsureDirs(d Dirs, owner string) error {
	var chown func(path string) error
	if owner != "" && os.Geteuid() == 0 {
		account, err := user.Lookup(owner)
		if err != nil {
			return NewStateError("EnsureDirs", "", fmt.Sprintf("lookup account %q: %v", owner, err), ErrOwnerUnknown)
		}
		uid, _ := strconv.Atoi(account.Uid)
		gid, _ := strconv.Atoi(account.Gid)
		chown = func(path string) error { return os.Chown(path, uid, gid) }
	}

	for _, dir := range []string{d.State, d.Models, d.Compose} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return NewStateError("EnsureDirs", dir, err.Error(), ErrDirCreateFailed)
		}
		if chown != nil {
			if err := chown(dir); err != nil {
				return NewStateError("EnsureDirs", dir, err.Error(), ErrDirCreateFailed)
			}
		}
	}
	return nil
}

// =============================================================================
// Idempotent Definition Sync
// =============================================================================

// Deployed reports whether a definition has ever been synced to path.
func Deployed(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SyncFile writes content to path only when the file is absent or differs
// byte-for-byte, and reports whether a write happened. The replace is atomic:
// content lands in a uniquely named temp file in the same directory, then
// renames over the target. Repeated invocations with unchanged content never
// touch the deployed file.
func SyncFile(path string, content []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, content) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, NewStateError("SyncFile", path, err.Error(), ErrSyncFailed)
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return false, NewStateError("SyncFile", tmp, err.Error(), ErrSyncFailed)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, NewStateError("SyncFile", path, err.Error(), ErrSyncFailed)
	}
	return true, nil
}
