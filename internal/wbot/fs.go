package wbot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/DFN-master/izing-main/internal/logging"
)

// FSManager owns the on-disk authentication caches under a fixed root, one
// directory per session identifier.
type FSManager struct {
	root string
	log  zerolog.Logger
}

// NewFSManager creates a manager rooted at dir.
func NewFSManager(dir string) *FSManager {
	return &FSManager{
		root: dir,
		log:  logging.ForComponent("wbot.fs"),
	}
}

// CachePath returns the auth-cache directory for a session identifier.
func (f *FSManager) CachePath(id int) string {
	return filepath.Join(f.root, fmt.Sprintf("session-%s", ClientID(id)))
}

// PurgeAuthCache removes a session's auth-cache directory, recursively and
// forcefully. Best effort: a missing directory or a failed delete is logged
// and swallowed, so a stale cache never blocks re-pairing and a bad delete
// never crashes the supervisor.
func (f *FSManager) PurgeAuthCache(id int) {
	path := f.CachePath(id)
	if err := os.RemoveAll(path); err != nil {
		f.log.Error().Err(err).Str("path", path).Msg("auth cache purge failed")
		return
	}
	f.log.Info().Str("path", path).Msg("auth cache purged")
}
