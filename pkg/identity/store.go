// Package identity persists the single user identifier issued at signup.
//
// Store never reports an error: identity lookup runs on every launch and a
// broken backend must look like a fresh install rather than stop the boot.
package identity

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
)

// Key is the well-known key the identifier is stored under.
const Key = "ic19_user_id"

// Store saves, reads and clears the user identifier.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore wraps backend.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Save persists id. Failures are logged and dropped.
func (s *Store) Save(id commute.UserID) {
	if err := s.backend.Set(Key, strconv.FormatInt(int64(id), 10)); err != nil {
		s.logger.Warn("failed to save user id", "error", err)
	}
}

// Get returns the stored identifier, or false when none is usable.
func (s *Store) Get() (commute.UserID, bool) {
	raw, err := s.backend.Get(Key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to read user id", "error", err)
		}
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		s.logger.Debug("ignoring stored user id", "value", raw)
		return 0, false
	}
	return commute.UserID(n), true
}

// Clear removes the identifier. Failures are logged and dropped.
func (s *Store) Clear() {
	if err := s.backend.Delete(Key); err != nil {
		s.logger.Warn("failed to clear user id", "error", err)
	}
}
