package store

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// IsBusyError checks if the error is a SQLITE_BUSY error.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsLockedError checks if the error is a "database is locked" error.
func IsLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsConflictError reports either form of SQLite lock contention. Both warrant a retry.
func IsConflictError(err error) bool {
	return IsBusyError(err) || IsLockedError(err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const (
	writeMaxAttempts = 3
	writeBaseDelay   = 50 * time.Millisecond
)

// withRetry runs fn, retrying lock contention with exponential backoff: 50ms, 100ms.
func withRetry(ctx context.Context, logger zerolog.Logger, op string, fn func() error) error {
	var err error
	for i := 0; i < writeMaxAttempts; i++ {
		err = fn()
		if err == nil || !IsConflictError(err) {
			return err
		}
		if i == writeMaxAttempts-1 {
			break
		}
		delay := writeBaseDelay * time.Duration(1<<i)
		logger.Debug().
			Str("op", op).
			Int("attempt", i+1).
			Dur("delay", delay).
			Msg("sqlite busy, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
