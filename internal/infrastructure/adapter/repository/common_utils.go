package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateKey reports whether err is a unique-constraint rejection. The
// idempotency design leans on these: the (user_id, currency) wallet index, the
// partial unique index on settled ledger references, and the (game_round_id,
// user_id) round index all surface concurrent duplicates this way.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// isTransient reports whether err looks like a connectivity or timeout failure
// that a retry of the whole operation could clear, as opposed to a data
// problem that will fail the same way again
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "server closed") ||
		strings.Contains(msg, "broken pipe")
}

// isSerializationFailure reports whether err is a transaction-level conflict
// (deadlock or serialization failure) that the caller may retry
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "SQLSTATE 40001")
}
