package postgres

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes and codes the dispatcher cares about. Transient errors
// make the round retry on the next tick; permanent ones drop the cluster.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	classConnectionException    = "08"
	classInsufficientResources  = "53"
	classOperatorIntervention   = "57"
	classDataException          = "22"
	classIntegrityConstraint    = "23"
	classInvalidSQLStatement    = "26"
	classSyntaxOrAccessRuleViol = "42"
)

// IsTransient reports whether err is worth retrying on a later tick:
// serialization aborts, deadlocks, lost connections, timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return true
		}
		switch sqlStateClass(pgErr.Code) {
		case classConnectionException, classInsufficientResources, classOperatorIntervention:
			return true
		}
		return false
	}

	// pgconn surfaces dial/read failures outside PgError
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	return false
}

// IsPermanent reports whether err will not succeed on retry: constraint
// violations, bad data, malformed statements.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch sqlStateClass(pgErr.Code) {
	case classIntegrityConstraint, classDataException, classInvalidSQLStatement, classSyntaxOrAccessRuleViol:
		return true
	}
	return false
}

func sqlStateClass(code string) string {
	if len(code) < 2 {
		return ""
	}
	return strings.ToUpper(code[:2])
}
