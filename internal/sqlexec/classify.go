// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// The backend reports capacity problems only through message text, so these
// substrings are the whole contract. Keep them lower case.
var transientCapacityTerms = []string{
	"concurrent queries",
	"concurrent operations",
	"too many concurrent",
	"exceeded",
	"rate limit",
}

// SQLSTATE codes that mean the server is out of room rather than the statement being wrong.
var transientSQLStates = map[string]bool{
	"53300": true, // too_many_connections
	"53400": true, // configuration_limit_exceeded
}

// IsTransientCapacityError reports whether a backend error message means "too much
// concurrent work, try again later".
func IsTransientCapacityError(message string) bool {
	lower := strings.ToLower(message)
	if IsTokenLimitError(lower) {
		return false
	}
	for _, term := range transientCapacityTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// IsTokenLimitError reports whether a backend error message means the model's token
// budget was exceeded. Retrying the same prompt cannot fix that.
func IsTokenLimitError(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "max tokens") && strings.Contains(lower, "exceeded")
}

// IsTransient classifies err, preferring the PostgreSQL error code when there is one.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && transientSQLStates[pgErr.Code] {
		return true
	}
	return IsTransientCapacityError(err.Error())
}
