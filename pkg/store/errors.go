package store

import "strings"

// ErrorTier classifies a SQL execution error for diagnostics. Every tier
// still yields the same failed-step outcome; the tier only enriches the
// message recorded in the reasoning trail.
type ErrorTier string

const (
	TierNoSuchTable  ErrorTier = "no_such_table"
	TierNoSuchColumn ErrorTier = "no_such_column"
	TierSyntax       ErrorTier = "syntax_error"
	TierOperational  ErrorTier = "operational"
)

// ClassifyError maps a SQLite error to its diagnostic tier based on the
// driver's message text.
func ClassifyError(err error) ErrorTier {
	if err == nil {
		return TierOperational
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"):
		return TierNoSuchTable
	case strings.Contains(msg, "no such column"):
		return TierNoSuchColumn
	case strings.Contains(msg, "syntax error"):
		return TierSyntax
	default:
		return TierOperational
	}
}
