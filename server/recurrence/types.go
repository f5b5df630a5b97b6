package recurrence

import (
	"errors"
	"time"
)

// Rule describes how an event repeats
type Rule struct {
	RRULE  string      // The RRULE string, with or without the "RRULE:" prefix
	EXDATE []time.Time // Occurrence starts to skip
}

// Occurrence is a single expanded instance of a repeated event
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// ExpansionOptions controls how recurrence expansion behaves
type ExpansionOptions struct {
	// MaxOccurrences caps the number of instances one rule may produce. A rule
	// without COUNT or UNTIL is cut off here; a rule asking for more is rejected.
	MaxOccurrences int
}

// DefaultExpansionOptions allows ten years of weekly events
var DefaultExpansionOptions = ExpansionOptions{
	MaxOccurrences: 520,
}

var (
	// ErrInvalidRule is returned for an RRULE that cannot be parsed
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrTooManyOccurrences is returned when a rule exceeds MaxOccurrences
	ErrTooManyOccurrences = errors.New("too many occurrences")
)
