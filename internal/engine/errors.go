package engine

import "fmt"

// ValidationError indicates a caller passed input that violates an engine
// precondition. These fail loudly before any state is mutated and never
// enter the sync queue.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateXPGain rejects negative XP grants before they reach ApplyXP.
func ValidateXPGain(xp int) error {
	if xp < 0 {
		return ValidationError{Field: "xp", Reason: fmt.Sprintf("must be non-negative, got %d", xp)}
	}
	return nil
}

// ValidateStreak rejects negative streak lengths.
func ValidateStreak(streak int) error {
	if streak < 0 {
		return ValidationError{Field: "streak", Reason: fmt.Sprintf("must be non-negative, got %d", streak)}
	}
	return nil
}
