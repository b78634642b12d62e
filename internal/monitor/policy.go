package monitor

import (
	"errors"
	"fmt"
)

// Policy holds the advancement rules for a session.
type Policy struct {
	// MasteryThreshold is the score at or above which one evaluation counts
	// as demonstrating competence.
	MasteryThreshold float64 `env:"MASTERY_THRESHOLD" envDefault:"0.8" json:"mastery_threshold"`

	// ConsecRequired is how many back-to-back qualifying evaluations are
	// needed before advancing.
	ConsecRequired int `env:"CONSEC_REQUIRED" envDefault:"2" json:"consec_required"`

	// EscalateThreshold is the score below which the case is flagged for
	// human review.
	EscalateThreshold float64 `env:"ESCALATE_THRESHOLD" envDefault:"0.4" json:"escalate_threshold"`
}

// DefaultPolicy returns the standard advancement rules.
func DefaultPolicy() Policy {
	return Policy{
		MasteryThreshold:  0.8,
		ConsecRequired:    2,
		EscalateThreshold: 0.4,
	}
}

// Validate checks the policy ranges.
func (p Policy) Validate() error {
	var errs []error
	if p.MasteryThreshold <= 0 || p.MasteryThreshold > 1 {
		errs = append(errs, fmt.Errorf("mastery threshold %.2f outside (0, 1]", p.MasteryThreshold))
	}
	if p.ConsecRequired < 1 {
		errs = append(errs, fmt.Errorf("consecutive requirement %d must be at least 1", p.ConsecRequired))
	}
	if p.EscalateThreshold < 0 || p.EscalateThreshold >= 1 {
		errs = append(errs, fmt.Errorf("escalate threshold %.2f outside [0, 1)", p.EscalateThreshold))
	}
	return errors.Join(errs...)
}
