package mastery

// State is a coarse label for a mastery value.
type State string

const (
	StateNew        State = "new"
	StateLearning   State = "learning"
	StateProficient State = "proficient"
	StateMastered   State = "mastered"
)

// StateOf maps a mastery value to a State given the mastery threshold.
// Values at or above half the threshold count as proficient.
func StateOf(value, threshold float64) State {
	switch {
	case value <= 0:
		return StateNew
	case value >= threshold:
		return StateMastered
	case value >= threshold/2:
		return StateProficient
	default:
		return StateLearning
	}
}
