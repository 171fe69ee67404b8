package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevHint is for advisory performance hints.
	SevHint Severity = iota
	// SevWarning is for correctness warnings that do not stop translation.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevHint:
		return "HINT"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
