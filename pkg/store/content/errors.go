package content

import "errors"

// ============================================================================
// Standard Content Store Errors
// ============================================================================

// Implementations wrap these with context:
//
//	return fmt.Errorf("open %s: %w", path, content.ErrNotFound)
//
// Callers classify them with errors.Is or OutcomeOf.

var (
	// ErrNotFound indicates the target file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrAlreadyExists indicates the target path is already occupied.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrDirNotFound indicates the directory holding the target does not exist.
	ErrDirNotFound = errors.New("directory not found")

	// ErrInvalidPath indicates the path is malformed or escapes the store root.
	ErrInvalidPath = errors.New("invalid path")
)

// Outcome is the coarse result of a primitive.
type Outcome int

const (
	// OutcomeOK means the primitive succeeded.
	OutcomeOK Outcome = iota

	// OutcomeExists means the target was already present.
	OutcomeExists

	// OutcomeMissing means the target (or its directory) was absent.
	OutcomeMissing

	// OutcomeFailed is any other failure (I/O, permissions, network).
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeExists:
		return "exists"
	case OutcomeMissing:
		return "missing"
	default:
		return "failed"
	}
}

// OutcomeOf classifies an error returned by a ContentStore.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrAlreadyExists):
		return OutcomeExists
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDirNotFound):
		return OutcomeMissing
	default:
		return OutcomeFailed
	}
}
