package timeline

import "fmt"

// ErrInternal is returned when a Handle or Index operation is asked to
// resolve an event id that isn't present in the dedup index. This means the
// id was obtained from somewhere other than the index itself (a bug in the
// caller), not a transient condition.
var ErrInternal = fmt.Errorf("timeline: event id not present in index")

// ErrInvalidOperation is returned for an operation the timeline's current
// shape does not allow: filling a node that is not a hole, asking for the
// first or last position of an empty timeline, or stepping past either end.
type ErrInvalidOperation struct {
	Reason string
}

func (e ErrInvalidOperation) Error() string {
	return fmt.Sprintf("invalid timeline operation: %s", e.Reason)
}

// Is reports any ErrInvalidOperation as matching regardless of Reason. Like
// state.ErrInvalidOperation, this doesn't wrap the root
// mautrix.ErrInvalidOperation: mautrix imports timeline, so the reverse
// would be an import cycle.
func (e ErrInvalidOperation) Is(target error) bool {
	_, ok := target.(ErrInvalidOperation)
	return ok
}
