package state

import "fmt"

// ErrInvalidOperation describes an invalid state operation. Resolve does not
// return it: a missing prev_content is unwound by deleting the key, and
// stripped invite/knock events are a separate type Resolve does not accept.
type ErrInvalidOperation struct {
	Reason string
}

func (e ErrInvalidOperation) Error() string {
	return fmt.Sprintf("invalid state operation: %s", e.Reason)
}

// Is reports any ErrInvalidOperation as matching regardless of Reason. This
// type intentionally doesn't wrap the root mautrix.ErrInvalidOperation:
// mautrix imports state, so state wrapping mautrix's sentinel would be an
// import cycle. Callers that need to distinguish "invalid state operation"
// from "invalid timeline operation" already can, since they're different
// Go types; errors.As picks out whichever one actually occurred.
func (e ErrInvalidOperation) Is(target error) bool {
	_, ok := target.(ErrInvalidOperation)
	return ok
}
