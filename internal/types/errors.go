package types

import (
	"errors"
	"fmt"
)

// ErrPendingActionGone signals that a tracked pending action (dummy
// transaction or request-add-key ticket) is no longer present remotely.
// Callers treat it as a cancellation, purge the local pending row and move
// on; it is never a transient transport failure.
var ErrPendingActionGone = errors.New("pending action no longer exists on server")

// ErrDuplicateKey signals an attempt to add a key that is already part of
// the wallet or draft, so the caller can present it distinctly from a
// generic failure.
var ErrDuplicateKey = errors.New("key already added")

// RemoteError is a typed failure returned inside the coordination service's
// response envelope.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// remote error codes the engine keys behavior off
const (
	RemoteCodeNotFound        = 404
	RemoteCodeThresholdNotMet = 7001
)

// IsRemoteNotFound reports whether err is a remote "resource does not
// exist" failure, which pending-action lookups convert to
// ErrPendingActionGone.
func IsRemoteNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == RemoteCodeNotFound
}
