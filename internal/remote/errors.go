package remote

import (
	"context"
	"errors"

	"github.com/opencustody/walletsync/internal/types"
)

type remoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *remoteError) toTyped() *types.RemoteError {
	return &types.RemoteError{Code: e.Code, Message: e.Message}
}

// remoteCodeKeyExists is the service's "key already added" rejection.
const remoteCodeKeyExists = 4003

func asRemote(err error, target **types.RemoteError) bool {
	return errors.As(err, target)
}

// isTransient reports whether an error is worth retrying: typed server
// rejections and cancellations are final, everything else (timeouts,
// connection resets, bad gateways) may clear up.
func isTransient(err error) bool {
	var re *types.RemoteError
	if errors.As(err, &re) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
