package contexthelper

import "context"

// CheckCancellation reports whether ctx has been cancelled. Sync loops call
// it between units of work so cancellation never lands mid-write of a
// single entity.
func CheckCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
