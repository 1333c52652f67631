//go:build !unix

package libcheck

import "context"

func (v *GracefulShutdownValidator) Validate(ctx context.Context) (TestCase, error) {
	return Failing("graceful shutdown", "graceful_shutdown validator only supported on Unix systems"), nil
}
