//go:build !linux && !darwin

package socket

// applyPlatformConnOptions is a no-op on platforms without a tuned path.
func applyPlatformConnOptions(fd int, cfg *TuningConfig) {}

// applyReusePort is unsupported outside linux/darwin; ReusePort is silently
// ignored rather than failing the listen.
func applyReusePort(fd int) error {
	return nil
}
