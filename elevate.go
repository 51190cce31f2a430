package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var ErrNotElevated = errors.New("administrative rights required")

// ensureElevated fails fast before any prompt or temp file if the process
// can't touch the machine key store and HTTP.SYS bindings. On Windows the
// "net session" probe only succeeds in an elevated shell.
func ensureElevated(ctx context.Context) error {
	if runtime.GOOS == "windows" {
		if err := exec.CommandContext(ctx, "net", "session").Run(); err != nil {
			return fmt.Errorf("%w: run from an elevated prompt", ErrNotElevated)
		}
		return nil
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("%w: run as root", ErrNotElevated)
	}
	return nil
}
