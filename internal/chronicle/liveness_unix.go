//go:build unix

package chronicle

import (
	"errors"

	"golang.org/x/sys/unix"
)

// osProbe checks liveness with signal 0. EPERM means the process exists but
// belongs to another user.
type osProbe struct{}

func (osProbe) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
