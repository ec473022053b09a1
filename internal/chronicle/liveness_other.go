//go:build !unix && !windows

package chronicle

// osProbe has no way to inspect processes here, so every recorded holder is
// treated as alive and only malformed locks age out.
type osProbe struct{}

func (osProbe) Alive(pid int) bool { return pid > 0 }
