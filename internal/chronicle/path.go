package chronicle

import (
	"path/filepath"
	"strings"
)

// Suffix is the reserved extension every chronicle file carries.
const Suffix = ".sage"

const (
	lockSuffix    = ".lock"
	indexSuffix   = ".idx"
	reclaimSuffix = ".reclaim"
)

// Path is a chronicle file identifier that has passed ValidatePath.
// It is relative to a Store's root directory.
type Path string

func (p Path) String() string { return string(p) }

// ValidatePath checks that s is a relative, traversal-free chronicle path
// ending in Suffix.
func ValidatePath(s string) (Path, error) {
	if s == "" {
		return "", validationError("validate path", s, "path is empty")
	}
	if !strings.HasSuffix(s, Suffix) {
		return "", validationError("validate path", s, "path must end with %s", Suffix)
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`) || filepath.IsAbs(s) || filepath.VolumeName(s) != "" {
		return "", validationError("validate path", s, "path must be relative")
	}
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", validationError("validate path", s, "path must not contain parent directory traversal")
		}
	}
	return Path(s), nil
}

func lockPathFor(file string) string  { return file + lockSuffix }
func indexPathFor(file string) string { return file + indexSuffix }

func reclaimPathFor(lockPath string) string { return lockPath + reclaimSuffix }
