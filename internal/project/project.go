// Package project maps a working directory to the chronicle its agent
// activity is recorded in.
package project

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/boozedog/chronicle/internal/chronicle"
)

// ActivityFile is the chronicle name hook events are appended to.
const ActivityFile = "activity" + chronicle.Suffix

// Name identifies the project rooted at dir: the repo name of its origin
// remote, else the directory's base name. Segments that would escape the
// chronicle root are dropped.
func Name(dir string) string {
	if dir == "" {
		return ""
	}
	name := RepoName(GitRemoteURL(dir))
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}

	var segs []string
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			continue
		}
		segs = append(segs, seg)
	}
	return strings.Join(segs, "/")
}

// ChroniclePath returns the activity chronicle for the project at dir, or
// the root-level ActivityFile when dir names no project.
func ChroniclePath(dir string) string {
	name := Name(dir)
	if name == "" {
		return ActivityFile
	}
	return path.Join(name, ActivityFile)
}
