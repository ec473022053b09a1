package project

import (
	"os/exec"
	"strings"
)

// GitRemoteURL returns the origin remote of the git repo at dir, or "" when
// dir is not a repo or has no origin.
func GitRemoteURL(dir string) string {
	out, err := exec.Command("git", "-C", dir, "remote", "get-url", "origin").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// RepoName returns the "owner/repo" part of a git remote URL. SCP-style
// (git@host:owner/repo), https:// and ssh:// remotes are understood.
func RepoName(remote string) string {
	var rest string
	switch {
	case remote == "":
		return ""
	case strings.Contains(remote, "://"):
		_, afterScheme, _ := strings.Cut(remote, "://")
		_, rest, _ = strings.Cut(afterScheme, "/")
	default:
		host, after, ok := strings.Cut(remote, ":")
		if !ok || strings.Contains(host, "/") {
			return ""
		}
		rest = after
	}
	return strings.TrimSuffix(strings.Trim(rest, "/"), ".git")
}
