package project

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/boozedog/chronicle/internal/chronicle"
)

func TestRepoName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"git@github.com:boozedog/chronicle.git", "boozedog/chronicle"},
		{"git@github.com:boozedog/chronicle", "boozedog/chronicle"},
		{"https://github.com/boozedog/chronicle.git", "boozedog/chronicle"},
		{"https://github.com/boozedog/chronicle/", "boozedog/chronicle"},
		{"ssh://git@github.com/boozedog/chronicle.git", "boozedog/chronicle"},
		{"/srv/git/chronicle.git", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RepoName(tt.url); got != tt.want {
			t.Errorf("RepoName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestGitRemoteURL_NonGitDir(t *testing.T) {
	if got := GitRemoteURL(t.TempDir()); got != "" {
		t.Errorf("GitRemoteURL(non-git dir) = %q, want empty", got)
	}
}

func initRepo(t *testing.T, dir, remote string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	for _, args := range [][]string{
		{"init"},
		{"remote", "add", "origin", remote},
	} {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
}

func TestChroniclePath_FromRemote(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir, "https://github.com/example/repo.git")

	if got, want := ChroniclePath(dir), "example/repo/activity.sage"; got != want {
		t.Errorf("ChroniclePath() = %q, want %q", got, want)
	}
}

func TestChroniclePath_FromDirName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "webapp")

	got := ChroniclePath(dir)
	if got != "webapp/activity.sage" {
		t.Errorf("ChroniclePath() = %q, want webapp/activity.sage", got)
	}
	if _, err := chronicle.ValidatePath(got); err != nil {
		t.Errorf("ChroniclePath() not a valid chronicle path: %v", err)
	}
}

func TestChroniclePath_NoProject(t *testing.T) {
	for _, dir := range []string{"", "/"} {
		if got := ChroniclePath(dir); got != ActivityFile {
			t.Errorf("ChroniclePath(%q) = %q, want %q", dir, got, ActivityFile)
		}
	}
}
