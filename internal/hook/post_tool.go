package hook

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/boozedog/chronicle/internal/identity"
)

// pathKeys maps file-writing tools to the tool_input key naming their file.
var pathKeys = map[string]string{
	"Write":        "file_path",
	"Edit":         "file_path",
	"MultiEdit":    "file_path",
	"NotebookEdit": "notebook_path",
}

// FileEvent builds the FILE_ADDED or FILE_MODIFIED event for a PostToolUse
// payload. ok is false when the tool does not write files or the file no
// longer exists.
func FileEvent(input *Input, now time.Time) (e chronicle.Event, ok bool, err error) {
	key, writes := pathKeys[input.ToolName]
	if !writes {
		return chronicle.Event{}, false, nil
	}
	target := stringField(input.ToolInput, key)
	if target == "" {
		return chronicle.Event{}, false, nil
	}
	abs := target
	if !filepath.IsAbs(abs) && input.CWD != "" {
		abs = filepath.Join(input.CWD, abs)
	}

	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return chronicle.Event{}, false, nil
	}
	if err != nil {
		return chronicle.Event{}, false, fmt.Errorf("read %s: %w", abs, err)
	}
	sum := sha256.Sum256(data)

	e = chronicle.Event{
		Type:      chronicle.FileModified,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Actor:     actorFor(input),
	}
	if input.ToolName == "Write" && stringField(input.ToolResponse, "type") == "create" {
		e.Type = chronicle.FileAdded
	}
	for name, v := range map[string]any{
		"filePath": displayPath(input.CWD, abs),
		"hash":     hex.EncodeToString(sum[:]),
		"size":     len(data),
	} {
		if err := e.SetField(name, v); err != nil {
			return chronicle.Event{}, false, err
		}
	}
	return e, true, nil
}

// HandlePostTool appends the file event for input to the chronicle at path,
// linked to the chronicle's last event. It returns the new event id, or ""
// when the tool call wrote no file.
func HandlePostTool(store *chronicle.Store, path string, input *Input, timeout time.Duration) (string, error) {
	e, ok, err := FileEvent(input, time.Now())
	if err != nil || !ok {
		return "", err
	}

	last, err := store.TailChronicle(path, 1)
	if err != nil {
		return "", err
	}
	if len(last) == 1 {
		e.PrevEventID = last[0].EventID
	}

	if err := store.AppendEvent(path, e, timeout); err != nil {
		return "", err
	}
	return chronicle.ComputeEventID(e)
}

func actorFor(input *Input) chronicle.Actor {
	if input.SessionID == "" {
		return identity.Actor()
	}
	return chronicle.Actor{Agent: identity.Agent(), ID: input.SessionID}
}

// displayPath is abs relative to cwd when it lies inside cwd.
func displayPath(cwd, abs string) string {
	if cwd == "" {
		return filepath.ToSlash(abs)
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}
