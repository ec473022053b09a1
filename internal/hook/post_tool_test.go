package hook

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boozedog/chronicle/internal/chronicle"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFileEvent_WriteCreate(t *testing.T) {
	t.Setenv("CHRONICLE_AGENT", "claude")
	cwd := t.TempDir()
	abs := writeFile(t, cwd, "src/main.go", "package main\n")

	input := &Input{
		SessionID:    "sess-write",
		CWD:          cwd,
		ToolName:     "Write",
		ToolInput:    map[string]any{"file_path": abs},
		ToolResponse: map[string]any{"type": "create"},
	}
	e, ok, err := FileEvent(input, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FileEvent: %v", err)
	}
	if !ok {
		t.Fatal("FileEvent skipped a Write")
	}

	if e.Type != chronicle.FileAdded {
		t.Errorf("Type = %s, want %s", e.Type, chronicle.FileAdded)
	}
	if e.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("Timestamp = %s", e.Timestamp)
	}
	if e.Actor != (chronicle.Actor{Agent: "claude", ID: "sess-write"}) {
		t.Errorf("Actor = %+v", e.Actor)
	}
	if got, _ := e.Field("filePath"); got != "src/main.go" {
		t.Errorf("filePath = %v, want src/main.go", got)
	}
	sum := sha256.Sum256([]byte("package main\n"))
	if got, _ := e.Field("hash"); got != hex.EncodeToString(sum[:]) {
		t.Errorf("hash = %v", got)
	}
	if got, _ := e.Field("size"); got != 13 {
		t.Errorf("size = %v, want 13", got)
	}
	if err := chronicle.ValidateEvent(e); err != nil {
		t.Errorf("event does not validate: %v", err)
	}
}

func TestFileEvent_EditIsModified(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, cwd, "a.go", "x")

	input := &Input{
		SessionID: "s",
		CWD:       cwd,
		ToolName:  "Edit",
		ToolInput: map[string]any{"file_path": "a.go"},
	}
	e, ok, err := FileEvent(input, time.Now())
	if err != nil || !ok {
		t.Fatalf("FileEvent = %v, %v", ok, err)
	}
	if e.Type != chronicle.FileModified {
		t.Errorf("Type = %s, want %s", e.Type, chronicle.FileModified)
	}
}

func TestFileEvent_OutsideCWD(t *testing.T) {
	abs := writeFile(t, t.TempDir(), "notes.md", "hi")

	input := &Input{
		SessionID: "s",
		CWD:       t.TempDir(),
		ToolName:  "Write",
		ToolInput: map[string]any{"file_path": abs},
	}
	e, ok, err := FileEvent(input, time.Now())
	if err != nil || !ok {
		t.Fatalf("FileEvent = %v, %v", ok, err)
	}
	if got, _ := e.Field("filePath"); got != filepath.ToSlash(abs) {
		t.Errorf("filePath = %v, want %s", got, abs)
	}
}

func TestFileEvent_Skips(t *testing.T) {
	cwd := t.TempDir()
	tests := []struct {
		name  string
		input *Input
	}{
		{"read-only tool", &Input{ToolName: "Read", ToolInput: map[string]any{"file_path": "a.go"}}},
		{"no path", &Input{ToolName: "Write", ToolInput: map[string]any{}}},
		{"missing file", &Input{CWD: cwd, ToolName: "Edit", ToolInput: map[string]any{"file_path": "gone.go"}}},
	}
	for _, tt := range tests {
		_, ok, err := FileEvent(tt.input, time.Now())
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if ok {
			t.Errorf("%s: expected skip", tt.name)
		}
	}
}

func TestHandlePostTool_LinksEvents(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, cwd, "a.go", "one")
	writeFile(t, cwd, "b.go", "two")
	store := chronicle.NewStore(t.TempDir(), chronicle.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var ids []string
	for _, name := range []string{"a.go", "b.go"} {
		id, err := HandlePostTool(store, "proj/activity.sage", &Input{
			SessionID: "sess",
			CWD:       cwd,
			ToolName:  "Edit",
			ToolInput: map[string]any{"file_path": name},
		}, chronicle.DefaultTimeout)
		if err != nil {
			t.Fatalf("HandlePostTool(%s): %v", name, err)
		}
		ids = append(ids, id)
	}

	events, err := store.ReadChronicle("proj/activity.sage")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].EventID != ids[0] || events[1].EventID != ids[1] {
		t.Errorf("stored ids %s,%s; returned %v", events[0].EventID, events[1].EventID, ids)
	}
	if events[1].PrevEventID != ids[0] {
		t.Errorf("second event prev = %q, want %q", events[1].PrevEventID, ids[0])
	}

	r, err := store.ValidateCausalChain("proj/activity.sage")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Valid() {
		t.Errorf("chain not valid: %+v", r)
	}
}

func TestHandlePostTool_SkipWritesNothing(t *testing.T) {
	root := t.TempDir()
	store := chronicle.NewStore(root, chronicle.Options{})

	id, err := HandlePostTool(store, "activity.sage", &Input{ToolName: "Bash"}, chronicle.DefaultTimeout)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
	if _, err := os.Stat(filepath.Join(root, "activity.sage")); !os.IsNotExist(err) {
		t.Error("chronicle created for a skipped tool")
	}
}
