package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestSessionID(t *testing.T) {
	defer func() { sessionOverride = "" }()

	t.Setenv("CLAUDE_SESSION_ID", "test-session-123")
	if got := SessionID(); got != "test-session-123" {
		t.Errorf("SessionID() = %q, want %q", got, "test-session-123")
	}

	t.Setenv("CLAUDE_SESSION_ID", "")
	if got := SessionID(); got != "" {
		t.Errorf("SessionID() = %q, want empty", got)
	}
}

func TestSessionIDOverride(t *testing.T) {
	defer func() { sessionOverride = "" }()

	t.Setenv("CLAUDE_SESSION_ID", "env-session")
	SetSessionID("override-session")
	if got := SessionID(); got != "override-session" {
		t.Errorf("SessionID() = %q, want %q", got, "override-session")
	}

	// Clear override, falls back to env
	SetSessionID("")
	if got := SessionID(); got != "env-session" {
		t.Errorf("SessionID() = %q, want %q", got, "env-session")
	}
}

func TestAgent(t *testing.T) {
	t.Setenv("CHRONICLE_AGENT", "")
	t.Setenv("CLAUDECODE", "")
	if got := Agent(); got != "human" {
		t.Errorf("Agent() = %q, want %q", got, "human")
	}

	t.Setenv("CLAUDECODE", "1")
	if got := Agent(); got != "claude" {
		t.Errorf("Agent() with CLAUDECODE=1 = %q, want %q", got, "claude")
	}

	t.Setenv("CHRONICLE_AGENT", "ci-bot")
	if got := Agent(); got != "ci-bot" {
		t.Errorf("Agent() with CHRONICLE_AGENT = %q, want %q", got, "ci-bot")
	}
}

func TestActorFallbackID(t *testing.T) {
	defer func() { sessionOverride = "" }()
	t.Setenv("CLAUDE_SESSION_ID", "")
	t.Setenv("CHRONICLE_AGENT", "")
	t.Setenv("CLAUDECODE", "")

	a := Actor()
	if a.Agent != "human" {
		t.Errorf("Agent = %q, want human", a.Agent)
	}
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("ID = %q, want a UUID: %v", a.ID, err)
	}
	if again := Actor(); again.ID != a.ID {
		t.Errorf("fallback id changed: %q then %q", a.ID, again.ID)
	}

	SetSessionID("sess-9")
	if got := Actor().ID; got != "sess-9" {
		t.Errorf("ID with session = %q, want sess-9", got)
	}
}
