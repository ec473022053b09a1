package identity

import (
	"os"
	"sync"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/google/uuid"
)

// sessionOverride is set via SetSessionID when --session flag is provided.
var sessionOverride string

var fallbackID = sync.OnceValue(func() string { return uuid.NewString() })

// SetSessionID sets an explicit session ID override (from --session flag).
func SetSessionID(id string) {
	sessionOverride = id
}

// SessionID returns the current session ID.
// Priority: explicit override > CLAUDE_SESSION_ID env var.
func SessionID() string {
	if sessionOverride != "" {
		return sessionOverride
	}
	return os.Getenv("CLAUDE_SESSION_ID")
}

// Agent returns the agent name recorded on appended events.
// CHRONICLE_AGENT wins; otherwise "claude" under CLAUDECODE=1, else "human".
func Agent() string {
	if a := os.Getenv("CHRONICLE_AGENT"); a != "" {
		return a
	}
	if os.Getenv("CLAUDECODE") == "1" {
		return "claude"
	}
	return "human"
}

// Actor returns the actor for the current process. Without a session ID the
// id is a random UUID, stable for the life of the process.
func Actor() chronicle.Actor {
	id := SessionID()
	if id == "" {
		id = fallbackID()
	}
	return chronicle.Actor{Agent: Agent(), ID: id}
}
