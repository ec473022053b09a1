package chronicle

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewStore(t.TempDir(), opts)
}

func testActor() Actor {
	return Actor{Agent: "planner", ID: "sess-123"}
}

func fileAdded(filePath, hash string, size int) Event {
	return Event{
		Type:      FileAdded,
		Timestamp: "2026-02-25T10:00:00Z",
		Actor:     testActor(),
		Fields:    map[string]any{"filePath": filePath, "hash": hash, "size": size},
	}
}

func planDrafted(planID string, ts time.Time) Event {
	return Event{
		Type:      PlanDrafted,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Actor:     testActor(),
		Fields: map[string]any{
			"planId":  planID,
			"summary": "add rate limiting",
			"steps":   []any{"write middleware", "wire server"},
		},
	}
}

var fixedTime = time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC)
