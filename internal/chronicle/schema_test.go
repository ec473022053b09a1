package chronicle

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateEventBaseFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Event)
		missing string
	}{
		{"type", func(e *Event) { e.Type = "" }, `"type"`},
		{"timestamp", func(e *Event) { e.Timestamp = " " }, `"timestamp"`},
		{"actor agent", func(e *Event) { e.Actor.Agent = "" }, `"actor.agent"`},
		{"actor id", func(e *Event) { e.Actor.ID = "" }, `"actor.id"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := fileAdded("src/a.ts", "h1", 10)
			tt.mutate(&e)
			err := ValidateEvent(e)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("kind = %v, want VALIDATION", KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q does not name %s", err, tt.missing)
			}
		})
	}
}

func TestValidateEventRequiredPerKind(t *testing.T) {
	e := fileAdded("src/a.ts", "h1", 10)
	delete(e.Fields, "hash")

	err := ValidateEvent(e)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidateEvent = %v, want VALIDATION", err)
	}
	if !strings.Contains(err.Error(), `"hash"`) {
		t.Errorf("error %q does not name hash", err)
	}

	rename := Event{
		Type:      FileRenamed,
		Timestamp: "2026-02-25T10:00:00Z",
		Actor:     testActor(),
		Fields:    map[string]any{"oldPath": "a.go"},
	}
	if err := ValidateEvent(rename); err == nil || !strings.Contains(err.Error(), `"newPath"`) {
		t.Errorf("rename without newPath: err = %v", err)
	}
	rename.Fields["newPath"] = "b.go"
	if err := ValidateEvent(rename); err != nil {
		t.Errorf("rename with both paths: %v", err)
	}
}

func TestValidateEventEmptyRequiredString(t *testing.T) {
	e := fileAdded("", "h1", 10)
	if err := ValidateEvent(e); err == nil || !strings.Contains(err.Error(), `"filePath"`) {
		t.Errorf("err = %v, want missing filePath", err)
	}
}

func TestValidateEventGraphCommitBaseField(t *testing.T) {
	e := Event{Type: GraphCommitted, Timestamp: "2026-02-25T10:00:00Z", Actor: testActor()}
	if err := ValidateEvent(e); err == nil {
		t.Fatal("expected error for missing graphCommit")
	}
	e.GraphCommit = "abc123"
	if err := ValidateEvent(e); err != nil {
		t.Errorf("ValidateEvent: %v", err)
	}
}

func TestValidateEventUnknownKind(t *testing.T) {
	e := Event{
		Type:      "CUSTOM_THING",
		Timestamp: "2026-02-25T10:00:00Z",
		Actor:     testActor(),
		Fields:    map[string]any{"anything": true},
	}
	if err := ValidateEvent(e); err != nil {
		t.Errorf("unknown kind rejected: %v", err)
	}

	e.Actor.ID = ""
	if err := ValidateEvent(e); err == nil {
		t.Error("unknown kind skipped base checks")
	}
}

func TestValidateEventFieldShapes(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{"negative size", fileAdded("src/a.ts", "h1", -1)},
		{"string size", func() Event {
			e := fileAdded("src/a.ts", "h1", 0)
			e.Fields["size"] = "ten"
			return e
		}()},
		{"steps not array", func() Event {
			e := planDrafted("p1", fixedTime)
			e.Fields["steps"] = "one big step"
			return e
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEvent(tt.event)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateEvent = %v, want VALIDATION", err)
			}
		})
	}
}

func TestRequiredFields(t *testing.T) {
	got := RequiredFields(PlanDrafted)
	want := []string{"planId", "summary", "steps"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("RequiredFields(PLAN_DRAFTED) = %v, want %v", got, want)
	}
	if RequiredFields("NOPE") != nil {
		t.Error("unknown kind should have no required fields")
	}
	if len(KnownKinds()) != len(variants) {
		t.Errorf("KnownKinds len = %d, want %d", len(KnownKinds()), len(variants))
	}
}
