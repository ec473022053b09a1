package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/boozedog/chronicle/internal/chronicle"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return b.String()
}

func TestIndexPageEscapes(t *testing.T) {
	e := chronicle.Event{
		Type:      chronicle.PlanRejected,
		EventID:   "0123456789abcdef0123",
		Timestamp: "2025-01-01T00:00:00Z",
		Actor:     chronicle.Actor{Agent: "claude", ID: "s1"},
		Fields:    map[string]any{"planId": "p1", "reason": "<script>alert(1)</script>"},
	}
	out := renderString(t, IndexPage(IndexData{
		Chronicles: []string{"a.sage", "plans/<b>.sage"},
		Selected:   "a.sage",
		Events:     []chronicle.Event{e},
		ReportHTML: "<h1>Chain report: a.sage</h1>",
	}))

	for _, want := range []string{
		"<title>a.sage · chronicle</title>",
		`<a href="/?path=a.sage" class="active">a.sage</a>`,
		"plans/&lt;b&gt;.sage",
		`<main data-path="a.sage">`,
		"PLAN_REJECTED",
		"claude/s1",
		">0123456789ab</code>",
		"planId=p1 reason=&lt;script&gt;alert(1)&lt;/script&gt;",
		"2025-01-01 00:00",
		`<section id="report"><h1>Chain report: a.sage</h1></section>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "<script>alert") {
		t.Error("event field rendered unescaped")
	}
}

func TestIndexPageNoSelection(t *testing.T) {
	out := renderString(t, IndexPage(IndexData{}))
	if !strings.Contains(out, "None yet.") || !strings.Contains(out, "Select a chronicle.") {
		t.Errorf("unexpected empty page:\n%s", out)
	}
	if strings.Contains(out, `id="events"`) {
		t.Error("event table rendered without a selection")
	}
}

func TestEventTableEmpty(t *testing.T) {
	out := renderString(t, EventTable(EventsData{Path: "a.sage"}))
	if !strings.Contains(out, "No events.") {
		t.Errorf("empty table = %s", out)
	}
}

func TestFieldSummaryOrder(t *testing.T) {
	e := chronicle.Event{
		Type:   chronicle.FileAdded,
		Fields: map[string]any{"zeta": 1, "size": 10, "hash": "h", "filePath": "a.go", "alpha": true},
	}
	if got, want := fieldSummary(e), "filePath=a.go hash=h size=10 alpha=true zeta=1"; got != want {
		t.Errorf("fieldSummary = %q, want %q", got, want)
	}
}
