// Package report renders chronicle events and chain reports for people and
// scripts.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	HTML     Format = "html"
)

// EventFormats are the encodings WriteEvents accepts.
var EventFormats = []Format{JSON, YAML}

// ChainFormats are the encodings WriteChain accepts.
var ChainFormats = []Format{Text, JSON, Markdown, HTML}

// ParseFormat checks s against the allowed formats.
func ParseFormat(s string, allowed []Format) (Format, error) {
	f := Format(strings.ToLower(s))
	if slices.Contains(allowed, f) {
		return f, nil
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("unknown format %q (want %s)", s, strings.Join(names, ", "))
}

// WriteEvents writes events as JSON lines, the on-disk shape, or as a YAML
// sequence.
func WriteEvents(w io.Writer, events []chronicle.Event, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
		}
		return nil
	case YAML:
		if len(events) == 0 {
			return nil
		}
		docs := make([]map[string]any, len(events))
		for i, e := range events {
			docs[i] = e.Map()
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("encode events: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported event format %q", f)
	}
}

// WriteChain writes a chain report in the given format.
func WriteChain(w io.Writer, r *chronicle.ChainReport, f Format) error {
	switch f {
	case Text:
		_, err := io.WriteString(w, ChainText(r))
		return err
	case JSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case Markdown:
		_, err := io.WriteString(w, ChainMarkdown(r))
		return err
	case HTML:
		html, err := ChainHTML(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return fmt.Errorf("unsupported report format %q", f)
	}
}

// ChainText is a compact plain-text summary, one problem per line.
func ChainText(r *chronicle.ChainReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d events, %d chained, %d broken, %d orphaned\n",
		r.Path, r.TotalEvents, r.ChainedEvents, len(r.BrokenLinks), len(r.OrphanedEvents))
	for _, l := range r.BrokenLinks {
		fmt.Fprintf(&b, "  broken  %s at %d: %s (prev %s)\n", l.EventID, l.Position, l.Reason, l.PrevEventID)
	}
	for _, id := range r.OrphanedEvents {
		fmt.Fprintf(&b, "  orphan  %s\n", id)
	}
	return b.String()
}

// ChainMarkdown renders the report as a markdown document.
func ChainMarkdown(r *chronicle.ChainReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chain report: %s\n\n", r.Path)
	fmt.Fprintf(&b, "- Total events: %d\n", r.TotalEvents)
	fmt.Fprintf(&b, "- Chained events: %d\n", r.ChainedEvents)
	fmt.Fprintf(&b, "- Broken links: %d\n", len(r.BrokenLinks))
	fmt.Fprintf(&b, "- Orphaned events: %d\n", len(r.OrphanedEvents))

	b.WriteString("\n## Broken links\n\n")
	if len(r.BrokenLinks) == 0 {
		b.WriteString("No broken links.\n")
	}
	for i, l := range r.BrokenLinks {
		fmt.Fprintf(&b, "%d. `%s` at position %d: `%s` (prev `%s`)\n", i+1, l.EventID, l.Position, l.Reason, l.PrevEventID)
	}

	b.WriteString("\n## Orphaned events\n\n")
	if len(r.OrphanedEvents) == 0 {
		b.WriteString("No orphaned events.\n")
	}
	for _, id := range r.OrphanedEvents {
		fmt.Fprintf(&b, "- `%s`\n", id)
	}
	return b.String()
}

// ChainHTML converts ChainMarkdown to an HTML fragment.
func ChainHTML(r *chronicle.ChainReport) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(ChainMarkdown(r)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// WriteMismatches lists events whose stored id does not match their content.
func WriteMismatches(w io.Writer, path string, ms []chronicle.Mismatch) error {
	if len(ms) == 0 {
		_, err := fmt.Fprintf(w, "%s: all event ids match\n", path)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: %d mismatched event ids\n", path, len(ms)); err != nil {
		return err
	}
	for _, m := range ms {
		if _, err := fmt.Fprintf(w, "  %d %s stored=%s computed=%s\n", m.Position, m.Type, m.StoredID, m.ComputedID); err != nil {
			return err
		}
	}
	return nil
}
