package templates

import (
	"fmt"
	"net/url"
	"time"
)

// relativeTime renders t relative to now for the event list.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// eventTime formats an event timestamp, falling back to the raw string when
// it is not RFC 3339.
func eventTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return relativeTime(t)
}

// chronicleURL links the index page to one chronicle.
func chronicleURL(path string) string {
	return "/?path=" + url.QueryEscape(path)
}

// shortID abbreviates a 64-character event id.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
