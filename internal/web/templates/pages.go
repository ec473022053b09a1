package templates

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"github.com/boozedog/chronicle/internal/chronicle"
)

// IndexData is everything the index page shows.
type IndexData struct {
	Chronicles []string
	// Selected is the chronicle whose events are listed; empty for none.
	Selected string
	// Events are newest first.
	Events     []chronicle.Event
	ReportHTML string
	Error      string
}

// EventsData is the event table swapped in on refresh.
type EventsData struct {
	Path   string
	Events []chronicle.Event
}

const styles = `body{font-family:system-ui,sans-serif;margin:0;display:flex;min-height:100vh}
nav{width:16rem;background:#f4f4f5;padding:1rem;border-right:1px solid #ddd}
nav a{display:block;padding:.2rem 0;color:#1d4ed8;text-decoration:none}
nav a.active{font-weight:bold}
main{flex:1;padding:1rem 2rem}
table{border-collapse:collapse;width:100%;font-size:.9rem}
td,th{border-bottom:1px solid #eee;padding:.3rem .5rem;text-align:left;vertical-align:top}
code{font-size:.85rem}
.error{color:#b91c1c}`

// refreshScript reloads the event table when the SSE stream reports a change
// to the selected chronicle.
const refreshScript = `(function(){
var main=document.querySelector("main[data-path]");if(!main)return;
var path=main.dataset.path;var es=new EventSource("/events");
es.addEventListener("append",function(m){
if(JSON.parse(m.data).path!==path)return;
fetch("/partials/events?path="+encodeURIComponent(path)).then(function(r){return r.text()}).then(function(h){document.getElementById("events").outerHTML=h});
});})();`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		p.raw("<title>")
		p.text(title)
		p.raw("</title><style>" + styles + "</style></head><body>")
		if p.err != nil {
			return p.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		p.raw("<script>" + refreshScript + "</script></body></html>\n")
		return p.err
	})
}

// IndexPage lists the chronicles under the root and the selected one's
// recent events and chain report.
func IndexPage(data IndexData) templ.Component {
	title := "chronicle"
	if data.Selected != "" {
		title = data.Selected + " · chronicle"
	}
	return Layout(title, indexBody(data))
}

func indexBody(data IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw("<nav><h3>Chronicles</h3>")
		if len(data.Chronicles) == 0 {
			p.raw("<p>None yet.</p>")
		}
		for _, c := range data.Chronicles {
			class := ""
			if c == data.Selected {
				class = ` class="active"`
			}
			p.raw(`<a href="`)
			p.text(chronicleURL(c))
			p.raw(`"` + class + ">")
			p.text(c)
			p.raw("</a>")
		}
		p.raw("</nav>")

		if data.Selected == "" {
			p.raw("<main><p>Select a chronicle.</p>")
		} else {
			p.raw(`<main data-path="`)
			p.text(data.Selected)
			p.raw(`"><h2>`)
			p.text(data.Selected)
			p.raw("</h2>")
		}
		if data.Error != "" {
			p.raw(`<p class="error">`)
			p.text(data.Error)
			p.raw("</p>")
		}
		if p.err != nil {
			return p.err
		}

		if data.Selected != "" {
			if err := EventTable(EventsData{Path: data.Selected, Events: data.Events}).Render(ctx, w); err != nil {
				return err
			}
			if data.ReportHTML != "" {
				p.raw(`<section id="report">`)
				if p.err != nil {
					return p.err
				}
				if err := templ.Raw(data.ReportHTML).Render(ctx, w); err != nil {
					return err
				}
				p.raw("</section>")
			}
		}
		p.raw("</main>")
		return p.err
	})
}

// EventTable renders the events of one chronicle, newest first.
func EventTable(data EventsData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<table id="events"><thead><tr><th>When</th><th>Type</th><th>Actor</th><th>Id</th><th>Prev</th><th>Fields</th></tr></thead><tbody>`)
		if len(data.Events) == 0 {
			p.raw(`<tr><td colspan="6">No events.</td></tr>`)
		}
		for _, e := range data.Events {
			p.raw(`<tr><td title="`)
			p.text(e.Timestamp)
			p.raw(`">`)
			p.text(eventTime(e.Timestamp))
			p.raw("</td><td>")
			p.text(e.Type)
			p.raw("</td><td>")
			p.text(e.Actor.Agent + "/" + e.Actor.ID)
			p.raw(`</td><td><code title="`)
			p.text(e.EventID)
			p.raw(`">`)
			p.text(shortID(e.EventID))
			p.raw("</code></td><td><code>")
			p.text(shortID(e.PrevEventID))
			p.raw("</code></td><td>")
			p.text(fieldSummary(e))
			p.raw("</td></tr>")
		}
		p.raw("</tbody></table>")
		return p.err
	})
}

// fieldSummary lists the kind-specific fields as key=value pairs in
// registry order, then any extras in key order.
func fieldSummary(e chronicle.Event) string {
	seen := make(map[string]bool)
	var parts []string
	for _, name := range chronicle.RequiredFields(e.Type) {
		if v, ok := e.Fields[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", name, v))
			seen[name] = true
		}
	}
	extras := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		if !seen[name] {
			extras = append(extras, name)
		}
	}
	slices.Sort(extras)
	for _, name := range extras {
		parts = append(parts, fmt.Sprintf("%s=%v", name, e.Fields[name]))
	}
	return strings.Join(parts, " ")
}

// printer writes markup and escaped text, remembering the first error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}
