package handler

import (
	"log/slog"
	"net/http"

	"github.com/boozedog/chronicle/internal/report"
	"github.com/boozedog/chronicle/internal/web/templates"
)

// Index renders the chronicle list and, with ?path=, that chronicle's recent
// events and chain report.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data, err := h.buildIndexData(r.URL.Query().Get("path"))
	if err != nil {
		data.Error = err.Error()
		w.WriteHeader(statusFor(err))
	}
	_ = templates.IndexPage(data).Render(r.Context(), w)
}

// PartialEvents renders just the event table for live refresh.
func (h *Handler) PartialEvents(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	events, err := h.recentEvents(path, DefaultPageEvents)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	_ = templates.EventTable(templates.EventsData{Path: path, Events: events}).Render(r.Context(), w)
}

func (h *Handler) buildIndexData(selected string) (templates.IndexData, error) {
	data := templates.IndexData{Selected: selected}

	paths, err := h.store.List()
	if err != nil {
		slog.Warn("list chronicles", "err", err)
	}
	data.Chronicles = paths

	if selected == "" {
		return data, nil
	}

	events, err := h.recentEvents(selected, DefaultPageEvents)
	if err != nil {
		return data, err
	}
	data.Events = events

	chain, err := h.store.ValidateCausalChain(selected)
	if err != nil {
		return data, err
	}
	html, err := report.ChainHTML(chain)
	if err != nil {
		slog.Warn("render chain report", "path", selected, "err", err)
		return data, nil
	}
	data.ReportHTML = html
	return data, nil
}
