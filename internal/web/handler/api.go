package handler

import (
	"net/http"
	"strconv"

	"github.com/boozedog/chronicle/internal/chronicle"
)

// Chronicles lists the chronicle paths under the root.
func (h *Handler) Chronicles(w http.ResponseWriter, _ *http.Request) {
	paths, err := h.store.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, paths)
}

// APIEvents returns every event of ?path= in file order.
func (h *Handler) APIEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ReadChronicle(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

// APITail returns the last ?n= events of ?path=, oldest first.
func (h *Handler) APITail(w http.ResponseWriter, r *http.Request) {
	n := chronicle.DefaultTailCount
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "n must be an integer", http.StatusBadRequest)
			return
		}
		n = v
	}
	events, err := h.store.TailChronicle(r.URL.Query().Get("path"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

// APIChain returns the causal chain report of ?path=.
func (h *Handler) APIChain(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.ValidateCausalChain(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// APIVerify returns the events of ?path= whose stored id is wrong.
func (h *Handler) APIVerify(w http.ResponseWriter, r *http.Request) {
	ms, err := h.store.Verify(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	if ms == nil {
		ms = []chronicle.Mismatch{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func nonNil(events []chronicle.Event) []chronicle.Event {
	if events == nil {
		return []chronicle.Event{}
	}
	return events
}
