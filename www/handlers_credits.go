package www

import (
	"net/http"
)

func (h *Handlers) apiListCredits(w http.ResponseWriter, r *http.Request) {
	var err error
	var credits any
	if r.URL.Query().Get("all") == "1" {
		credits, err = h.db.ListAllCredits()
	} else {
		credits, err = h.db.ListUnpaidCredits()
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, credits)
}

func (h *Handlers) apiOverdueCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := h.credits.Overdue()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, credits)
}

func (h *Handlers) apiDueSoonCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := h.credits.DueSoon()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, credits)
}

func (h *Handlers) apiUnseenAlerts(w http.ResponseWriter, r *http.Request) {
	credits, err := h.credits.UnseenAlerts()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, credits)
}

func (h *Handlers) apiMarkCreditPaid(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credit id")
		return
	}
	if err := h.credits.MarkPaid(id); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.sync != nil {
		if c, err := h.db.GetCredit(id); err == nil {
			h.sync.PushCredit(c)
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiMarkCreditAlerted(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credit id")
		return
	}
	if err := h.credits.MarkAlerted(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
