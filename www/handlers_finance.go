package www

import (
	"encoding/json"
	"net/http"

	"cremeria/store"
)

// dateRange reads the optional ?from= and ?to= query bounds.
func dateRange(r *http.Request) (string, string) {
	return r.URL.Query().Get("from"), r.URL.Query().Get("to")
}

func (h *Handlers) apiListExpenses(w http.ResponseWriter, r *http.Request) {
	from, to := dateRange(r)
	entries, err := h.db.ListExpenses(from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, entries)
}

func (h *Handlers) apiCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e store.ExpenseEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if e.Amount <= 0 || e.Description == "" {
		writeError(w, http.StatusUnprocessableEntity, "description and positive amount are required")
		return
	}
	if e.Username == "" {
		if u := currentUser(r); u != nil {
			e.Username = u.Username
		}
	}
	if err := h.db.CreateExpense(&e); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.sync != nil {
		h.sync.PushExpense(e.ID)
	}
	writeJSON(w, e)
}

func (h *Handlers) apiDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	if err := h.db.DeleteExpense(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiListPassiveIncome(w http.ResponseWriter, r *http.Request) {
	from, to := dateRange(r)
	entries, err := h.db.ListPassiveIncome(from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, entries)
}

func (h *Handlers) apiCreatePassiveIncome(w http.ResponseWriter, r *http.Request) {
	var e store.PassiveIncomeEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if e.Amount <= 0 || e.Description == "" {
		writeError(w, http.StatusUnprocessableEntity, "description and positive amount are required")
		return
	}
	if e.Username == "" {
		if u := currentUser(r); u != nil {
			e.Username = u.Username
		}
	}
	if err := h.db.CreatePassiveIncome(&e); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.sync != nil {
		h.sync.PushPassiveIncome(e.ID)
	}
	writeJSON(w, e)
}

func (h *Handlers) apiDeletePassiveIncome(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	if err := h.db.DeletePassiveIncome(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
