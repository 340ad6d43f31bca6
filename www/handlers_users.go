package www

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cremeria/auth"
	"cremeria/store"
)

func (h *Handlers) apiListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, users)
}

func (h *Handlers) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	switch req.Role {
	case store.RoleAdmin, store.RoleManager, store.RoleClerk:
	case "":
		req.Role = store.RoleClerk
	default:
		writeError(w, http.StatusUnprocessableEntity, "unknown role")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := h.db.CreateUser(req.Username, hash, req.Role, req.FullName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"id": id, "username": req.Username, "role": req.Role})
}

func (h *Handlers) apiSetUserActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := chi.URLParam(r, "username")
	if err := h.db.SetUserActive(username, req.Active); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"username": username, "active": req.Active})
}

func (h *Handlers) apiSetUserPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "password is required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	username := chi.URLParam(r, "username")
	if err := h.db.UpdateUserPassword(username, hash); err != nil {
		writeDomainError(w, err)
		return
	}
	h.auth.ResetAttempts(username)
	writeJSON(w, map[string]string{"status": "ok"})
}
