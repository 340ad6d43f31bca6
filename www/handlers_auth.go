package www

import (
	"encoding/json"
	"net/http"
)

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.sessions.setToken(w, r, token)
	writeJSON(w, map[string]any{
		"token":     token,
		"username":  user.Username,
		"role":      user.Role,
		"full_name": user.FullName,
	})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessions.token(r); token != "" {
		h.auth.Logout(token)
		h.mu.Lock()
		delete(h.buffers, token)
		h.mu.Unlock()
	}
	h.sessions.clear(w, r)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, currentUser(r))
}
