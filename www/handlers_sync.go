package www

import (
	"errors"
	"net/http"

	"cremeria/syncer"
)

func (h *Handlers) apiSyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	writeJSON(w, h.sync.GetStatus())
}

func (h *Handlers) apiSyncPush(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	writeJSON(w, h.sync.PushAll())
}

func (h *Handlers) apiSyncPull(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	n, err := h.sync.PullProducts()
	if err != nil {
		if errors.Is(err, syncer.ErrRemoteDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]int{"updated": n})
}
