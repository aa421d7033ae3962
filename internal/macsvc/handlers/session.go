package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

type UnlockRequest struct {
	Pin text `json:"pin"`
}

type LockResponse struct {
	Locked bool `json:"locked"`
}

// Status reports the caller's session tier. It needs no session itself.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gate.Tier(r).Status())
}

func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	tier, err := h.gate.Unlock(w, string(req.Pin))
	if err != nil {
		log.Infof("unlock refused for %s: %v", r.RemoteAddr, err)
		writeError(w, err, http.StatusBadRequest)
		return
	}

	log.Infof("session unlocked (%s) for %s", tier, r.RemoteAddr)
	writeJSON(w, http.StatusOK, tier.Status())
}

func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	h.gate.Lock(w)
	writeJSON(w, http.StatusOK, LockResponse{Locked: true})
}
