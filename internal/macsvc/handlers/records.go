package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"

	"github.com/morshedkoli/macapp/internal/macsvc/models"
	"github.com/morshedkoli/macapp/internal/macsvc/service"
)

type RecordsResponse struct {
	Records []models.Record `json:"records"`
}

type RecordResponse struct {
	Record models.Record `json:"record"`
}

// RecordRequest is the body of create and update. Fields left out stay nil.
type RecordRequest struct {
	Name  *text `json:"name"`
	Mac   *text `json:"mac"`
	Phone *text `json:"phone"`
}

func (req RecordRequest) input() service.CreateRecordInput {
	var in service.CreateRecordInput
	if req.Name != nil {
		in.Name = string(*req.Name)
	}
	if req.Mac != nil {
		in.Mac = string(*req.Mac)
	}
	if req.Phone != nil {
		in.Phone = string(*req.Phone)
	}
	return in
}

func (req RecordRequest) patch() models.RecordPatch {
	return models.RecordPatch{
		Name:  req.Name.ptr(),
		Mac:   req.Mac.ptr(),
		Phone: req.Phone.ptr(),
	}
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.records.Find(r.Context(), models.RecordFilter{
		Name:  q.Get("name"),
		Mac:   q.Get("mac"),
		Phone: q.Get("phone"),
	})
	if err != nil {
		writeError(w, err, http.StatusConflict)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Records: records})
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err, http.StatusConflict)
		return
	}

	rec, err := h.records.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, RecordResponse{Record: rec})
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, RecordResponse{Record: rec})
}

// UpdateRecord applies a partial update. A duplicate MAC is a 400 here,
// unlike on create.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	rec, err := h.records.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, RecordResponse{Record: rec})
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, OkResponse{Ok: true})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.records.Stats(r.Context())
	if err != nil {
		writeError(w, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Feed upgrades to a websocket that receives record events until the
// client disconnects or its session marker expires.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}
	h.hub.Serve(conn, h.gate.Expiry(r))
}
