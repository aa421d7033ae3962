package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/morshedkoli/macapp/internal/macsvc/apperr"
	"github.com/morshedkoli/macapp/internal/macsvc/gate"
	"github.com/morshedkoli/macapp/internal/macsvc/service"
	"github.com/morshedkoli/macapp/internal/macsvc/ws"
)

const maxBodyBytes = 1 << 20

var errBadBody = apperr.Validation("", "Invalid JSON body")

type Handler struct {
	records  *service.RecordService
	gate     *gate.Gate
	hub      *ws.Hub
	upgrader websocket.Upgrader
	driver   string
}

func NewHandler(records *service.RecordService, g *gate.Gate, hub *ws.Hub, driver string, origins []string) *Handler {
	return &Handler{
		records: records,
		gate:    g,
		hub:     hub,
		driver:  driver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

// checkOrigin admits same-origin requests and the configured CORS origins.
func checkOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[origin] {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("unable to write response: %v", err)
	}
}

// writeError translates err to its status. conflict is the status used for
// a duplicate MAC, which differs between create and update.
func writeError(w http.ResponseWriter, err error, conflict int) {
	code := statusFor(apperr.KindOf(err), conflict)
	if code == http.StatusInternalServerError && apperr.KindOf(err) == apperr.KindUnknown {
		log.Errorf("unhandled error: %v", err)
		writeJSON(w, code, ErrorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, code, ErrorResponse{Error: apperr.Message(err), Field: apperr.FieldOf(err)})
}

func statusFor(kind apperr.Kind, conflict int) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return conflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) locked(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, err, http.StatusConflict)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errBadBody
}

// text is a request field that also accepts a bare JSON number, so
// {"pin":1234} reads the same as {"pin":"1234"}.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

func (t *text) ptr() *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: h.driver})
}
