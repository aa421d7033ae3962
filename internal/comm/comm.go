package comm

import (
	"time"

	"github.com/morshedkoli/macapp/internal/macsvc/models"
)

const RecordsSubject = "macapp.records"

type EventType string

const (
	RecordCreated EventType = "created"
	RecordUpdated EventType = "updated"
	RecordDeleted EventType = "deleted"
)

// RecordEvent is published after a record write and relayed to live feed clients.
type RecordEvent struct {
	Type     EventType     `json:"type"`
	Record   models.Record `json:"record"`
	Instance string        `json:"instance"` // service instance that performed the write
	At       time.Time     `json:"at"`
}

type WSMessage struct {
	Type  string       `json:"type"` // "record" or "error"
	Event *RecordEvent `json:"event,omitempty"`
	Error string       `json:"error,omitempty"`
}
