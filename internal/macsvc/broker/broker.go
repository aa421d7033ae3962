package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/morshedkoli/macapp/internal/comm"
)

// Local receives events for clients attached to this instance.
type Local interface {
	Broadcast(event comm.RecordEvent)
}

// Broker delivers record events. With a NATS connection every instance sees
// every write; without one events only reach this instance's clients.
type Broker struct {
	Conn    *nats.Conn
	Subject string
	local   Local
}

func NewBroker(nc *nats.Conn, local Local) *Broker {
	return &Broker{
		Conn:    nc,
		Subject: comm.RecordsSubject,
		local:   local,
	}
}

// Notify never fails the caller; delivery problems are only logged.
func (b *Broker) Notify(event comm.RecordEvent) {
	if b.Conn == nil {
		b.local.Broadcast(event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Error encoding %s event: %s", event.Type, err)
		return
	}
	if err := b.Conn.Publish(b.Subject, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", b.Subject, err)
		// the writer's own clients still hear about it
		b.local.Broadcast(event)
	}
}

// Subscribe relays events from every instance to local clients.
func (b *Broker) Subscribe() (*nats.Subscription, error) {
	if b.Conn == nil {
		return nil, nil
	}
	return b.Conn.Subscribe(b.Subject, b.handleMessage)
}

func (b *Broker) handleMessage(msg *nats.Msg) {
	var event comm.RecordEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}
	b.local.Broadcast(event)
}
