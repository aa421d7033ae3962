package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/morshedkoli/macapp/internal/comm"
)

const (
	_writeWait  = 10 * time.Second
	_pongWait   = 60 * time.Second
	_pingPeriod = (_pongWait * 9) / 10
	_sendBuffer = 16
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan comm.WSMessage
}

// Hub fans record events out to the connected live feed sockets.
type Hub struct {
	connMap sync.Map // socket id -> *client
}

func NewHub() *Hub {
	return &Hub{}
}

// Serve registers conn and blocks until the peer goes away. A non-zero
// expires ends the feed with a policy violation close once it passes.
func (h *Hub) Serve(conn *websocket.Conn, expires time.Time) {
	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan comm.WSMessage, _sendBuffer),
	}
	h.connMap.Store(c.id, c)
	log.Infof("New WebSocket connection established: %s", c.id)

	done := make(chan struct{})
	go h.writePump(c, done, expires)
	h.readPump(c)

	close(done)
	h.connMap.Delete(c.id)
	conn.Close()
	log.Infof("Closing WebSocket connection: %s", c.id)
}

// readPump only watches for close and pong frames; the feed is one way.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(_pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(_pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", c.id, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client, done <-chan struct{}, expires time.Time) {
	ticker := time.NewTicker(_pingPeriod)
	defer ticker.Stop()

	var expired <-chan time.Time
	if !expires.IsZero() {
		timer := time.NewTimer(time.Until(expires))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-done:
			return
		case <-expired:
			log.Infof("session behind socket %s expired, closing", c.id)
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(_writeWait))
			c.conn.Close()
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(_writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Warnf("write to socket %s failed: %v", c.id, err)
				c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(_writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// Broadcast queues event for every client. A client whose buffer is full
// misses the event rather than stalling the others.
func (h *Hub) Broadcast(event comm.RecordEvent) {
	msg := comm.WSMessage{Type: "record", Event: &event}
	h.connMap.Range(func(key, value any) bool {
		c := value.(*client)
		select {
		case c.send <- msg:
		default:
			log.Warnf("socket %s is slow, dropping %s event", c.id, event.Type)
		}
		return true
	})
}

func (h *Hub) Count() int {
	count := 0
	h.connMap.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
