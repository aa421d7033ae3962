package broker

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morshedkoli/macapp/internal/comm"
	"github.com/morshedkoli/macapp/internal/macsvc/models"
)

type fakeLocal struct {
	mu     sync.Mutex
	events []comm.RecordEvent
}

func (f *fakeLocal) Broadcast(e comm.RecordEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func TestNotify_WithoutNatsGoesLocal(t *testing.T) {
	t.Parallel()

	local := &fakeLocal{}
	b := NewBroker(nil, local)

	b.Notify(comm.RecordEvent{Type: comm.RecordCreated, Record: models.Record{ID: "r1"}})

	require.Len(t, local.events, 1)
	assert.Equal(t, "r1", local.events[0].Record.ID)

	sub, err := b.Subscribe()
	assert.NoError(t, err)
	assert.Nil(t, sub)
}

func TestHandleMessage_RelaysToLocal(t *testing.T) {
	t.Parallel()

	local := &fakeLocal{}
	b := NewBroker(nil, local)

	event := comm.RecordEvent{
		Type:     comm.RecordUpdated,
		Record:   models.Record{ID: "r2", Mac: "aabbccddeeff"},
		Instance: "other",
		At:       time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	b.handleMessage(&nats.Msg{Subject: comm.RecordsSubject, Data: data})
	b.handleMessage(&nats.Msg{Subject: comm.RecordsSubject, Data: []byte("{not json")})

	require.Len(t, local.events, 1)
	assert.Equal(t, event, local.events[0])
}
