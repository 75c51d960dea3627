package kds

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-reservation/notify"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newTestHub() *Hub {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHub(log)
}

func TestHub_NotifyBroadcastsToClients(t *testing.T) {
	hub := newTestHub()
	staff, admin := &fakeConn{}, &fakeConn{}
	hub.RegisterClient(staff, "staff")
	hub.RegisterClient(admin, "admin")

	err := hub.Notify(context.Background(), notify.Notification{
		Kind:          notify.ReservationConfirmed,
		ReservationID: "r1",
		ResourceID:    "t1",
	})
	require.NoError(t, err)

	for _, c := range []*fakeConn{staff, admin} {
		require.Len(t, c.messages, 1)
		var msg struct {
			Event string              `json:"event"`
			Data  notify.Notification `json:"data"`
		}
		require.NoError(t, json.Unmarshal(c.messages[0], &msg))
		assert.Equal(t, "reservation_confirmed", msg.Event)
		assert.Equal(t, "r1", msg.Data.ReservationID)
	}
}

func TestHub_DropsFailingClient(t *testing.T) {
	hub := newTestHub()
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	hub.RegisterClient(good, "staff")
	hub.RegisterClient(bad, "staff")

	require.NoError(t, hub.Broadcast(Message{Event: "ping"}))
	assert.Equal(t, 1, hub.Clients())
	assert.True(t, bad.closed)
	assert.Len(t, good.messages, 1)
}

func TestHub_Unregister(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}
	hub.RegisterClient(c, "admin")
	hub.UnregisterClient(c)
	hub.UnregisterClient(c)

	assert.Zero(t, hub.Clients())
	assert.True(t, c.closed)
	require.NoError(t, hub.Broadcast(Message{Event: "ping"}))
	assert.Empty(t, c.messages)
}
