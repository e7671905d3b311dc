package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", want, h.ClientCount())
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	defer h.Close()

	conn, cleanup := dialHub(t, h)
	defer cleanup()
	waitForClients(t, h, 1)

	h.Broadcast(Event{
		Type:    EventPaymentApproved,
		Owner:   "owner-wallet",
		VaultID: 1,
		Data:    map[string]interface{}{"amount": 100},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))

	assert.Equal(t, EventPaymentApproved, ev.Type)
	assert.Equal(t, "owner-wallet", ev.Owner)
	assert.Equal(t, uint64(1), ev.VaultID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	h := NewHub()
	conn, cleanup := dialHub(t, h)
	defer cleanup()
	waitForClients(t, h, 1)

	h.Close()
	assert.Equal(t, 0, h.ClientCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
