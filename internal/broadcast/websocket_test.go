package broadcast

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NetSentinel/internal/model"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, g *Group) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(Handler(g))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return g.Len() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebsocketReceivesEvents(t *testing.T) {
	g := NewGroup("traffic_group")
	conn := dial(t, g)

	g.Publish(model.TrafficEvent(model.TrafficRecord{ID: 7, SourceIP: "10.0.0.1", Protocol: model.ProtocolUDP}))
	msg := readMessage(t, conn)
	assert.Equal(t, "traffic", msg["type"])
	data := msg["data"].(map[string]interface{})
	assert.Equal(t, "10.0.0.1", data["source_ip"])
	assert.Equal(t, float64(7), data["id"])

	g.Publish(model.SystemEvent("Model training complete and is now active."))
	msg = readMessage(t, conn)
	assert.Equal(t, "system", msg["type"])
	assert.Equal(t, "Model training complete and is now active.", msg["data"])
}

func TestWebsocketPingPong(t *testing.T) {
	g := NewGroup("traffic_group")
	conn := dial(t, g)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	msg := readMessage(t, conn)
	assert.Equal(t, "pong", msg["type"])
}

func TestWebsocketDisconnectUnsubscribes(t *testing.T) {
	g := NewGroup("traffic_group")
	conn := dial(t, g)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return g.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
