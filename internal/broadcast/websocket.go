package broadcast

import (
	"net/http"
	"time"

	"NetSentinel/internal/logging"
	"NetSentinel/internal/model"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Message types exchanged with websocket observers.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is the websocket envelope; Type is the event kind.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewMessage wraps an event in its websocket envelope.
func NewMessage(e model.Event) Message {
	return Message{Type: string(e.Kind), Data: e.Data()}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades requests to websocket observers of g.
func Handler(g *Group) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
			return
		}
		c := &client{
			group: g,
			conn:  conn,
			sub:   g.Subscribe(DefaultBuffer),
			pongs: make(chan struct{}, 1),
			done:  make(chan struct{}),
		}
		logging.Info().Str("remote", r.RemoteAddr).Uint64("subscription", c.sub.ID()).Msg("websocket observer connected")
		go c.writePump()
		go c.readPump()
	})
}

type client struct {
	group *Group
	conn  *websocket.Conn
	sub   *Subscription
	pongs chan struct{}
	done  chan struct{}
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.group.Unsubscribe(c.sub)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Msg("unexpected websocket close")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == MessageTypePing {
			select {
			case c.pongs <- struct{}{}:
			default:
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.sub.C:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(NewMessage(e)); err != nil {
				return
			}
		case <-c.pongs:
			if err := c.write(Message{Type: MessageTypePong}); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error().Err(err).Str("type", msg.Type).Msg("failed to encode websocket message")
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
