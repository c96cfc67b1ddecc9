package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds what a viewer may send; viewers only send control frames.
	maxMessageSize = 4 * 1024

	// sendBuffer is the per-client queue length.
	sendBuffer = 64
)

// conn is the part of *websocket.Conn the pumps use.
type conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single websocket connection.
type Client struct {
	hub  *Hub
	conn conn
	send chan Message

	// done is closed when writePump returns.
	done chan struct{}
}

// Serve registers conn with the hub and pumps messages until the
// connection or the hub closes. It returns only after the writer has
// stopped, since the handler recycles conn once Serve returns.
func Serve(h *Hub, c *websocket.Conn) {
	serve(h, c)
}

func serve(h *Hub, ws conn) {
	c := &Client{
		hub:  h,
		conn: ws,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
	if !h.attach(c) {
		ws.Close()
		return
	}
	go c.writePump()
	c.readPump() // Blocks until connection closes
	<-c.done
}

// readPump reads from the connection to detect disconnection and pongs.
// Detaching closes send, which stops writePump.
func (c *Client) readPump() {
	defer c.hub.detach(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump is the only goroutine that writes to or closes the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message.Data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
