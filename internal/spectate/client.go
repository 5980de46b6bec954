package spectate

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Spectators never send anything meaningful
	maxMessageSize = 512

	sendBuffer = 16
)

type client struct {
	conn   *websocket.Conn
	clock  quartz.Clock
	remote string
	send   chan []byte

	once sync.Once
	done chan struct{}
}

func newClient(conn *websocket.Conn, clock quartz.Clock, remote string) *client {
	return &client{
		conn:   conn,
		clock:  clock,
		remote: remote,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// trySend queues a message, reporting false if the client is not keeping up.
func (c *client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump discards incoming frames so pongs and close frames are handled.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(deadline(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(deadline(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// deadline is in wall time; the socket compares it against the OS clock.
func deadline(d time.Duration) time.Time {
	return time.Now().Add(d)
}

func (c *client) writePump() {
	ticker := c.clock.NewTicker(pingPeriod, "spectate", "ping")
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(deadline(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(deadline(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(deadline(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
