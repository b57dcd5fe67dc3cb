package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches conn to hub under key and blocks until the connection
// ends. A non-nil greeting is queued before anything else.
func ServeWs(hub *Hub, conn *websocket.Conn, key string, greeting []byte, onMessage MessageHandler) {
	client := NewClient(hub, conn, key, onMessage)
	hub.Attach(client)
	if greeting != nil {
		hub.offer(client, greeting)
	}

	// writePump owns the writes; readPump runs in the handler goroutine.
	go client.writePump()
	client.readPump()
}

// Reply queues data for c directly, bypassing the key lookup. Used for
// answers that belong to this connection only, such as pong.
func Reply(c *Client, data []byte) bool {
	return c.Hub.offer(c, data)
}
