package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	send chan AlertEvent
}

// serveAlerts upgrades the connection, streams the alert backlog, then
// registers the client for live events, per the history-before-live
// protocol yoghaf-market-indikator/internal/broadcast.serveWs follows.
func (s *Server) serveAlerts(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.lg.Warn("ws_upgrade_failed", "error", err.Error())
		return
	}
	client := &wsClient{conn: conn, send: make(chan AlertEvent, 256)}

	for _, e := range s.hub.buffer.all() {
		if err := conn.WriteJSON(e); err != nil {
			conn.Close()
			return
		}
	}

	s.hub.register <- client
	go client.writePump()
	client.readPump(s.hub)
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for e := range c.send {
		if err := c.conn.WriteJSON(e); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *wsClient) readPump(h *alertHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
