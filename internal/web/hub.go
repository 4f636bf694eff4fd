package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// publish broadcasts the job's current state and schedules a stats update.
func (s *Server) publish(job *Job) {
	s.mu.RLock()
	snapshot := *job
	s.mu.RUnlock()
	s.emit(event{Type: "job", Job: &snapshot})
	s.statsSoon(s.publishStats)
}

func (s *Server) publishStats() {
	st := s.stats()
	s.emit(event{Type: "stats", Stats: &st})
}

func (s *Server) emit(evt event) {
	data, err := json.Marshal(evt)
	if err != nil {
		s.log.Printf("encode %s event: %v", evt.Type, err)
		return
	}
	select {
	case s.broadcast <- data:
	default:
		// drop if nobody drains the channel
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	// new clients start from the current totals
	st := s.stats()
	if data, err := json.Marshal(event{Type: "stats", Stats: &st}); err == nil {
		client.send <- data
	}

	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			s.clientsMu.Lock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(s.clients, client)
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

func (s *Server) dropClient(c *websocketClient) {
	s.clientsMu.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
	s.clientsMu.Unlock()
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.dropClient(c)
		c.conn.Close()
	}()

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

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
