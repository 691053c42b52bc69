package api

import (
	"encoding/json"
	"net/http"
	"time"

	"limitbook/internal/common"
	"limitbook/internal/fanout"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket implements GET /ws (spec.md §6.2): on connect, the
// observer is attached and immediately receives a CONNECTION_ESTABLISHED
// event carrying the current snapshot; subsequently it receives every
// broadcast event until it disconnects or falls behind.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	snapshot, err := s.engine.Snapshot(common.Equities, pushSnapshotDepth)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket: snapshot failed")
		_ = conn.Close()
		return
	}

	obs := s.hub.Attach(snapshot)
	defer s.hub.Detach(obs.ID)

	done := make(chan struct{})
	pongRequests := make(chan struct{}, 1)
	go s.readPump(conn, done, pongRequests)
	s.writePump(conn, obs.Send, pongRequests, done)
}

// readPump drains client frames, signalling writePump on a `{"type":"ping"}`
// request (spec.md §6.2) since gorilla/websocket forbids more than one
// concurrent writer per connection, and closes done once the connection
// dies so writePump can exit.
func (s *Server) readPump(conn *websocket.Conn, done chan struct{}, pongRequests chan<- struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("websocket: ignoring non-JSON message")
			continue
		}
		if msg.Type == "ping" {
			select {
			case pongRequests <- struct{}{}:
			default:
			}
		}
	}
}

// writePump is the single goroutine allowed to write to conn, per
// gorilla/websocket's rule that a connection supports one concurrent
// writer; it serializes fanout events, pong replies, and periodic pings
// onto it.
func (s *Server) writePump(conn *websocket.Conn, send <-chan fanout.Event, pongRequests <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case event, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(eventToWire(event)); err != nil {
				return
			}
		case <-pongRequests:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(struct {
				Type string `json:"type"`
			}{Type: "pong"}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
