package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/94faddy/dz-wrokshop/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// handleWebSocketLogs upgrades the connection, authenticates the observer
// token, sends a burst of recent log records, then streams live records
// until the client disconnects (SPEC_FULL §4.6, §6).
func (s *Server) handleWebSocketLogs(w http.ResponseWriter, r *http.Request) {
	if s.verifier != nil {
		if _, err := s.verifier.Verify(r.URL.Query().Get("token")); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	sub := make(chan models.LogRecord, 64)
	unsubscribe := s.logBus.Subscribe(sub)
	defer unsubscribe()

	var lastBurstID uint64
	for _, rec := range s.logBus.Recent(50) {
		if err := writeLogRecord(conn, rec); err != nil {
			return
		}
		lastBurstID = rec.ID
	}

	go drainClientReads(conn)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-sub:
			if !ok {
				return
			}
			// Subscribe ran before Recent, so a record published in
			// between landed in both the burst and the live channel;
			// drop it here rather than deliver its id twice.
			if rec.ID <= lastBurstID {
				continue
			}
			if err := writeLogRecord(conn, rec); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeLogRecord(conn *websocket.Conn, rec models.LogRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// drainClientReads keeps the connection's read side pumping so pong
// frames and close frames are processed; the log stream never expects
// application messages from the client.
func drainClientReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
