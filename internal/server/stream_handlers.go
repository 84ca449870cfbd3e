package server

import (
	"time"

	"github.com/Prototype-1/UserDirectory/internal/metrics"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const streamWriteTimeout = 10 * time.Second

// StreamUsers sends the directory snapshot on connect and again after every
// change until the client goes away or the directory closes.
func (s *Server) StreamUsers(conn *websocket.Conn) {
	clientID := uuid.NewString()
	log := s.logger.With(zap.String("client_id", clientID))

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	changes, stop := s.directory.Watch()
	defer stop()

	// Reads only detect the client going away; inbound messages are ignored.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Info("Stream client connected")
	defer log.Info("Stream client disconnected")

	if err := s.writeSnapshot(conn); err != nil {
		log.Debug("Stream write failed", zap.Error(err))
		return
	}

	for {
		select {
		case <-gone:
			return
		case _, ok := <-changes:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "directory closed"),
					time.Now().Add(time.Second))
				return
			}
			if err := s.writeSnapshot(conn); err != nil {
				log.Debug("Stream write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(s.directory.Snapshot())
}
