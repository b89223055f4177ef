package adapthttp

import (
	"net/http"
	"time"

	"earnlog/internal/domain"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8 * 1024,
}

// streamMessage is one websocket frame: the rebuilt projection and its
// totals.
type streamMessage struct {
	Records []domain.Record `json:"records"`
	Totals  domain.Totals   `json:"totals"`
	State   string          `json:"state"`
}

// handleStream upgrades to a websocket and pushes a message on every
// projection rebuild, starting with the current state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	// Pin the engine for the life of this stream; an identity change
	// replaces the engine, and this stream ends with the old one.
	eng := s.engine()

	updates := make(chan []domain.Record, 8)
	cancel := eng.OnChange(func(records []domain.Record) {
		select {
		case updates <- records:
		default:
			// slow consumer; it will catch up on the next rebuild
		}
	})
	defer cancel()
	defer conn.Close() //nolint:errcheck

	// Drain reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(done)
				return
			}
		}
	}()

	send := func(records []domain.Record) error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(streamMessage{
			Records: records,
			Totals:  domain.Aggregate(records),
			State:   eng.State().String(),
		})
	}

	if err := send(eng.Records()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case records := <-updates:
			if err := send(records); err != nil {
				return
			}
		}
	}
}
