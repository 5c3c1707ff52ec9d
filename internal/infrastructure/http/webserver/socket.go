package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const socketWriteWait = 5 * time.Second

// handleOrderSocket pushes one progress fragment per tick until the order
// completes or the client goes away
func (s *WebServer) handleOrderSocket(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.State.SelectedRecipe == nil {
		http.Error(w, "No recipe selected", http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Clear the deadline inherited from the server's ReadTimeout
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything; reading only surfaces the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		progress := s.progressFor(sess, true)
		if err := s.pushProgress(conn, progress); err != nil {
			s.logger.Debug("Websocket write failed", zap.Error(err))
			return
		}

		if !progress.Snapshot.Processing() {
			if progress.Snapshot.Done() {
				s.persistCompletion(ctx, sess.Token)
			}
			deadline := time.Now().Add(socketWriteWait)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(progress.Snapshot.State)),
				deadline)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *WebServer) pushProgress(conn *websocket.Conn, progress progressData) error {
	body, err := s.templates.fragment("order_progress", progress)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(socketWriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, body)
}

// persistCompletion re-reads the stored session so requests served while
// the socket was open are not overwritten, then records the completed order
func (s *WebServer) persistCompletion(ctx context.Context, token string) {
	err := s.deps.Sessions.Update(context.WithoutCancel(ctx), token, func(sess *Session) {
		s.deps.Simulator.Tick(&sess.State.Order)
	})
	if err != nil {
		s.logger.Warn("Failed to persist completed order", zap.Error(err))
	}
}
