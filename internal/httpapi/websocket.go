package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is unauthenticated and read-only over this channel.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStatusStream godoc
// @Summary      Status stream
// @Description  Websocket that pushes the /status document immediately and then every status interval.
// @Tags         status
// @Success      101
// @Router       /ws/status [get]
func (s *server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		return
	}
	defer conn.Close()

	// Drain client frames so close and ping control messages are handled.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	t := time.NewTicker(statusInterval)
	defer t.Stop()
	for {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(s.svc.Status()); err != nil {
			return
		}
		select {
		case <-t.C:
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-serverBaseCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		}
	}
}
