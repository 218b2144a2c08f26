package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/debate"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const watchWriteWait = 10 * time.Second

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Watch streams a debate's frames over a WebSocket: history replay first,
// then live frames. The server closes the socket after the result frame.
// GET /v1/debates/:debateID/watch
func (h *DebateHandler) Watch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "debateID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	frames, cancel, err := h.mgr.Watch(id)
	if err != nil {
		if errors.Is(err, debate.ErrDebateNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to watch debate")
		return
	}
	defer cancel()

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	// The stream is one-way; the read pump only notices the client
	// going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				deadline := time.Now().Add(watchWriteWait)
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}
