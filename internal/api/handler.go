package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/matheodrd/httphelper/handler"

	"navigate-map/internal/navigation"
)

func (s *Server) wsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			return handler.NewErrWithStatus(http.StatusBadRequest, errors.New("missing user_id"))
		}

		variant := navigation.Variant(r.URL.Query().Get("variant"))
		if variant != "" && !variant.IsValid() {
			return handler.NewErrWithStatus(http.StatusBadRequest, fmt.Errorf("invalid variant %q", variant))
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, fmt.Errorf("websocket accept: %w", err))
		}

		if err := s.WebsocketManager.HandleNewConnection(userID, variant, conn); err != nil {
			s.logger.Error("failed to start navigation session", "userID", userID, "error", err)
			_ = conn.Close(websocket.StatusInternalError, "session unavailable")
		}
		return nil
	})
}
