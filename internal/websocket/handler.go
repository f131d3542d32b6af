package websocket

import (
	"log"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/ebenavides/ekklesia/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients. The auth middleware must run
// first; the principal decides which broadcasts the client receives.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Browser clients connect from the SPA origin
		})
		if err != nil {
			log.Printf("websocket: accept: %v", err)
			return
		}

		var churchID int64
		if ac.ChurchID != nil {
			churchID = *ac.ChurchID
		}

		client := NewClient(hub, conn, churchID, ac.Role.CrossTenant)
		client.Run(r.Context())
	}
}
