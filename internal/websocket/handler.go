package websocket

import (
	"context"
	"errors"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dukerupert/potluck/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to WebSocket
// and runs them as Hub clients of the caller's household. Same-origin
// upgrades are always accepted; other origins must match originPatterns.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := auth.HouseholdID(r.Context())
		if householdID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, householdID)
		client.Run(r.Context())
	}
}

// StreamFunc produces values until ctx is done, handing each to send.
type StreamFunc func(ctx context.Context, send func(v any) error) error

// HandleStream returns an HTTP handler that upgrades the connection and
// writes every value produced by stream as a JSON text message. Incoming
// messages are discarded; the stream stops when the peer goes away.
func HandleStream(hub *Hub, originPatterns []string, stream func(r *http.Request) StreamFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		produce := stream(r)
		if produce == nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Error("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())
		err = produce(ctx, func(v any) error {
			return wsjson.Write(ctx, conn, v)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			hub.logger.Warn("websocket stream ended", "error", err)
			conn.Close(ws.StatusInternalError, "stream failed")
			return
		}
		conn.Close(ws.StatusNormalClosure, "")
	}
}
