package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vidstream/gateway/internal/storage"
	"github.com/vidstream/gateway/internal/types"
	wsClient "github.com/vidstream/gateway/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway serves a public web client; origins are not restricted.
		return true
	},
}

// Handler upgrades the connection, registers it with the hub and replays
// records updated since the client's catch-up token as one batch update.
func Handler(hub *wsClient.Hub, catalog storage.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := sinceFromToken(r.URL.Query().Get("token"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade notification connection", slog.String("error", err.Error()))
			return
		}

		client := wsClient.NewClient(conn, hub)
		hub.RegisterClient(client)
		client.Start()

		// The request context dies with the handler; the catch-up query
		// outlives it on the hijacked connection.
		records, err := catalog.FindVideosUpdatedSince(context.Background(), since)
		if err != nil {
			slog.Error("failed to query catch-up records", slog.String("error", err.Error()))
			return
		}

		// Nothing changed since the token; an empty batch is not worth a message.
		if len(records) == 0 {
			return
		}

		videos := make([]types.PublicVideo, len(records))
		for i, record := range records {
			videos[i] = record.Public(0)
		}

		if err := client.SendEvent(types.NewBatchVideoUpdate(videos)); err != nil {
			slog.Error("failed to send catch-up batch", slog.String("error", err.Error()))
		}
	}
}

// sinceFromToken turns a client-supplied token into the catch-up cutoff. A
// missing or invalid token means "since epoch": the client gets everything.
func sinceFromToken(token string) time.Time {
	ms, err := strconv.ParseInt(token, 10, 64)
	if err != nil || ms < 0 {
		return time.UnixMilli(0)
	}
	return time.UnixMilli(ms)
}
