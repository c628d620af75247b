package progress

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // single-user local deployment
	},
}

// WSHandler upgrades the connection and keeps it registered until the client
// goes away. Incoming messages are ignored; the feed is one way.
func WSHandler(hub *Hub, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.Add(ws)
		log.Debug().Str("remote", ws.RemoteAddr().String()).Msg("progress client connected")

		_ = ws.WriteMessage(
			websocket.TextMessage,
			[]byte(`{"type":"welcome","feed":"reconcile-progress"}`),
		)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.Remove(ws)
		log.Debug().Msg("progress client disconnected")
	}
}
