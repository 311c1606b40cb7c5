package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/trader/backend/backtest"
	"github.com/trader/backend/logger"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// requestWait is the time allowed for the client to send its request.
	requestWait = 30 * time.Second

	// maxMessageSize bounds the request message.
	maxMessageSize = 64 * 1024
)

// Stream message types.
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// StreamMessage is one frame sent on the backtest stream.
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamBacktest runs one backtest over a websocket, emitting a progress frame
// per ticker followed by a result or error frame.
func (s *Server) streamBacktest(c *gin.Context) {
	s.streams.Add(1)
	defer s.streams.Done()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(requestWait))

	// Shutdown unblocks a client that never sends its request.
	stopRead := context.AfterFunc(s.baseCtx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	var req backtest.Request
	err = conn.ReadJSON(&req)
	stopRead()
	if err != nil {
		send(conn, MessageError, &apiError{Message: "invalid request message"})
		closeNormally(conn)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	// The client sends nothing after its request; a read error means it went away.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	resp, apiErr := s.execute(ctx, req, func(p backtest.Progress) {
		send(conn, MessageProgress, p)
	})
	if apiErr != nil {
		send(conn, MessageError, apiErr)
	} else {
		send(conn, MessageResult, resp)
	}
	closeNormally(conn)
}

func send(conn *websocket.Conn, typ string, data interface{}) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := StreamMessage{Type: typ, Data: data, Timestamp: time.Now().UTC()}
	if err := conn.WriteJSON(msg); err != nil {
		logger.WithError(err).Debug("websocket write failed")
	}
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
