package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/talgya/dotarena/internal/dots"
	"github.com/talgya/dotarena/internal/engine"
)

const (
	maxStreamConns       = 8
	writeWait            = 10 * time.Second
	pongWait             = 60 * time.Second
	pingPeriod           = (pongWait * 9) / 10
	maxMessageSize       = 512
	maxMessagesPerSec    = 60
	defaultFrameInterval = 50 * time.Millisecond
)

type streamCounter struct {
	n atomic.Int32
}

func (c *streamCounter) Load() int32 { return c.n.Load() }

// DirectionInput steers a Manual dot. Clients send it as JSON text or as a
// msgpack binary message.
type DirectionInput struct {
	Index uint32  `json:"h" msgpack:"h"`
	Gen   uint32  `json:"g" msgpack:"g"`
	X     float64 `json:"x" msgpack:"x"`
	Z     float64 `json:"z" msgpack:"z"`
}

// inputError is sent back to the client when an input is rejected.
type inputError struct {
	Error string `json:"error" msgpack:"error"`
}

// handleStream upgrades to a websocket that pushes msgpack frames and accepts
// direction inputs for Manual dots.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if current := s.streams.n.Add(1); current > maxStreamConns {
		s.streams.n.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.n.Add(-1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	remote := clientIP(r)
	slog.Info("stream client connected", "remote", remote)

	rejects := make(chan string, 8)
	done := make(chan struct{})
	go s.readInputs(conn, remote, rejects, done)

	interval := s.FrameInterval
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	frames := time.NewTicker(interval)
	defer frames.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var buf []engine.DotView
	var lastTick uint64
	sent := false
	for {
		select {
		case <-done:
			slog.Info("stream client disconnected", "remote", remote)
			return
		case msg := <-rejects:
			if err := s.writeMsgpack(conn, inputError{Error: msg}); err != nil {
				return
			}
		case <-frames.C:
			frame := s.Sim.Frame(buf)
			buf = frame.Dots
			if sent && frame.Tick == lastTick {
				continue
			}
			sent, lastTick = true, frame.Tick
			if err := s.writeMsgpack(conn, &frame); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeMsgpack(conn *websocket.Conn, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// readInputs applies direction inputs until the connection fails. Clients
// that exceed the message rate are disconnected.
func (s *Server) readInputs(conn *websocket.Conn, remote string, rejects chan<- string, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var msgCount int
	var msgResetAt time.Time
	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("stream read error", "remote", remote, "error", err)
			}
			return
		}

		now := time.Now()
		if now.After(msgResetAt) {
			msgCount = 0
			msgResetAt = now.Add(time.Second)
		}
		msgCount++
		if msgCount > maxMessagesPerSec {
			slog.Warn("stream rate limit exceeded, disconnecting", "remote", remote)
			return
		}

		var in DirectionInput
		if msgType == websocket.BinaryMessage {
			err = msgpack.Unmarshal(message, &in)
		} else {
			err = json.Unmarshal(message, &in)
		}
		if err != nil {
			reject(rejects, "malformed input")
			continue
		}

		h := dots.Handle{Index: in.Index, Gen: in.Gen}
		if err := s.Sim.SetDirection(h, dots.Vec3{X: in.X, Z: in.Z}); err != nil {
			reject(rejects, err.Error())
		}
	}
}

// reject queues an error for the client, dropping it if the writer is behind.
func reject(rejects chan<- string, msg string) {
	select {
	case rejects <- msg:
	default:
	}
}
