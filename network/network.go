package network

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mallathon/protocol"
	"mallathon/room"
)

const (
	readLimit    = 1 << 20 // 1MB
	pongWait     = 60 * time.Second
	pingEvery    = 25 * time.Second
	writeWait    = 10 * time.Second
	helloWait    = 10 * time.Second
	sendQueueLen = 64
)

var (
	errSendQueueFull = errors.New("send queue full")
	errConnClosed    = errors.New("connection closed")
)

var upgrader = websocket.Upgrader{
	// For dev, allow all origins. Lock this down in prod.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a websocket to room.Conn. Send never blocks the room loop:
// frames are queued and written by writePump.
type wsConn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	pumped    chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:     ws,
		send:   make(chan []byte, sendQueueLen),
		done:   make(chan struct{}),
		pumped: make(chan struct{}),
	}
}

func (c *wsConn) Send(b []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSendQueueFull
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// writePump owns every write to ws. On Close it flushes what is queued,
// sends a close frame and tears the socket down, which ends the read loop.
func (c *wsConn) writePump() {
	defer close(c.pumped)
	defer c.ws.Close()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case b := <-c.send:
			if err := c.write(websocket.TextMessage, b); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			for {
				select {
				case b := <-c.send:
					if err := c.write(websocket.TextMessage, b); err != nil {
						return
					}
				default:
					_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *wsConn) write(kind int, b []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(kind, b)
}

// deliver hands cmd to the room loop unless the room has already stopped.
func deliver(ctx context.Context, r *room.Room, cmd any) bool {
	select {
	case r.Inbox <- cmd:
		return true
	case <-r.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing room code")
		return
	}

	// Upgrade HTTP -> WebSocket
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	conn := newWSConn(ws)
	go conn.writePump()
	defer func() {
		conn.Close()
		<-conn.pumped
	}()

	// Basic timeouts + pong handling (keeps connections healthy)
	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(helloWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	log := s.log.With(zap.String("room", code))
	hello, err := readHello(ws)
	if err != nil {
		log.Debug("no hello", zap.Error(err))
		return
	}

	rm := s.rooms.GetOrCreateRoom(code)
	ctx := r.Context()
	reply := make(chan room.JoinResult, 1)
	if !deliver(ctx, rm, room.Join{Conn: conn, Name: hello.Name, Sensing: hello.Sensing, Reply: reply}) {
		return
	}
	var joined room.JoinResult
	select {
	case joined = <-reply:
	case <-rm.Done():
		return
	case <-ctx.Done():
		return
	}
	log = log.With(zap.String("player", joined.PlayerID))

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	s.readLoop(ctx, ws, rm, joined.PlayerID, log)
	deliver(context.WithoutCancel(ctx), rm, room.Leave{PlayerID: joined.PlayerID})
}

func readHello(ws *websocket.Conn) (protocol.Hello, error) {
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return protocol.Hello{}, err
	}
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil {
		return protocol.Hello{}, err
	}
	if env.T != protocol.MsgHello {
		return protocol.Hello{}, errors.New("first message must be hello")
	}
	if len(env.P) == 0 {
		return protocol.Hello{}, nil
	}
	return protocol.DecodePayload[protocol.Hello](env)
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, rm *room.Room, playerID string, log *zap.Logger) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read", zap.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		env, err := protocol.DecodeEnvelope(msg)
		if err != nil {
			log.Debug("bad envelope", zap.Error(err))
			continue
		}
		var cmd any
		switch env.T {
		case protocol.MsgSample:
			sample, err := protocol.DecodePayload[protocol.Sample](env)
			if err != nil {
				log.Debug("bad sample", zap.Error(err))
				continue
			}
			cmd = room.Sample{PlayerID: playerID, Sample: sample}
		case protocol.MsgStep:
			var step protocol.Step
			if len(env.P) > 0 {
				if step, err = protocol.DecodePayload[protocol.Step](env); err != nil {
					log.Debug("bad step", zap.Error(err))
					continue
				}
			}
			cmd = room.ManualStep{PlayerID: playerID, T: step.T}
		case protocol.MsgStart:
			cmd = room.Start{}
		case protocol.MsgPause:
			cmd = room.Pause{}
		default:
			log.Debug("unknown message", zap.String("t", env.T))
			continue
		}
		if !deliver(ctx, rm, cmd) {
			return
		}
	}
}
