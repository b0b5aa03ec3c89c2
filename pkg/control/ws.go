package control

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/user/cliprec/pkg/pipeline"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 30 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// Message types on the WebSocket.
const (
	MsgStatus = "status" // server → client
	MsgAck    = "ack"    // server → client
	MsgKey    = "key"    // client → server
	MsgEvent  = "event"  // client → server
)

// Message is one WebSocket frame in either direction.
type Message struct {
	Type   string  `json:"type"`
	Key    string  `json:"key,omitempty"`
	Action string  `json:"action,omitempty"`
	Event  string  `json:"event,omitempty"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// stream pushes every snapshot to the client and turns incoming key and
// event messages into recorder events. A client that disconnects while
// holding the record key stops the open segment.
func (s *Server) stream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	snaps, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	acks := make(chan Message, 8)
	holding := make(chan bool, 1)
	go func() {
		holding <- s.readLoop(ctx, conn, acks)
		cancel()
	}()

	s.writeLoop(ctx, conn, snaps, acks)
	cancel()
	conn.Close()

	if <-holding {
		s.log.Info("Client disconnected while recording, stopping segment")
		if err := s.ctrl.Do(context.Background(), pipeline.EventStop); pipeline.IsRejection(err) {
			s.log.Warn("Stop after disconnect failed: %v", err)
		}
	}
}

// writeLoop is the only writer on conn.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, snaps <-chan pipeline.Snapshot, acks <-chan Message) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		var msg Message
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case snap := <-snaps:
			st := NewStatus(snap)
			msg = Message{Type: MsgStatus, Status: &st}
		case msg = <-acks:
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Debug("WebSocket write failed: %v", err)
			return
		}
	}
}

// readLoop handles client messages until the connection fails. It reports
// whether the client was still holding the record key.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, acks chan<- Message) bool {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	holding := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return holding
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var in Message
		if err := json.Unmarshal(data, &in); err != nil {
			s.send(ctx, acks, Message{Type: MsgAck, Error: "invalid message"})
			continue
		}

		ev, ok := s.eventFor(in)
		if !ok {
			s.send(ctx, acks, Message{Type: MsgAck, Error: "unknown input"})
			continue
		}

		err = s.ctrl.Do(ctx, ev)
		switch {
		case ev == pipeline.EventStart && err == nil:
			holding = true
		case ev == pipeline.EventStop:
			holding = false
		}

		ack := Message{Type: MsgAck, Event: ev.String()}
		if pipeline.IsRejection(err) {
			ack.Error = err.Error()
		}
		s.send(ctx, acks, ack)
	}
}

func (s *Server) eventFor(in Message) (pipeline.Event, bool) {
	switch in.Type {
	case MsgKey:
		return KeyEvent(in.Key, in.Action)
	case MsgEvent:
		ev, err := pipeline.ParseEvent(in.Event)
		return ev, err == nil
	}
	return 0, false
}

func (s *Server) send(ctx context.Context, acks chan<- Message, msg Message) {
	select {
	case acks <- msg:
	case <-ctx.Done():
	}
}
