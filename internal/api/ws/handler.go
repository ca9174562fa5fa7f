// Package ws streams loop notifications over WebSocket and accepts control
// messages from the same connection.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/loopify/internal/app/control"
	"github.com/osa030/loopify/internal/app/notification"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/media"
)

const writeTimeout = time.Second

// TypeResult is the type of replies to client messages.
const TypeResult = "result"

// ClientMessage is a control message sent by a client. Command, when set,
// names a media command; otherwise StateIndex and LoopCount form a partial
// loop update.
type ClientMessage struct {
	Command    string `json:"command,omitempty"`
	StateIndex *int   `json:"state_index,omitempty"`
	LoopCount  *int   `json:"loop_count,omitempty"`
}

// Result answers a client message.
type Result struct {
	Type   string                  `json:"type"`
	Status string                  `json:"status"`
	Error  string                  `json:"error,omitempty"`
	Loop   *notification.LoopState `json:"loop,omitempty"`
}

// Handler serves the notification stream.
type Handler struct {
	svc      *control.Service
	notifier *notification.Manager
	origins  []string
}

// NewHandler creates a new stream handler. Browsers may only connect from
// the request host or an origin whose host matches one of originPatterns.
func NewHandler(svc *control.Service, notifier *notification.Manager, originPatterns []string) *Handler {
	return &Handler{svc: svc, notifier: notifier, origins: originPatterns}
}

// ServeHTTP upgrades the connection, sends the initial state and then
// forwards every broadcast notification until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		zlog.Warn().Msgf("ws accept failed: origin=%q error=%v", r.Header.Get("Origin"), err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx := r.Context()
	stream := &connStream{ctx: ctx, conn: conn}

	cfg, phase := h.svc.GetStatus()
	initial := notification.InitialState(cfg, phase)
	initial.SequenceNo = h.notifier.NextSequenceNo()
	if err := stream.Send(initial); err != nil {
		zlog.Debug().Msgf("ws initial state failed: %v", err)
		return
	}

	id := h.notifier.Subscribe(stream)
	defer h.notifier.Unsubscribe(id)
	zlog.Info().Msgf("ws client connected: subscription=%s remote=%s", id, r.RemoteAddr)

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				zlog.Info().Msgf("ws client disconnected: subscription=%s", id)
			} else {
				zlog.Debug().Msgf("ws read failed: subscription=%s error=%v", id, err)
			}
			return
		}

		if err := stream.write(h.handle(ctx, msg)); err != nil {
			zlog.Debug().Msgf("ws reply failed: subscription=%s error=%v", id, err)
			return
		}
	}
}

func (h *Handler) handle(ctx context.Context, msg ClientMessage) *Result {
	if msg.Command != "" {
		cmd, err := media.ParseCommand(msg.Command)
		if err == nil {
			err = h.svc.Execute(ctx, cmd)
		}
		if err != nil {
			return &Result{Type: TypeResult, Status: "error", Error: err.Error()}
		}
		return &Result{Type: TypeResult, Status: "ok"}
	}

	var p loop.Patch
	if msg.StateIndex != nil {
		m := loop.Mode(*msg.StateIndex)
		p.Mode = &m
	}
	p.TargetCount = msg.LoopCount
	if p.IsEmpty() {
		return &Result{Type: TypeResult, Status: "error", Error: "message has no command or loop fields"}
	}

	cfg, err := h.svc.SetLoop(p)
	if err != nil {
		return &Result{Type: TypeResult, Status: "error", Error: err.Error()}
	}
	state := notification.NewLoopState(cfg)
	return &Result{Type: TypeResult, Status: "ok", Loop: &state}
}

// connStream adapts a WebSocket connection to notification.Stream.
type connStream struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (s *connStream) Send(n *notification.Notification) error {
	return s.write(n)
}

func (s *connStream) write(v any) error {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, v)
}
