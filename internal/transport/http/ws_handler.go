package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Name   string      `json:"name"`
	Matric string      `json:"matric"`
	Field  string      `json:"field"`
	Mode   domain.Mode `json:"mode"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type questionPayload struct {
	Question      domain.Question `json:"question"`
	Cursor        int             `json:"cursor"`
	Total         int             `json:"total"`
	TimeRemaining int             `json:"timeRemaining"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and lets the client drive the active attempt.
// Every session event is forwarded to the socket as it happens.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.service.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendError := func(err error) {
		code, _ := classify(err)
		send <- outboundMessage[any]{Type: "error", Payload: errorBody{Code: code, Message: err.Error()}}
	}
	sendState := func(snap app.Snapshot) {
		send <- outboundMessage[any]{Type: "state", Payload: snap}
		if snap.Question != nil {
			send <- outboundMessage[any]{Type: "question", Payload: questionPayload{
				Question:      *snap.Question,
				Cursor:        snap.Cursor,
				Total:         snap.Total,
				TimeRemaining: snap.TimeRemaining,
			}}
		}
	}

	sendState(h.service.Snapshot())

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ctx := r.Context()
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError(errors.Join(domain.ErrInvalidInput, err))
				continue
			}
			identity := domain.Identity{DisplayName: payload.Name, Matric: payload.Matric, Category: payload.Field}
			var snap app.Snapshot
			if payload.Mode == domain.ModeCompetition {
				snap, err = h.service.StartCompetition(ctx, identity)
			} else {
				snap, err = h.service.StartStandard(ctx, identity)
			}
			if err != nil {
				sendError(err)
				continue
			}
			sendState(snap)
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError(errors.Join(domain.ErrInvalidInput, err))
				continue
			}
			if _, err := h.service.Select(ctx, payload.Option); err != nil {
				sendError(err)
			}
		case "advance":
			snap, err := h.service.Advance(ctx)
			if err != nil {
				sendError(err)
				if !errors.Is(err, domain.ErrResultNotSaved) {
					continue
				}
			}
			sendState(snap)
		case "retry":
			if err := h.service.RetrySave(ctx); err != nil {
				sendError(err)
				continue
			}
			sendState(h.service.Snapshot())
		case "state":
			sendState(h.service.Snapshot())
		default:
			sendError(errors.New("unsupported message type"))
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}
