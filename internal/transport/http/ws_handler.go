package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.Service
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, hub *broadcast.Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
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

type answerPayload struct {
	ParticipantID    string  `json:"participantId"`
	QuestionID       string  `json:"questionId"`
	SelectedOption   string  `json:"selectedOption"`
	RemainingSeconds float64 `json:"remainingSeconds"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func outbound(event domain.Event) outboundMessage {
	return outboundMessage{Type: string(event.Type), Payload: event.Payload}
}

// ServeWS upgrades the connection, joins the participant into the session's
// broadcast group, and relays intents: answer submissions and resync
// requests. Session events fan out to the socket until either side closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	name := r.URL.Query().Get("name")
	if code == "" || name == "" {
		http.Error(w, "missing code or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), code, name)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel := h.hub.Join(joined.SessionCode)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outbound(event):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "joined", Payload: joined}

	// A client that connects mid-question gets the current state up front
	// instead of waiting for the loop's next broadcast.
	if sync, err := h.service.Resync(r.Context(), joined.SessionCode); err == nil {
		send <- outbound(sync)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			participantID := payload.ParticipantID
			if participantID == "" {
				participantID = joined.ParticipantID
			}
			result, err := h.service.SubmitAnswer(r.Context(), app.AnswerSubmission{
				SessionCode:      joined.SessionCode,
				ParticipantID:    participantID,
				QuestionID:       payload.QuestionID,
				SelectedOption:   payload.SelectedOption,
				RemainingSeconds: payload.RemainingSeconds,
			})
			if err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: submitErrorMessage(err)}}
				continue
			}
			if result.AlreadyAnswered {
				send <- outboundMessage{Type: "already-answered", Payload: result}
			} else {
				send <- outboundMessage{Type: "answer-recorded", Payload: result}
			}
		case "resync":
			event, err := h.service.Resync(r.Context(), joined.SessionCode)
			if err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outbound(event)
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// submitErrorMessage keeps raw internals off the wire for the expected
// rejections.
func submitErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuestionClosed):
		return "question is not open for answers"
	case errors.Is(err, domain.ErrParticipantNotFound):
		return "join the session before answering"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return "unknown question"
	default:
		return "could not record answer"
	}
}
