package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/logger"
	"mcq-quiz-service/internal/questionset"
)

// WSHandler drives one quiz session per WebSocket connection.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.QuizService, allowedOrigins []string, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     logger.Component(log, "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type configPayload struct {
	TimerMinutes       *int     `json:"timerMinutes"`
	NegativeMarkWeight *float64 `json:"negativeMarkWeight"`
	TimerPolicy        string   `json:"timerPolicy"`
}

// loadPayload carries exactly one question source.
type loadPayload struct {
	Questions json.RawMessage            `json:"questions"`
	Text      string                     `json:"text"`
	SetID     string                     `json:"setId"`
	Generate  *questionset.PromptRequest `json:"generate"`
	Config    *configPayload             `json:"config"`
}

type indexPayload struct {
	Index  int    `json:"index"`
	Option string `json:"option"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type resultPayload struct {
	domain.ScoreResult
	Band domain.Band `json:"band"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func errorMessage(err error) outboundMessage[any] {
	_, code := classify(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Code: code}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into a fresh quiz session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Open(ctx)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	sessionID := session.ID()
	log := h.log.With().Str("session", sessionID).Logger()
	log.Debug().Msg("session opened")

	events, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		_ = h.service.Close(ctx, sessionID)
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Single writer; a failed write closes the socket so the read loop ends too.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				_ = conn.Close()
				for range send {
				}
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
				for _, msg := range eventMessages(ev) {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, session, inbound); err != nil {
			enqueue(errorMessage(err))
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
	cancel()
	_ = h.service.Close(ctx, sessionID)
	log.Debug().Msg("session closed")
}

// dispatch applies one client action. State changes reach the client through the session's
// event stream, so only failures are returned here.
func (h *WSHandler) dispatch(r *http.Request, session *app.Session, in inboundMessage) error {
	switch in.Type {
	case "load":
		var p loadPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		return h.load(r, session.ID(), p)
	case "select":
		var p indexPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		o, err := domain.ParseOption(p.Option)
		if err != nil {
			return domain.Validationf("%v", err)
		}
		session.SelectOption(p.Index, o)
	case "clear":
		var p indexPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		session.ClearOption(p.Index)
	case "goto":
		var p indexPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		session.GoTo(p.Index)
	case "next":
		session.Next()
	case "previous":
		session.Previous()
	case "pause":
		return session.Pause()
	case "resume":
		return session.Resume()
	case "submit":
		_, err := session.Submit()
		return err
	case "restart":
		session.Restart()
	default:
		return domain.Validationf("unsupported message type %q", in.Type)
	}
	return nil
}

func (h *WSHandler) load(r *http.Request, sessionID string, p loadPayload) error {
	cfg, err := h.sessionConfig(p.Config)
	if err != nil {
		return err
	}
	ctx := r.Context()
	switch {
	case len(p.Questions) > 0 && string(p.Questions) != "null":
		return h.service.LoadJSON(ctx, sessionID, p.Questions, &cfg)
	case strings.TrimSpace(p.Text) != "":
		raw, err := questionset.Extract(p.Text)
		if err != nil {
			return err
		}
		return h.service.LoadJSON(ctx, sessionID, raw, &cfg)
	case p.SetID != "":
		return h.service.LoadStored(ctx, sessionID, p.SetID, &cfg)
	case p.Generate != nil:
		return h.service.LoadGenerated(ctx, sessionID, *p.Generate, &cfg)
	default:
		return domain.Validationf("load needs questions, text, setId or generate")
	}
}

// sessionConfig overlays the client's settings on the configured defaults.
func (h *WSHandler) sessionConfig(p *configPayload) (domain.SessionConfig, error) {
	cfg := h.service.Defaults()
	if p == nil {
		return cfg, nil
	}
	if p.TimerPolicy != "" {
		policy, err := domain.ParseTimerPolicy(p.TimerPolicy)
		if err != nil {
			return cfg, domain.Validationf("%v", err)
		}
		cfg.TimerPolicy = policy
	}
	if p.TimerMinutes != nil {
		cfg.TimerMinutes = *p.TimerMinutes
		if p.TimerPolicy == "" {
			cfg.TimerPolicy = domain.TimerFixed
		}
	}
	if p.NegativeMarkWeight != nil {
		cfg.NegativeMarkWeight = *p.NegativeMarkWeight
	}
	return cfg, nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return domain.Validationf("missing payload")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Validationf("invalid payload: %v", err)
	}
	return nil
}

func eventMessages(ev domain.Event) []outboundMessage[any] {
	switch ev.Type {
	case domain.EventTick:
		return []outboundMessage[any]{{Type: "tick", Payload: tickPayload{RemainingSeconds: ev.Snapshot.RemainingSeconds}}}
	case domain.EventCompleted:
		msgs := []outboundMessage[any]{{Type: "snapshot", Payload: ev.Snapshot}}
		if ev.Snapshot.Result != nil {
			res := *ev.Snapshot.Result
			msgs = append(msgs, outboundMessage[any]{Type: "result", Payload: resultPayload{ScoreResult: res, Band: res.Band()}})
		}
		return msgs
	default:
		return []outboundMessage[any]{{Type: "snapshot", Payload: ev.Snapshot}}
	}
}
