package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/infra/memory"
)

const twoQuestions = `[
  {"question": "2 + 2?", "options": {"A": "3", "B": "4", "C": "5", "D": "6"}, "answer": "B", "explanation": "basic sums"},
  {"question": "3 + 3?", "options": {"A": "6", "B": "7", "C": "8", "D": "9"}, "answer": "A"}
]`

func newTestServer(t *testing.T, gen app.Generator) (*httptest.Server, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore()
	questions := memory.NewQuestionRepository(memory.NewStaticLoader(map[string]domain.QuestionSet{
		"arith": {ID: "arith", Topic: "arithmetic", Questions: sampleQuestions(t)},
	}), time.Minute)
	service := app.NewQuizService(store, questions, gen, domain.SessionConfig{NegativeMarkWeight: 0.25})

	log := zerolog.Nop()
	router := NewRouter(NewAPIHandler(service, log), NewWSHandler(service, nil, log), nil, log)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store
}

func TestWebSocketQuizFlow(t *testing.T) {
	server, store := newTestServer(t, nil)

	conn := dial(t, server)
	defer conn.Close()

	// Expect the empty session first.
	_, payload := readUntil(t, conn, "snapshot")
	if payload["state"] != string(domain.StateNotStarted) {
		t.Fatalf("expected not_started, got %v", payload["state"])
	}

	send(t, conn, "load", map[string]any{"questions": json.RawMessage(twoQuestions)})
	_, payload = readUntil(t, conn, "snapshot")
	if payload["state"] != string(domain.StateActive) || payload["total"] != float64(2) {
		t.Fatalf("expected active session with 2 questions, got %v", payload)
	}

	send(t, conn, "select", map[string]any{"index": 0, "option": "b"})
	_, payload = readUntil(t, conn, "snapshot")
	if payload["answered"] != float64(1) {
		t.Fatalf("expected one answer, got %v", payload["answered"])
	}

	send(t, conn, "submit", nil)
	_, result := readUntil(t, conn, "result")
	if result["correctAnswers"] != float64(1) || result["notAttempted"] != float64(1) {
		t.Fatalf("unexpected result %v", result)
	}
	if result["percentage"] != float64(50) || result["band"] != string(domain.BandKeepPracticing) {
		t.Fatalf("unexpected score %v", result)
	}

	// A second submit is rejected with a state error.
	send(t, conn, "submit", nil)
	_, errPayload := readUntil(t, conn, "error")
	if errPayload["code"] != "invalid_state" {
		t.Fatalf("expected invalid_state, got %v", errPayload)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.Len() != 0 {
		t.Fatalf("expected session dropped on disconnect")
	}
}

func TestWebSocketLoadStoredSetWithFixedTimer(t *testing.T) {
	server, _ := newTestServer(t, nil)
	conn := dial(t, server)
	defer conn.Close()
	readUntil(t, conn, "snapshot")

	send(t, conn, "load", map[string]any{"setId": "arith", "config": map[string]any{"timerMinutes": 3}})
	_, payload := readUntil(t, conn, "snapshot")
	if payload["remainingSeconds"] != float64(180) {
		t.Fatalf("expected fixed 3 minute timer, got %v", payload["remainingSeconds"])
	}

	send(t, conn, "pause", nil)
	_, payload = readUntil(t, conn, "snapshot")
	if payload["state"] != string(domain.StatePaused) {
		t.Fatalf("expected paused, got %v", payload["state"])
	}

	send(t, conn, "restart", nil)
	_, payload = readUntil(t, conn, "snapshot")
	if payload["state"] != string(domain.StateNotStarted) {
		t.Fatalf("expected not_started after restart, got %v", payload["state"])
	}
}

func TestWebSocketErrors(t *testing.T) {
	server, _ := newTestServer(t, nil)
	conn := dial(t, server)
	defer conn.Close()
	readUntil(t, conn, "snapshot")

	cases := []struct {
		typ     string
		payload any
		code    string
	}{
		{"dance", nil, "invalid_input"},
		{"load", map[string]any{"questions": json.RawMessage(`[]`)}, "invalid_input"},
		{"load", map[string]any{"setId": "missing"}, "not_found"},
		{"load", map[string]any{"generate": map[string]any{"topic": "go", "count": 2}}, "generation_failed"},
		{"pause", nil, "invalid_state"},
	}
	for _, tc := range cases {
		send(t, conn, tc.typ, tc.payload)
		_, payload := readUntil(t, conn, "error")
		if payload["code"] != tc.code {
			t.Fatalf("%s: expected code %s, got %v", tc.typ, tc.code, payload)
		}
	}
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages (ticks, intermediate snapshots) until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Type, msg.Payload
		}
	}
	t.Fatalf("no %s message received", want)
	return "", nil
}

func sampleQuestions(t *testing.T) []domain.Question {
	t.Helper()
	var qs []domain.Question
	if err := json.Unmarshal([]byte(twoQuestions), &qs); err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	return qs
}
