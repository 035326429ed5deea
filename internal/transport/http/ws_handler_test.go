package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

// idleScheduler never ticks; the tests drive the attempt by hand.
type idleScheduler struct{}

func (idleScheduler) Start(func()) {}
func (idleScheduler) Stop()        {}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: "p1", Prompt: "Unit of force?", Options: []string{"Joule", "Newton", "Watt"}, CorrectOption: "Newton", Category: "Physics", Type: domain.QuestionTypeDepartmental},
		{ID: "p2", Prompt: "Speed of light (km/s)?", Options: []string{"300000", "150000", "30000"}, CorrectOption: "300000", Category: "Physics", Type: domain.QuestionTypeDepartmental},
		{ID: "g1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: "4", Type: domain.QuestionTypeGeneral},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.RankingStore) {
	t.Helper()
	store := memory.NewRankingStore()
	hub := app.NewHub()
	recorder := app.NewRecorder(store, nil, hub, nil)
	session := app.NewSession(recorder, hub, app.WithScheduler(idleScheduler{}))
	supplier := app.NewSamplingSupplier(memory.NewStaticPoolLoader(sampleBank()))
	service := app.NewQuizService(session, supplier, store, app.DefaultRules(), nil)

	server := httptest.NewServer(NewServer(service, nil).Router())
	t.Cleanup(server.Close)
	return server, store
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil skips messages until one of type expect arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) json.RawMessage {
	t.Helper()
	for i := 0; i < 32; i++ {
		var msg wireMessage
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message received", expect)
	return nil
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketAttemptFlow(t *testing.T) {
	server, store := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var initial app.Snapshot
	if err := json.Unmarshal(readUntil(t, conn, "state"), &initial); err != nil {
		t.Fatalf("decode state: %v", err)
	}

	send(t, conn, "start", map[string]string{"name": "Ada", "matric": "m1", "field": "Physics", "mode": "standard"})

	answers := map[string]string{}
	for _, q := range sampleBank() {
		answers[q.Prompt] = q.CorrectOption
	}

	for i := 0; i < 2; i++ {
		var qp questionPayload
		if err := json.Unmarshal(readUntil(t, conn, "question"), &qp); err != nil {
			t.Fatalf("decode question: %v", err)
		}
		if qp.Total != 2 || qp.Cursor != i {
			t.Fatalf("unexpected question position %+v", qp)
		}
		if qp.Question.Category != "Physics" {
			t.Fatalf("expected departmental question, got %+v", qp.Question)
		}

		send(t, conn, "select", map[string]string{"option": answers[qp.Question.Prompt]})
		var locked app.Event
		if err := json.Unmarshal(readUntil(t, conn, string(app.EventOptionLocked)), &locked); err != nil {
			t.Fatalf("decode optionLocked: %v", err)
		}
		if locked.Selection == nil || !locked.Selection.Correct {
			t.Fatalf("expected correct selection, got %+v", locked.Selection)
		}
		send(t, conn, "advance", nil)
	}

	var completed app.Event
	if err := json.Unmarshal(readUntil(t, conn, string(app.EventAttemptCompleted)), &completed); err != nil {
		t.Fatalf("decode completed: %v", err)
	}
	if completed.Record == nil || completed.Record.Percentage != 100 || completed.Record.Identity.Matric != "M1" {
		t.Fatalf("unexpected record %+v", completed.Record)
	}
	readUntil(t, conn, string(app.EventLeaderboardUpdated))

	records, _ := store.Leaderboard(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected stored result, got %d", len(records))
	}
}

func TestWebSocketReportsErrors(t *testing.T) {
	server, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "state")

	send(t, conn, "advance", nil)
	var body errorBody
	if err := json.Unmarshal(readUntil(t, conn, "error"), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "not_started" {
		t.Fatalf("expected not_started, got %+v", body)
	}

	send(t, conn, "start", map[string]string{"name": "Ada", "matric": "m1", "field": "History"})
	if err := json.Unmarshal(readUntil(t, conn, "error"), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "empty" {
		t.Fatalf("expected empty for unknown field, got %+v", body)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, rec := range []domain.ResultRecord{
		{ID: "1", Identity: domain.Identity{DisplayName: "Ada", Matric: "M1"}, Category: "Physics", Correct: 2, Total: 4, Percentage: 50, Timestamp: now},
		{ID: "2", Identity: domain.Identity{DisplayName: "Bo", Matric: "M2"}, Category: "Maths", Correct: 4, Total: 4, Percentage: 100, Timestamp: now},
	} {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var lb domain.Leaderboard
	getJSON(t, server.URL+"/api/leaderboard", &lb)
	if len(lb.Entries) != 2 || lb.Entries[0].Name != "Bo" || lb.Entries[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", lb.Entries)
	}

	getJSON(t, server.URL+"/api/leaderboard?field=Physics", &lb)
	if len(lb.Entries) != 1 || lb.Entries[0].Matric != "M1" {
		t.Fatalf("unexpected filtered leaderboard %+v", lb.Entries)
	}
}

func TestQuestionsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	var body struct {
		Questions []domain.Question `json:"questions"`
	}
	getJSON(t, server.URL+"/api/questions?num_dept=1&num_gen=1", &body)
	if len(body.Questions) != 2 {
		t.Fatalf("expected 1 dept + 1 gen question, got %d", len(body.Questions))
	}

	getJSON(t, server.URL+"/api/questions?department=History", &body)
	if len(body.Questions) != 0 {
		t.Fatalf("expected no questions for unknown department, got %d", len(body.Questions))
	}

	resp, err := http.Get(server.URL + "/api/questions?num_dept=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad num_dept, got %d", resp.StatusCode)
	}
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
