package chat

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/model"
	"github.com/supportdesk/topup-api/utils/middleware"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setup(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.ChatUser{}, &model.ChatMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	h := NewChatHandler(db)
	app := fiber.New()
	app.Get("/api/v1/chat/messages", h.ListMessages)
	app.Post("/api/v1/chat/messages", h.PostMessage)
	app.Get("/api/v1/chat/sessions", h.ListSessions)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, target, sessionID, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(middleware.HeaderSessionID, sessionID)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v (body %s)", err, raw)
	}
	return resp, env
}

func TestPostMessage_CreatesSessionAndMessage(t *testing.T) {
	app, db := setup(t)

	resp, env := doJSON(t, app, "POST", "/api/v1/chat/messages", "sess-1",
		`{"message":"Привет","name":"Иван"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if !env.Success {
		t.Fatal("success = false, want true")
	}

	var data struct {
		Message MessageResponse `json:"message"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Message.Message != "Привет" {
		t.Errorf("message = %q, want %q", data.Message.Message, "Привет")
	}
	if data.Message.SessionID != "sess-1" {
		t.Errorf("session_id = %q, want %q", data.Message.SessionID, "sess-1")
	}
	if _, err := time.Parse("2006-01-02 15:04:05", data.Message.CreatedAt); err != nil {
		t.Errorf("created_at %q not in expected layout: %v", data.Message.CreatedAt, err)
	}

	var users int64
	db.Model(&model.ChatUser{}).Count(&users)
	if users != 1 {
		t.Errorf("chat_users rows = %d, want 1", users)
	}
}

func TestPostMessage_SecondMessageKeepsOriginalName(t *testing.T) {
	app, db := setup(t)

	doJSON(t, app, "POST", "/api/v1/chat/messages", "sess-1", `{"message":"first","name":"Иван"}`)
	doJSON(t, app, "POST", "/api/v1/chat/messages", "sess-1", `{"message":"second","name":"Другой"}`)

	var users []model.ChatUser
	db.Find(&users)
	if len(users) != 1 {
		t.Fatalf("chat_users rows = %d, want 1", len(users))
	}
	if users[0].Name != "Иван" {
		t.Errorf("name = %q, want the original %q", users[0].Name, "Иван")
	}
}

func TestPostMessage_MissingSession(t *testing.T) {
	app, db := setup(t)

	resp, env := doJSON(t, app, "POST", "/api/v1/chat/messages", "", `{"message":"hi"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Success {
		t.Error("success = true on error, want false")
	}
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("error = %+v, want BAD_REQUEST", env.Error)
	}

	var count int64
	db.Model(&model.ChatMessage{}).Count(&count)
	if count != 0 {
		t.Errorf("chat_messages rows = %d after rejected post, want 0", count)
	}
}

func TestPostMessage_EmptyBody(t *testing.T) {
	app, _ := setup(t)

	resp, _ := doJSON(t, app, "POST", "/api/v1/chat/messages", "sess-1", `{"message":"  "}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d for blank message without image, want 400", resp.StatusCode)
	}
}

func TestPostMessage_ImageOnly(t *testing.T) {
	app, _ := setup(t)

	resp, _ := doJSON(t, app, "POST", "/api/v1/chat/messages", "sess-1",
		`{"image_url":"https://cdn.example.com/chat-images/a.png"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d for image-only message, want 201", resp.StatusCode)
	}
}

func TestListMessages_OrderAndScope(t *testing.T) {
	app, db := setup(t)

	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"one", "two", "three"} {
		m := model.ChatMessage{SessionID: "sess-1", Message: text}
		db.Create(&m)
		db.Model(&m).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute))
	}
	db.Create(&model.ChatMessage{SessionID: "sess-2", Message: "other"})

	resp, env := doJSON(t, app, "GET", "/api/v1/chat/messages", "sess-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var data struct {
		Messages []MessageResponse `json:"messages"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(data.Messages) != 3 {
		t.Fatalf("len(messages) = %d, want 3", len(data.Messages))
	}
	want := []string{"one", "two", "three"}
	for i, m := range data.Messages {
		if m.Message != want[i] {
			t.Errorf("messages[%d] = %q, want %q", i, m.Message, want[i])
		}
	}
}

func TestListMessages_MissingSession(t *testing.T) {
	app, _ := setup(t)

	resp, _ := doJSON(t, app, "GET", "/api/v1/chat/messages", "", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListSessions_OrderingAndAggregates(t *testing.T) {
	app, db := setup(t)

	// Three sessions: "old" wrote an hour ago, "fresh" just now,
	// "silent" never wrote at all.
	now := time.Now()
	db.Create(&model.ChatUser{SessionID: "old", Name: "Старый"})
	db.Create(&model.ChatUser{SessionID: "fresh", Name: "Новый"})
	db.Create(&model.ChatUser{SessionID: "silent", Name: "Тихий"})

	m1 := model.ChatMessage{SessionID: "old", Message: "earlier"}
	db.Create(&m1)
	db.Model(&m1).UpdateColumn("created_at", now.Add(-time.Hour))
	m2 := model.ChatMessage{SessionID: "fresh", Message: "first"}
	db.Create(&m2)
	db.Model(&m2).UpdateColumn("created_at", now.Add(-2*time.Minute))
	m3 := model.ChatMessage{SessionID: "fresh", Message: "latest"}
	db.Create(&m3)
	db.Model(&m3).UpdateColumn("created_at", now.Add(-time.Minute))

	resp, env := doJSON(t, app, "GET", "/api/v1/chat/sessions", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var data struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(data.Sessions) != 3 {
		t.Fatalf("len(sessions) = %d, want 3", len(data.Sessions))
	}

	if data.Sessions[0].SessionID != "fresh" {
		t.Errorf("sessions[0] = %q, want %q", data.Sessions[0].SessionID, "fresh")
	}
	if data.Sessions[1].SessionID != "old" {
		t.Errorf("sessions[1] = %q, want %q", data.Sessions[1].SessionID, "old")
	}
	if data.Sessions[2].SessionID != "silent" {
		t.Errorf("sessions[2] = %q, want the message-less session last", data.Sessions[2].SessionID)
	}

	if data.Sessions[0].MessageCount != 2 {
		t.Errorf("fresh message_count = %d, want 2", data.Sessions[0].MessageCount)
	}
	if data.Sessions[0].LastMessage == nil || *data.Sessions[0].LastMessage != "latest" {
		t.Errorf("fresh last_message = %v, want %q", data.Sessions[0].LastMessage, "latest")
	}
	if data.Sessions[2].LastMessage != nil {
		t.Errorf("silent last_message = %v, want nil", data.Sessions[2].LastMessage)
	}
}
