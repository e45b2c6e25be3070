package visitor

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/supportdesk/topup-api/config"
	"github.com/supportdesk/topup-api/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setup(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Visitor{}, &model.PresencePing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		VisitorOnlineWindow: 5 * time.Minute,
		PresenceWindow:      30 * time.Second,
	}
	h := NewVisitorHandler(db, cfg, nil)

	app := fiber.New()
	app.Post("/api/v1/track", h.Track)
	app.Get("/api/v1/visitors", h.ListVisitors)
	app.Get("/api/v1/online", h.OnlineCount)
	return app, db, cfg
}

func do(t *testing.T, app *fiber.App, method, target, body, userAgent string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userAgent != "" {
		req.Header.Set(fiber.HeaderUserAgent, userAgent)
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

func TestTrack_FirstVisitClassifies(t *testing.T) {
	app, db, _ := setup(t)

	resp, env := do(t, app, "POST", "/api/v1/track",
		`{"session_id":"sess-1"}`, chromeWindowsUA)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !env.Success {
		t.Error("success = false, want true")
	}

	var v model.Visitor
	if err := db.Where("session_id = ?", "sess-1").First(&v).Error; err != nil {
		t.Fatalf("load visitor: %v", err)
	}
	if v.Browser != "Chrome" {
		t.Errorf("browser = %q, want Chrome", v.Browser)
	}
	if v.OS != "Windows" {
		t.Errorf("os = %q, want Windows", v.OS)
	}
	if v.DeviceType != "Desktop" {
		t.Errorf("device_type = %q, want Desktop", v.DeviceType)
	}
	if v.PageViews != 1 {
		t.Errorf("page_views = %d, want 1", v.PageViews)
	}
	if !v.IsOnline {
		t.Error("is_online = false, want true")
	}
}

func TestTrack_RepeatBumpsPageViews(t *testing.T) {
	app, db, _ := setup(t)

	for i := 0; i < 3; i++ {
		resp, _ := do(t, app, "POST", "/api/v1/track", `{"session_id":"sess-1"}`, chromeWindowsUA)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("track %d: status = %d, want 200", i+1, resp.StatusCode)
		}
	}

	var visitors []model.Visitor
	db.Find(&visitors)
	if len(visitors) != 1 {
		t.Fatalf("visitor rows = %d, want 1 upserted row", len(visitors))
	}
	if visitors[0].PageViews != 3 {
		t.Errorf("page_views = %d, want 3", visitors[0].PageViews)
	}
}

func TestTrack_RepeatRefreshesActivity(t *testing.T) {
	app, db, _ := setup(t)

	do(t, app, "POST", "/api/v1/track", `{"session_id":"sess-1"}`, chromeWindowsUA)

	stale := time.Now().Add(-time.Hour)
	db.Model(&model.Visitor{}).
		Where("session_id = ?", "sess-1").
		UpdateColumns(map[string]interface{}{"last_activity": stale, "is_online": false})

	do(t, app, "POST", "/api/v1/track", `{"session_id":"sess-1"}`, chromeWindowsUA)

	var v model.Visitor
	db.Where("session_id = ?", "sess-1").First(&v)
	if !v.LastActivity.After(stale.Add(time.Minute)) {
		t.Errorf("last_activity = %v, want refreshed past %v", v.LastActivity, stale)
	}
	if !v.IsOnline {
		t.Error("is_online = false after repeat track, want true")
	}
}

func TestTrack_MissingSession(t *testing.T) {
	app, db, _ := setup(t)

	resp, env := do(t, app, "POST", "/api/v1/track", `{}`, chromeWindowsUA)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("error = %+v, want BAD_REQUEST", env.Error)
	}

	var count int64
	db.Model(&model.Visitor{}).Count(&count)
	if count != 0 {
		t.Errorf("visitor rows = %d after rejected track, want 0", count)
	}
}

func TestListVisitors_CurrentlyOnline(t *testing.T) {
	app, db, _ := setup(t)

	now := time.Now()
	db.Create(&model.Visitor{SessionID: "fresh", UserAgent: chromeWindowsUA, LastActivity: now, IsOnline: true, PageViews: 1})
	db.Create(&model.Visitor{SessionID: "stale", UserAgent: chromeWindowsUA, LastActivity: now.Add(-10 * time.Minute), IsOnline: true, PageViews: 4})

	resp, env := do(t, app, "GET", "/api/v1/visitors", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var data struct {
		Visitors []VisitorResponse `json:"visitors"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(data.Visitors) != 2 {
		t.Fatalf("len(visitors) = %d, want 2", len(data.Visitors))
	}
	if data.Visitors[0].SessionID != "fresh" {
		t.Errorf("visitors[0] = %q, want most recently active first", data.Visitors[0].SessionID)
	}
	if !data.Visitors[0].CurrentlyOnline {
		t.Error("fresh visitor currently_online = false, want true")
	}
	if data.Visitors[1].CurrentlyOnline {
		t.Error("stale visitor currently_online = true, want false past the 5-minute window")
	}
	if _, err := time.Parse(time.RFC3339, data.Visitors[0].LastActivity); err != nil {
		t.Errorf("last_activity %q not RFC3339: %v", data.Visitors[0].LastActivity, err)
	}
}

func TestOnlineCount(t *testing.T) {
	app, db, _ := setup(t)

	_, env := do(t, app, "GET", "/api/v1/online?session=sess-1", "", "")
	var data struct {
		OnlineCount int64 `json:"online_count"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.OnlineCount != 1 {
		t.Errorf("online_count = %d after one ping, want 1", data.OnlineCount)
	}

	_, env = do(t, app, "GET", "/api/v1/online?session=sess-2", "", "")
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.OnlineCount != 2 {
		t.Errorf("online_count = %d with two live sessions, want 2", data.OnlineCount)
	}

	// Repeat pings refresh, they do not duplicate.
	_, env = do(t, app, "GET", "/api/v1/online?session=sess-1", "", "")
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.OnlineCount != 2 {
		t.Errorf("online_count = %d after repeat ping, want still 2", data.OnlineCount)
	}

	// Age one session past the presence window; the next count drops it.
	db.Model(&model.PresencePing{}).
		Where("session_id = ?", "sess-2").
		UpdateColumn("last_seen", time.Now().Add(-time.Minute))

	_, env = do(t, app, "GET", "/api/v1/online?session=sess-1", "", "")
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.OnlineCount != 1 {
		t.Errorf("online_count = %d after expiry, want 1", data.OnlineCount)
	}

	var stale int64
	db.Model(&model.PresencePing{}).Where("session_id = ?", "sess-2").Count(&stale)
	if stale != 0 {
		t.Errorf("stale ping rows = %d, want purged", stale)
	}
}

func TestOnlineCount_MissingSession(t *testing.T) {
	app, _, _ := setup(t)

	resp, _ := do(t, app, "GET", "/api/v1/online", "", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
