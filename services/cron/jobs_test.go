package cron

import (
	"testing"
	"time"

	"github.com/supportdesk/topup-api/config"
	"github.com/supportdesk/topup-api/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testManager(t *testing.T) *CronManager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Visitor{}, &model.PresencePing{}, &model.CronJobLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := &config.Config{
		VisitorOnlineWindow: 5 * time.Minute,
		PresenceWindow:      30 * time.Second,
	}
	return NewCronManager(db, cfg)
}

func TestSweepOfflineVisitors(t *testing.T) {
	m := testManager(t)

	stale := model.Visitor{SessionID: "stale", LastActivity: time.Now().Add(-10 * time.Minute), IsOnline: true}
	fresh := model.Visitor{SessionID: "fresh", LastActivity: time.Now(), IsOnline: true}
	m.db.Create(&stale)
	m.db.Create(&fresh)

	m.SweepOfflineVisitors()

	var gotStale model.Visitor
	if err := m.db.Where("session_id = ?", "stale").First(&gotStale).Error; err != nil {
		t.Fatalf("load stale visitor: %v", err)
	}
	if gotStale.IsOnline {
		t.Error("stale visitor still flagged online after sweep")
	}

	var gotFresh model.Visitor
	if err := m.db.Where("session_id = ?", "fresh").First(&gotFresh).Error; err != nil {
		t.Fatalf("load fresh visitor: %v", err)
	}
	if !gotFresh.IsOnline {
		t.Error("fresh visitor flipped offline by sweep")
	}
}

func TestPurgeStalePresence(t *testing.T) {
	m := testManager(t)

	m.db.Create(&model.PresencePing{SessionID: "old", LastSeen: time.Now().Add(-time.Minute)})
	m.db.Create(&model.PresencePing{SessionID: "new", LastSeen: time.Now()})

	m.PurgeStalePresence()

	var count int64
	m.db.Model(&model.PresencePing{}).Count(&count)
	if count != 1 {
		t.Errorf("presence rows after purge = %d, want 1", count)
	}
	var remaining model.PresencePing
	m.db.First(&remaining)
	if remaining.SessionID != "new" {
		t.Errorf("surviving ping = %q, want new", remaining.SessionID)
	}
}
