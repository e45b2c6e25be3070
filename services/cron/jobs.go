package cron

import (
	"fmt"
	"time"

	"github.com/supportdesk/topup-api/model"
)

// SweepOfflineVisitors clears the is_online flag on visitors whose last
// activity fell out of the online window. Readers derive currently_online
// at query time anyway; this keeps the stored flag from lying forever.
func (m *CronManager) SweepOfflineVisitors() {
	cutoff := time.Now().Add(-m.cfg.VisitorOnlineWindow)

	res := m.db.Model(&model.Visitor{}).
		Where("is_online = ? AND last_activity < ?", true, cutoff).
		Update("is_online", false)

	m.logJobComplete("visitor_offline_sweep",
		fmt.Sprintf("marked %d visitors offline", res.RowsAffected))
}

// PurgeStalePresence deletes presence pings past the presence window.
// The online endpoint purges on every call too; this covers quiet periods
// with no callers.
func (m *CronManager) PurgeStalePresence() {
	cutoff := time.Now().Add(-m.cfg.PresenceWindow)

	res := m.db.Where("last_seen < ?", cutoff).Delete(&model.PresencePing{})

	m.logJobComplete("presence_purge",
		fmt.Sprintf("purged %d stale pings", res.RowsAffected))
}

// PruneJobLogs deletes cron bookkeeping older than 30 days.
func (m *CronManager) PruneJobLogs() {
	cutoff := time.Now().AddDate(0, 0, -30)

	res := m.db.Where("started_at < ?", cutoff).Delete(&model.CronJobLog{})

	m.logJobComplete("prune_job_logs",
		fmt.Sprintf("pruned %d log rows", res.RowsAffected))
}
