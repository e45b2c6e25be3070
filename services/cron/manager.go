package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/supportdesk/topup-api/config"
	"github.com/supportdesk/topup-api/model"
	"gorm.io/gorm"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron *cron.Cron
	db   *gorm.DB
	cfg  *config.Config
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, cfg *config.Config) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron: c,
		db:   db,
		cfg:  cfg,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Every minute: flip is_online off for visitors past the activity window
	_, err := m.cron.AddFunc("0 * * * * *", func() {
		m.logJobStart("visitor_offline_sweep")
		m.SweepOfflineVisitors()
	})
	if err != nil {
		return err
	}

	// Every minute: purge presence pings past the presence window
	_, err = m.cron.AddFunc("30 * * * * *", func() {
		m.logJobStart("presence_purge")
		m.PurgeStalePresence()
	})
	if err != nil {
		return err
	}

	// Daily at 3 AM: prune old cron job logs
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("prune_job_logs")
		m.PruneJobLogs()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&cronLog)
}

// logJobComplete logs completion of the most recent run of a job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	now := time.Now()
	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": &now,
			"message":      message,
		})
}
