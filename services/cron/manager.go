package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job names, also stored in cron_job_logs
const (
	JobFeeReminders   = "fee_reminders"
	JobExpireCheckout = "expire_checkouts"
	JobNightlyExport  = "nightly_export"
	JobCleanupOldData = "cleanup_old_data"
)

// Dependencies are the services the scheduled jobs call. Any of them may be
// nil, in which case the job that needs it does nothing.
type Dependencies struct {
	Notifications *services.NotificationService
	Checkouts     *services.CheckoutService
	Exports       *services.ExportService
	Blacklist     *auth.BlacklistService
	Location      *time.Location
	ReminderDays  int
}

// JobResult summarizes one run for the job log
type JobResult struct {
	Message  string
	Metadata map[string]interface{}
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron *cron.Cron
	db   *gorm.DB
	deps Dependencies
	now  func() time.Time
}

// NewCronManager creates a new cron manager. Schedules are read in the
// configured timezone.
func NewCronManager(db *gorm.DB, deps Dependencies) *CronManager {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(deps.Location))

	return &CronManager{
		cron: c,
		db:   db,
		deps: deps,
		now:  time.Now,
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

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// today is the current calendar day in the configured zone
func (m *CronManager) today() time.Time {
	return m.now().In(m.deps.Location)
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context) (*JobResult, error)
	}{
		// Daily at 8 AM: remind students of upcoming and overdue fees
		{"0 0 8 * * *", JobFeeReminders, m.SendFeeReminders},
		// Every hour: give up on checkouts the gateway never confirmed
		{"0 5 * * * *", JobExpireCheckout, m.ExpireCheckouts},
		// Daily at 1:30 AM: upload assignment and payment CSVs
		{"0 30 1 * * *", JobNightlyExport, m.ExportReports},
		// Daily at 2 AM: cleanup old data
		{"0 0 2 * * *", JobCleanupOldData, m.CleanupOldData},
	}

	for _, job := range jobs {
		if _, err := m.cron.AddFunc(job.spec, func() { m.RunJob(job.name, job.run) }); err != nil {
			return err
		}
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// RunJob runs one job with a timeout and records the run in cron_job_logs
func (m *CronManager) RunJob(name string, run func(context.Context) (*JobResult, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	entry := m.logJobStart(name)
	result, err := run(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, result)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	log.Printf("[CRON] Starting job: %s at %s", jobName, m.now().Format(time.RFC3339))

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: m.now().UTC(),
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.Create(entry).Error; err != nil {
		log.Printf("[CRON] Failed to record start of %s: %v", jobName, err)
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, result *JobResult) {
	if result == nil {
		result = &JobResult{}
	}
	log.Printf("[CRON] Completed job: %s - %s", entry.JobName, result.Message)

	metadata := datatypes.JSON("{}")
	if len(result.Metadata) > 0 {
		if raw, err := json.Marshal(result.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}
	m.finish(entry, map[string]interface{}{
		"status":   "completed",
		"message":  result.Message,
		"metadata": metadata,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	log.Printf("[CRON] Error in job: %s - %v", entry.JobName, err)

	m.finish(entry, map[string]interface{}{
		"status":    "failed",
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finish(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	completed := m.now().UTC()
	updates["completed_at"] = completed
	updates["duration"] = int(completed.Sub(entry.StartedAt).Milliseconds())
	if err := m.db.Model(entry).Updates(updates).Error; err != nil {
		log.Printf("[CRON] Failed to record end of %s: %v", entry.JobName, err)
	}
}
