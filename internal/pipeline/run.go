package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	log "github.com/gologme/log"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
	"grnflow/internal/notify"
	"grnflow/internal/storage"
)

const leaseName = "grn-workflow"

// ConnectFunc authenticates and returns the remote collaborators for one run.
type ConnectFunc func(cfg config.Config) (*connectors.Bundle, error)

// Runner sequences one complete workflow run: authentication, inbox workflow,
// dataset workflow, summary persistence, notification. Soft failures are
// logged and counted; only authentication aborts the run, and even then the
// summary and notification are still attempted.
type Runner struct {
	cfg     config.Config
	logger  *log.Logger
	db      *storage.DB
	connect ConnectFunc
}

func NewRunner(cfg config.Config, logger *log.Logger, db *storage.DB, connect ConnectFunc) *Runner {
	return &Runner{cfg: cfg, logger: logger, db: db, connect: connect}
}

func (r *Runner) RunWorkflow() error {
	if r.db != nil {
		acquired, err := r.db.AcquireLease(leaseName, leaseHolder(), time.Duration(r.cfg.LeaseTTLMinutes)*time.Minute)
		if err != nil {
			r.logger.Errorf("acquire run lease: %v", err)
		} else if !acquired {
			r.logger.Warnf("another run holds the lease, skipping")
			return nil
		} else {
			defer func() {
				if err := r.db.ReleaseLease(leaseName, leaseHolder()); err != nil {
					r.logger.Errorf("release run lease: %v", err)
				}
			}()
		}
	}

	stats := internal.RunStats{StartTime: time.Now(), Status: "Running"}
	r.logger.Infof("starting workflow run")

	bundle, err := r.connect(r.cfg)
	if err != nil {
		r.logger.Errorf("authentication failed: %v", err)
		stats.Status = "Failed - Authentication Error"
		stats.EndTime = time.Now()
		r.finishRun(bundle, stats)
		return fmt.Errorf("authenticate: %w", err)
	}

	index := NewStateIndex(bundle.Files, r.logger)

	r.logger.Infof("step 1: inbox workflow")
	inbox := NewInboxService(bundle.Mailbox, bundle.Files, index, r.cfg, r.logger)
	if err := inbox.Run(&stats); err != nil {
		r.logger.Warnf("inbox workflow had issues, continuing: %v", err)
	}

	r.logger.Infof("step 2: dataset workflow")
	dataset := NewDatasetService(bundle.Files, bundle.Dataset, index, r.cfg, r.logger)
	if err := dataset.Run(&stats); err != nil {
		r.logger.Warnf("dataset workflow had issues: %v", err)
	}

	stats.Status = "Completed Successfully"
	stats.EndTime = time.Now()
	r.finishRun(bundle, stats)

	r.logger.Infof("workflow completed in %.2f minutes: emails=%d attachments %d/%d/%d/%d files %d/%d/%d/%d duplicates_removed=%d",
		stats.Duration().Minutes(), stats.EmailsChecked,
		stats.AttachmentsFound, stats.AttachmentsSaved, stats.AttachmentsSkipped, stats.AttachmentsFailed,
		stats.FilesFound, stats.FilesProcessed, stats.FilesSkipped, stats.FilesFailed,
		stats.DuplicatesRemoved)
	return nil
}

// finishRun persists the summary row, sends the notification, and records the
// run locally. Each is independently wrapped so one failure never suppresses
// the others.
func (r *Runner) finishRun(bundle *connectors.Bundle, stats internal.RunStats) {
	if err := r.saveSummary(bundle, stats); err != nil {
		r.logger.Errorf("save workflow summary: %v", err)
	}
	if err := r.sendNotification(bundle, stats); err != nil {
		r.logger.Errorf("send notification: %v", err)
	}
	if r.db != nil {
		if err := r.db.RecordRun(traceID(), stats); err != nil {
			r.logger.Errorf("record run: %v", err)
		}
	}
}

var summaryHeaders = []string{
	"Start Time", "End Time", "Emails Checked",
	"Attachments Found", "Attachments Saved", "Attachments Skipped", "Attachments Failed",
	"Files Found", "Files Processed", "Files Skipped", "Files Failed",
	"Duplicates Removed", "Status",
}

func (r *Runner) saveSummary(bundle *connectors.Bundle, stats internal.RunStats) error {
	if bundle == nil || bundle.Dataset == nil {
		return fmt.Errorf("dataset store unavailable")
	}

	existing, err := bundle.Dataset.Read(r.cfg.SummaryRange())
	if err != nil || len(existing) == 0 {
		header := make([]any, len(summaryHeaders))
		for i, h := range summaryHeaders {
			header[i] = h
		}
		if err := bundle.Dataset.Update(r.cfg.SummaryRange(), [][]any{header}); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
	}

	row := []any{
		stats.StartTime.Format("2006-01-02 15:04:05"),
		stats.EndTime.Format("2006-01-02 15:04:05"),
		stats.EmailsChecked,
		stats.AttachmentsFound, stats.AttachmentsSaved, stats.AttachmentsSkipped, stats.AttachmentsFailed,
		stats.FilesFound, stats.FilesProcessed, stats.FilesSkipped, stats.FilesFailed,
		stats.DuplicatesRemoved,
		stats.Status,
	}
	if err := bundle.Dataset.Append(r.cfg.SummaryRange(), [][]any{row}); err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}

	r.logger.Infof("workflow summary saved")
	return nil
}

func (r *Runner) sendNotification(bundle *connectors.Bundle, stats internal.RunStats) error {
	if bundle == nil || bundle.Notifier == nil {
		return fmt.Errorf("notifier unavailable")
	}

	recipients := append([]string{}, r.cfg.NotifyRecipients...)
	if r.cfg.NotifySendToSelf {
		if self, err := bundle.Notifier.SelfAddress(); err == nil && self != "" {
			recipients = append(recipients, self)
		}
	}
	if len(recipients) == 0 {
		r.logger.Warnf("no notification recipients configured")
		return nil
	}

	subject := notify.Subject(stats)
	html, text := notify.BuildBodies(stats, r.cfg.InboxDaysBack, r.cfg.FilesDaysBack)
	if err := bundle.Notifier.Send(recipients, subject, html, text); err != nil {
		return err
	}

	r.logger.Infof("notification sent to %d recipients", len(recipients))
	return nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func leaseHolder() string {
	host, err := os.Hostname()
	if err != nil {
		return fmt.Sprintf("pid-%d", os.Getpid())
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
