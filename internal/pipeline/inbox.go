package pipeline

import (
	"fmt"
	"time"

	log "github.com/gologme/log"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
)

const spreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InboxService runs the mail-to-filestore workflow: search recent messages,
// walk their part trees, and upload the spreadsheet attachments that are not
// already stored under the per-sender folder.
type InboxService struct {
	mailbox connectors.Mailbox
	files   connectors.FileStore
	index   *StateIndex
	rec     *Reconciler
	cfg     config.Config
	logger  *log.Logger
}

func NewInboxService(mailbox connectors.Mailbox, files connectors.FileStore, index *StateIndex, cfg config.Config, logger *log.Logger) *InboxService {
	return &InboxService{
		mailbox: mailbox,
		files:   files,
		index:   index,
		rec:     NewReconciler(index),
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *InboxService) Run(stats *internal.RunStats) error {
	maxResults := s.cfg.InboxMaxResults
	if maxResults < 1 {
		maxResults = 1
	}
	query := internal.MailQuery{
		Sender: s.cfg.InboxSender,
		Term:   s.cfg.InboxSearchTerm,
		Since:  time.Now().AddDate(0, 0, -s.cfg.InboxDaysBack),
		Max:    maxResults,
	}

	handles, err := s.mailbox.Search(query)
	if err != nil {
		s.logger.Errorf("inbox search failed: %v", err)
		return nil
	}
	stats.EmailsChecked = len(handles)
	s.logger.Infof("found %d emails", len(handles))
	if len(handles) == 0 {
		return nil
	}

	baseFolderID, created, err := s.files.EnsureFolder(s.cfg.AttachmentsFolderName, s.cfg.DriveRootFolderID)
	if err != nil {
		return fmt.Errorf("ensure base folder: %w", err)
	}
	if created && s.cfg.DriveRootFolderID != "" {
		s.index.InvalidateFolder(s.cfg.DriveRootFolderID)
	}

	for i, handle := range handles {
		msg, err := s.mailbox.Message(handle.ID)
		if err != nil {
			s.logger.Errorf("fetch message %s: %v", handle.ID, err)
			stats.AttachmentsFailed++
			continue
		}

		candidates := CollectSpreadsheetAttachments(msg)
		stats.AttachmentsFound += len(candidates)

		for _, candidate := range candidates {
			switch s.storeAttachment(candidate, baseFolderID) {
			case internal.OutcomeAccepted:
				stats.AttachmentsSaved++
			case internal.OutcomeSkipped:
				stats.AttachmentsSkipped++
			case internal.OutcomeFailed:
				stats.AttachmentsFailed++
			}
		}

		s.logger.Infof("processed email %d/%d", i+1, len(handles))
	}

	s.logger.Infof("inbox workflow done found=%d saved=%d skipped=%d failed=%d",
		stats.AttachmentsFound, stats.AttachmentsSaved, stats.AttachmentsSkipped, stats.AttachmentsFailed)
	return nil
}

func (s *InboxService) storeAttachment(candidate internal.AttachmentCandidate, baseFolderID string) internal.Outcome {
	senderFolder := SanitizeFolderName(SenderAddress(candidate.Sender))
	if senderFolder == "" {
		senderFolder = "unknown_sender"
	}

	folderID, created, err := s.files.EnsureFolder(senderFolder, baseFolderID)
	if err != nil {
		s.logger.Errorf("ensure sender folder %s: %v", senderFolder, err)
		return internal.OutcomeFailed
	}
	if created {
		s.index.InvalidateFolder(baseFolderID)
	}

	key := StoredFileKey(candidate.MessageID, candidate.RawFilename)
	if !s.rec.ShouldStoreAttachment(folderID, key) {
		s.logger.Infof("skipping %s, already stored", key)
		return internal.OutcomeSkipped
	}

	data := candidate.Data
	if len(data) == 0 {
		data, err = s.mailbox.Attachment(candidate.MessageID, candidate.AttachmentID)
		if err != nil {
			s.logger.Errorf("fetch attachment %s: %v", candidate.RawFilename, err)
			return internal.OutcomeFailed
		}
	}

	if _, err := s.files.Upload(folderID, key, data, spreadsheetMIME); err != nil {
		s.logger.Errorf("upload %s: %v", key, err)
		return internal.OutcomeFailed
	}

	s.rec.CommitAttachment(folderID, key)
	s.logger.Infof("saved %s", key)
	return internal.OutcomeAccepted
}
