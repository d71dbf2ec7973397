package internal

import "time"

// MailQuery describes one inbox search: messages from a sender containing a
// term, received within the lookback window, capped at Max results.
type MailQuery struct {
	Sender string
	Term   string
	Since  time.Time
	Max    int
}

type MessageHandle struct {
	ID string
}

// MessagePart is a node in a message's MIME tree. A node is either a container
// (Parts non-empty) or a leaf. Leaf attachment content is carried inline in
// Data, or referenced by AttachmentID for transports that deliver attachment
// bodies via a separate fetch.
type MessagePart struct {
	Filename     string
	MIMEType     string
	AttachmentID string
	Data         []byte
	Parts        []MessagePart
}

type MailMessage struct {
	ID      string
	Subject string
	From    string
	Date    string
	Root    MessagePart
}

// AttachmentCandidate is one spreadsheet attachment found in a message.
// Ephemeral: produced per part, consumed immediately, never persisted.
type AttachmentCandidate struct {
	MessageID    string
	RawFilename  string
	Sender       string
	AttachmentID string
	Data         []byte
}

// SourceFile is a handle into the file store. Name is the join key used by the
// already-fully-processed check against the dataset's source_file_name column.
type SourceFile struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// FilePage is one page of a folder listing. An empty NextPageToken means the
// listing is complete.
type FilePage struct {
	Names         []string
	NextPageToken string
}

// Outcome is the typed per-item result the reconciler reports, aggregated by
// the orchestrator instead of exception-style control flow.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// RunStats accumulates counters across one workflow run. One summary row per
// run is appended to the run-log sheet from these fields.
type RunStats struct {
	StartTime time.Time
	EndTime   time.Time

	EmailsChecked      int
	AttachmentsFound   int
	AttachmentsSaved   int
	AttachmentsSkipped int
	AttachmentsFailed  int

	FilesFound     int
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int

	DuplicatesRemoved int
	Status            string
}

func (s RunStats) Duration() time.Duration {
	if s.EndTime.IsZero() || s.StartTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
