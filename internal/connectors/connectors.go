package connectors

import (
	"time"

	"grnflow/internal"
)

// Mailbox is the inbox search-and-fetch capability consumed by the inbox
// workflow.
type Mailbox interface {
	Search(q internal.MailQuery) ([]internal.MessageHandle, error)
	Message(id string) (internal.MailMessage, error)
	// Attachment fetches a part body by attachment id for transports that do
	// not deliver attachment content inline.
	Attachment(messageID, attachmentID string) ([]byte, error)
}

// FileStore is the hierarchical blob store holding raw attachment files.
type FileStore interface {
	// List returns one page of file names under a folder. Callers must follow
	// NextPageToken to completion; a truncated listing is a correctness bug.
	List(folderID, pageToken string) (internal.FilePage, error)
	// ListSpreadsheets returns spreadsheet files created after since, newest
	// first, capped at max.
	ListSpreadsheets(folderID string, since time.Time, max int64) ([]internal.SourceFile, error)
	// EnsureFolder returns the id of the named folder under parent, creating
	// it when absent. created reports whether a new folder was made.
	EnsureFolder(name, parentID string) (id string, created bool, err error)
	Upload(parentID, name string, data []byte, mimeType string) (string, error)
	Download(fileID string) ([]byte, error)
}

// Dataset is the remote append-only-ish table store, addressed by cell ranges.
type Dataset interface {
	Read(rng string) ([][]string, error)
	Append(rng string, rows [][]any) error
	Update(rng string, rows [][]any) error
	Clear(rng string) error
}

// Notifier delivers the run summary email. Best effort: its failure never
// fails a run.
type Notifier interface {
	Send(recipients []string, subject, htmlBody, textBody string) error
	SelfAddress() (string, error)
}

// Bundle groups the authenticated collaborators for one run.
type Bundle struct {
	Mailbox  Mailbox
	Files    FileStore
	Dataset  Dataset
	Notifier Notifier
}
