package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
)

type fakeMailbox struct {
	handles     []internal.MessageHandle
	messages    map[string]internal.MailMessage
	attachments map[string][]byte
	searchErr   error
}

func (m *fakeMailbox) Search(internal.MailQuery) ([]internal.MessageHandle, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.handles, nil
}

func (m *fakeMailbox) Message(id string) (internal.MailMessage, error) {
	msg, ok := m.messages[id]
	if !ok {
		return internal.MailMessage{}, fmt.Errorf("no message %s", id)
	}
	return msg, nil
}

func (m *fakeMailbox) Attachment(messageID, attachmentID string) ([]byte, error) {
	data, ok := m.attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, fmt.Errorf("no attachment %s/%s", messageID, attachmentID)
	}
	return data, nil
}

type fakeStore struct {
	folderIDs map[string]string
	names     map[string][]string
	sources   []internal.SourceFile
	blobs     map[string][]byte
	uploads   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		folderIDs: map[string]string{},
		names:     map[string][]string{},
		blobs:     map[string][]byte{},
	}
}

func (s *fakeStore) List(folderID, pageToken string) (internal.FilePage, error) {
	return internal.FilePage{Names: s.names[folderID]}, nil
}

func (s *fakeStore) ListSpreadsheets(string, time.Time, int64) ([]internal.SourceFile, error) {
	return s.sources, nil
}

func (s *fakeStore) EnsureFolder(name, parentID string) (string, bool, error) {
	key := parentID + "|" + name
	if id, ok := s.folderIDs[key]; ok {
		return id, false, nil
	}
	id := "folder-" + name
	s.folderIDs[key] = id
	return id, true, nil
}

func (s *fakeStore) Upload(parentID, name string, data []byte, mimeType string) (string, error) {
	s.names[parentID] = append(s.names[parentID], name)
	s.uploads++
	return "file-" + name, nil
}

func (s *fakeStore) Download(fileID string) ([]byte, error) {
	blob, ok := s.blobs[fileID]
	if !ok {
		return nil, fmt.Errorf("no blob %s", fileID)
	}
	return blob, nil
}

// fakeDataset routes ranges to a data grid or a summary grid by sheet prefix.
type fakeDataset struct {
	data    [][]string
	summary [][]string
}

func (d *fakeDataset) grid(rng string) *[][]string {
	if strings.HasPrefix(rng, "workflow_log") {
		return &d.summary
	}
	return &d.data
}

func (d *fakeDataset) Read(rng string) ([][]string, error) {
	return *d.grid(rng), nil
}

func (d *fakeDataset) Append(rng string, rows [][]any) error {
	g := d.grid(rng)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprint(cell)
		}
		*g = append(*g, cells)
	}
	return nil
}

func (d *fakeDataset) Update(rng string, rows [][]any) error {
	g := d.grid(rng)
	*g = nil
	return d.Append(rng, rows)
}

func (d *fakeDataset) Clear(rng string) error {
	*d.grid(rng) = nil
	return nil
}

type fakeNotifier struct {
	sent     [][]string
	subjects []string
}

func (n *fakeNotifier) Send(recipients []string, subject, htmlBody, textBody string) error {
	n.sent = append(n.sent, recipients)
	n.subjects = append(n.subjects, subject)
	return nil
}

func (n *fakeNotifier) SelfAddress() (string, error) {
	return "bot@example.com", nil
}

func testConfig() config.Config {
	return config.Config{
		MailProvider:          "gmail",
		InboxSender:           "alerts@bigbasket.com",
		InboxSearchTerm:       "GRN",
		InboxDaysBack:         2,
		InboxMaxResults:       5,
		DriveRootFolderID:     "root",
		AttachmentsFolderName: "GRN_Attachments",
		SpreadsheetFolderID:   "grn-folder",
		FilesDaysBack:         2,
		FilesMaxResults:       100,
		SpreadsheetID:         "sheet-1",
		SheetName:             "grn_data",
		SummarySheetName:      "workflow_log",
		HeaderRow:             0,
		POHeaderProbe:         "po",
		SKUHeaderProbe:        "sku",
		SourceFileColumn:      "source_file_name",
		NotifyRecipients:      []string{"ops@example.com"},
		NotifySendToSelf:      true,
		RunIntervalHours:      3,
		LeaseTTLMinutes:       170,
	}
}

func testBundle() (*connectors.Bundle, *fakeMailbox, *fakeStore, *fakeDataset, *fakeNotifier) {
	blob := mkXLSX([][]any{
		{"PO Number", "SKU Code", "Qty"},
		{"PO1", "SKU1", 5},
		{"PO2", "SKU2", 3},
	})

	mailbox := &fakeMailbox{
		handles: []internal.MessageHandle{{ID: "m1"}},
		messages: map[string]internal.MailMessage{
			"m1": {
				ID:   "m1",
				From: "Alerts <alerts@bigbasket.com>",
				Root: internal.MessagePart{
					MIMEType: "multipart/mixed",
					Parts: []internal.MessagePart{
						{MIMEType: "text/plain"},
						{Filename: "grn.xlsx", AttachmentID: "a1"},
					},
				},
			},
		},
		attachments: map[string][]byte{"m1/a1": blob},
	}

	store := newFakeStore()
	store.sources = []internal.SourceFile{{ID: "src1", Name: "grn1.xlsx", CreatedAt: time.Now()}}
	store.blobs["src1"] = blob

	dataset := &fakeDataset{}
	notifier := &fakeNotifier{}

	bundle := &connectors.Bundle{Mailbox: mailbox, Files: store, Dataset: dataset, Notifier: notifier}
	return bundle, mailbox, store, dataset, notifier
}

func TestRunWorkflow(t *testing.T) {
	bundle, _, store, dataset, notifier := testBundle()
	runner := NewRunner(testConfig(), testLogger(), nil, func(config.Config) (*connectors.Bundle, error) {
		return bundle, nil
	})

	if err := runner.RunWorkflow(); err != nil {
		t.Fatal(err)
	}

	if store.uploads != 1 {
		t.Fatalf("uploads=%d", store.uploads)
	}
	senderFolder := store.names["folder-alerts@bigbasket.com"]
	if len(senderFolder) != 1 || senderFolder[0] != "m1_grn.xlsx" {
		t.Fatalf("stored names=%v", senderFolder)
	}

	// Header plus two data rows, each carrying the provenance column.
	if len(dataset.data) != 3 {
		t.Fatalf("dataset rows=%d: %v", len(dataset.data), dataset.data)
	}
	header := dataset.data[0]
	if header[len(header)-1] != "source_file_name" {
		t.Fatalf("header=%v", header)
	}
	row := dataset.data[1]
	if row[len(row)-1] != "grn1.xlsx" {
		t.Fatalf("row missing provenance: %v", row)
	}

	// Summary sheet gets a bootstrap header and one row per run.
	if len(dataset.summary) != 2 {
		t.Fatalf("summary rows=%d", len(dataset.summary))
	}
	last := dataset.summary[1]
	if last[len(last)-1] != "Completed Successfully" {
		t.Fatalf("summary status=%q", last[len(last)-1])
	}

	if len(notifier.sent) != 1 || len(notifier.sent[0]) != 2 {
		t.Fatalf("notifications=%v", notifier.sent)
	}
}

func TestRunWorkflowSecondRunIsIdempotent(t *testing.T) {
	bundle, _, store, dataset, notifier := testBundle()
	runner := NewRunner(testConfig(), testLogger(), nil, func(config.Config) (*connectors.Bundle, error) {
		return bundle, nil
	})

	if err := runner.RunWorkflow(); err != nil {
		t.Fatal(err)
	}
	if err := runner.RunWorkflow(); err != nil {
		t.Fatal(err)
	}

	if store.uploads != 1 {
		t.Fatalf("second run re-uploaded: uploads=%d", store.uploads)
	}
	if len(dataset.data) != 3 {
		t.Fatalf("second run changed dataset: %d rows", len(dataset.data))
	}
	if len(dataset.summary) != 3 {
		t.Fatalf("summary rows=%d want header plus one per run", len(dataset.summary))
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("notifications=%d", len(notifier.sent))
	}
}

func TestRunWorkflowDuplicateRowsAcrossFiles(t *testing.T) {
	bundle, _, store, dataset, _ := testBundle()

	// A second file repeating one row and adding one new one.
	store.sources = append(store.sources, internal.SourceFile{ID: "src2", Name: "grn2.xlsx", CreatedAt: time.Now()})
	store.blobs["src2"] = mkXLSX([][]any{
		{"PO Number", "SKU Code", "Qty"},
		{"PO2", "SKU2", 3},
		{"PO3", "SKU3", 7},
	})

	runner := NewRunner(testConfig(), testLogger(), nil, func(config.Config) (*connectors.Bundle, error) {
		return bundle, nil
	})
	if err := runner.RunWorkflow(); err != nil {
		t.Fatal(err)
	}

	// Header plus PO1, PO2, PO3: the repeated PO2 row must appear once.
	if len(dataset.data) != 4 {
		t.Fatalf("dataset rows=%d: %v", len(dataset.data), dataset.data)
	}
	seen := map[string]int{}
	for _, row := range dataset.data[1:] {
		seen[row[0]+"|"+row[1]]++
	}
	if seen["PO2|SKU2"] != 1 {
		t.Fatalf("duplicate row survived: %v", seen)
	}
}

func TestRunWorkflowAuthFailure(t *testing.T) {
	runner := NewRunner(testConfig(), testLogger(), nil, func(config.Config) (*connectors.Bundle, error) {
		return nil, errors.New("invalid_grant")
	})

	if err := runner.RunWorkflow(); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunWorkflowInboxSearchFailureIsSoft(t *testing.T) {
	bundle, mailbox, _, dataset, _ := testBundle()
	mailbox.searchErr = errors.New("quota exceeded")

	runner := NewRunner(testConfig(), testLogger(), nil, func(config.Config) (*connectors.Bundle, error) {
		return bundle, nil
	})
	if err := runner.RunWorkflow(); err != nil {
		t.Fatal(err)
	}

	// Dataset workflow still ran.
	if len(dataset.data) != 3 {
		t.Fatalf("dataset rows=%d", len(dataset.data))
	}
	if len(dataset.summary) == 0 {
		t.Fatal("summary missing")
	}
}
