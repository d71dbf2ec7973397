package pipeline

import (
	"testing"

	"grnflow/internal"
)

func TestCollectSpreadsheetAttachments(t *testing.T) {
	msg := internal.MailMessage{
		ID:   "m1",
		From: "Alerts <alerts@bigbasket.com>",
		Root: internal.MessagePart{
			MIMEType: "multipart/mixed",
			Parts: []internal.MessagePart{
				{MIMEType: "text/plain"},
				{
					MIMEType: "multipart/alternative",
					Parts: []internal.MessagePart{
						{Filename: "nested.xlsx", AttachmentID: "a1"},
					},
				},
				{Filename: "report.XLSX", AttachmentID: "a2"},
				{Filename: "notes.pdf", AttachmentID: "a3"},
				{Filename: "inline.xls", Data: []byte("blob")},
				{Filename: "orphan.xlsx"},
			},
		},
	}

	got := CollectSpreadsheetAttachments(msg)
	if len(got) != 3 {
		t.Fatalf("candidates=%d", len(got))
	}
	if got[0].RawFilename != "nested.xlsx" {
		t.Fatalf("first=%v", got[0])
	}
	if got[1].RawFilename != "report.XLSX" || got[1].MessageID != "m1" {
		t.Fatalf("second=%v", got[1])
	}
	if string(got[2].Data) != "blob" {
		t.Fatalf("inline data lost: %v", got[2])
	}
	for _, c := range got {
		if c.Sender != "Alerts <alerts@bigbasket.com>" {
			t.Fatalf("sender=%q", c.Sender)
		}
	}
}

func TestIsSpreadsheetName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"report.xlsx", true},
		{"REPORT.XLS", true},
		{"macro.xlsm", true},
		{"notes.pdf", false},
		{"data.csv", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsSpreadsheetName(tc.name); got != tc.want {
			t.Fatalf("%q: got %v", tc.name, got)
		}
	}
}

func TestSenderAddress(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Alerts <alerts@bigbasket.com>", "alerts@bigbasket.com"},
		{"alerts@bigbasket.com", "alerts@bigbasket.com"},
		{"  plain@example.com  ", "plain@example.com"},
	}
	for _, tc := range cases {
		if got := SenderAddress(tc.input); got != tc.want {
			t.Fatalf("%q: got %q", tc.input, got)
		}
	}
}
