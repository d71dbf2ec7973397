package notify

import (
	"strings"
	"testing"
	"time"

	"grnflow/internal"
)

func sampleStats() internal.RunStats {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return internal.RunStats{
		StartTime:          start,
		EndTime:            start.Add(3 * time.Minute),
		EmailsChecked:      4,
		AttachmentsFound:   3,
		AttachmentsSaved:   2,
		AttachmentsSkipped: 1,
		FilesFound:         2,
		FilesProcessed:     1,
		FilesSkipped:       1,
		DuplicatesRemoved:  5,
		Status:             "Completed Successfully",
	}
}

func TestSubject(t *testing.T) {
	got := Subject(sampleStats())
	if !strings.Contains(got, "2025-06-01 09:00:00") {
		t.Fatalf("subject=%q", got)
	}
}

func TestBuildBodies(t *testing.T) {
	html, text := BuildBodies(sampleStats(), 2, 2)

	for _, want := range []string{
		"Emails Checked:</strong> 4",
		"Attachments Uploaded:</strong> 2",
		"Files Processed:</strong> 1",
		"Duplicate Records Removed:</strong> 5",
		"Completed Successfully",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}

	for _, want := range []string{
		"Emails Checked: 4",
		"Attachments Uploaded: 2",
		"Files Processed: 1",
		"Duplicate Records Removed: 5",
		"Duration: 3.00 minutes",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q", want)
		}
	}
}
