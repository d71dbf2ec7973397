// Package notify renders the run-summary email bodies.
package notify

import (
	"fmt"
	"strings"
	"time"

	"grnflow/internal"
)

func Subject(stats internal.RunStats) string {
	return fmt.Sprintf("GRN Ingestion Workflow Summary - %s", stats.StartTime.Format("2006-01-02 15:04:05"))
}

// BuildBodies returns the HTML and plain-text renditions of the run summary.
func BuildBodies(stats internal.RunStats, inboxDaysBack, filesDaysBack int) (html, text string) {
	start := stats.StartTime.Format("2006-01-02 15:04:05")
	end := stats.EndTime.Format("15:04:05")
	minutes := stats.Duration().Minutes()

	var h strings.Builder
	h.WriteString("<html>\n<body style=\"font-family: Arial, sans-serif; line-height: 1.6;\">\n")
	h.WriteString("<h2>GRN Ingestion Workflow Summary</h2>\n")
	fmt.Fprintf(&h, "<p><strong>Workflow Time:</strong> %s to %s</p>\n", start, end)
	fmt.Fprintf(&h, "<p><strong>Duration:</strong> %.2f minutes</p>\n", minutes)
	fmt.Fprintf(&h, "<p><strong>Status:</strong> %s</p>\n", stats.Status)

	h.WriteString("<h3>Mail to File Store</h3>\n<ul>\n")
	fmt.Fprintf(&h, "<li><strong>Days Back:</strong> %d</li>\n", inboxDaysBack)
	fmt.Fprintf(&h, "<li><strong>Emails Checked:</strong> %d</li>\n", stats.EmailsChecked)
	fmt.Fprintf(&h, "<li><strong>Attachments Found:</strong> %d</li>\n", stats.AttachmentsFound)
	fmt.Fprintf(&h, "<li><strong>Attachments Uploaded:</strong> %d</li>\n", stats.AttachmentsSaved)
	fmt.Fprintf(&h, "<li><strong>Attachments Skipped:</strong> %d</li>\n", stats.AttachmentsSkipped)
	fmt.Fprintf(&h, "<li><strong>Failed to Upload:</strong> %d</li>\n", stats.AttachmentsFailed)
	h.WriteString("</ul>\n")

	h.WriteString("<h3>File Store to Dataset</h3>\n<ul>\n")
	fmt.Fprintf(&h, "<li><strong>Days Back:</strong> %d</li>\n", filesDaysBack)
	fmt.Fprintf(&h, "<li><strong>Files Found:</strong> %d</li>\n", stats.FilesFound)
	fmt.Fprintf(&h, "<li><strong>Files Processed:</strong> %d</li>\n", stats.FilesProcessed)
	fmt.Fprintf(&h, "<li><strong>Files Skipped:</strong> %d</li>\n", stats.FilesSkipped)
	fmt.Fprintf(&h, "<li><strong>Files Failed:</strong> %d</li>\n", stats.FilesFailed)
	fmt.Fprintf(&h, "<li><strong>Duplicate Records Removed:</strong> %d</li>\n", stats.DuplicatesRemoved)
	h.WriteString("</ul>\n<hr>\n")
	fmt.Fprintf(&h, "<p style=\"color: #666; font-size: 0.9em;\">Automated message from the GRN ingestion scheduler. Workflow ran at: %s</p>\n",
		time.Now().Format("2006-01-02 15:04:05"))
	h.WriteString("</body>\n</html>\n")

	var t strings.Builder
	t.WriteString("GRN Ingestion Workflow Summary\n\n")
	fmt.Fprintf(&t, "Workflow Time: %s to %s\n", start, end)
	fmt.Fprintf(&t, "Duration: %.2f minutes\n", minutes)
	fmt.Fprintf(&t, "Status: %s\n\n", stats.Status)
	t.WriteString("Mail to File Store:\n")
	fmt.Fprintf(&t, "- Days Back: %d\n", inboxDaysBack)
	fmt.Fprintf(&t, "- Emails Checked: %d\n", stats.EmailsChecked)
	fmt.Fprintf(&t, "- Attachments Found: %d\n", stats.AttachmentsFound)
	fmt.Fprintf(&t, "- Attachments Uploaded: %d\n", stats.AttachmentsSaved)
	fmt.Fprintf(&t, "- Attachments Skipped: %d\n", stats.AttachmentsSkipped)
	fmt.Fprintf(&t, "- Failed to Upload: %d\n\n", stats.AttachmentsFailed)
	t.WriteString("File Store to Dataset:\n")
	fmt.Fprintf(&t, "- Days Back: %d\n", filesDaysBack)
	fmt.Fprintf(&t, "- Files Found: %d\n", stats.FilesFound)
	fmt.Fprintf(&t, "- Files Processed: %d\n", stats.FilesProcessed)
	fmt.Fprintf(&t, "- Files Skipped: %d\n", stats.FilesSkipped)
	fmt.Fprintf(&t, "- Files Failed: %d\n", stats.FilesFailed)
	fmt.Fprintf(&t, "- Duplicate Records Removed: %d\n", stats.DuplicatesRemoved)

	return h.String(), t.String()
}
