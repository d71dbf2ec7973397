package pipeline

import (
	"strings"

	"grnflow/internal"
)

var spreadsheetExtensions = []string{".xls", ".xlsx", ".xlsm"}

func IsSpreadsheetName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, ext := range spreadsheetExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// CollectSpreadsheetAttachments walks the message's MIME tree and returns a
// candidate for every spreadsheet leaf, in part order.
func CollectSpreadsheetAttachments(msg internal.MailMessage) []internal.AttachmentCandidate {
	out := []internal.AttachmentCandidate{}
	walkParts(msg.Root, func(part internal.MessagePart) {
		out = append(out, internal.AttachmentCandidate{
			MessageID:    msg.ID,
			RawFilename:  part.Filename,
			Sender:       msg.From,
			AttachmentID: part.AttachmentID,
			Data:         part.Data,
		})
	})
	return out
}

func walkParts(part internal.MessagePart, visit func(internal.MessagePart)) {
	if len(part.Parts) > 0 {
		for _, child := range part.Parts {
			walkParts(child, visit)
		}
		return
	}
	if part.Filename == "" {
		return
	}
	if part.AttachmentID == "" && len(part.Data) == 0 {
		return
	}
	if IsSpreadsheetName(part.Filename) {
		visit(part)
	}
}

// SenderAddress extracts the bare address from a From header value like
// `Alerts <alerts@example.com>`.
func SenderAddress(from string) string {
	open := strings.Index(from, "<")
	end := strings.Index(from, ">")
	if open >= 0 && end > open {
		return strings.TrimSpace(from[open+1 : end])
	}
	return strings.TrimSpace(from)
}
