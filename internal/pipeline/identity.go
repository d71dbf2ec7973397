package pipeline

import (
	"regexp"
	"strings"
)

var illegalNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// maxStoredNameLen bounds a stored-file key, extension included.
const maxStoredNameLen = 100

// StoredFileKey derives the stable file-store name for an attachment:
// the message id joined with the sanitized filename, capped at
// maxStoredNameLen characters preserving the final dot extension.
// Deterministic and total, so already-stored checks reproduce across runs.
func StoredFileKey(messageID, rawFilename string) string {
	key := illegalNameChars.ReplaceAllString(messageID+"_"+rawFilename, "_")
	runes := []rune(key)
	if len(runes) <= maxStoredNameLen {
		return key
	}

	if dot := strings.LastIndex(key, "."); dot > 0 && dot < len(key)-1 {
		ext := []rune(key[dot:])
		keep := maxStoredNameLen - len(ext)
		if keep > 0 {
			return string(runes[:keep]) + string(ext)
		}
	}
	return string(runes[:maxStoredNameLen])
}

// ContentKey derives the row-level duplicate key "po|sku" from the designated
// columns. ok is false when either column is missing or blank after trimming;
// such rows are never deduplicated by content, only by file-level skip.
func ContentKey(row []string, poIdx, skuIdx int) (string, bool) {
	if poIdx < 0 || skuIdx < 0 || poIdx >= len(row) || skuIdx >= len(row) {
		return "", false
	}
	po := strings.TrimSpace(row[poIdx])
	sku := strings.TrimSpace(row[skuIdx])
	if po == "" || sku == "" {
		return "", false
	}
	return po + "|" + sku, true
}

// SanitizeFolderName applies the filename character rules to a folder name.
func SanitizeFolderName(name string) string {
	out := illegalNameChars.ReplaceAllString(name, "_")
	runes := []rune(out)
	if len(runes) > maxStoredNameLen {
		return string(runes[:maxStoredNameLen])
	}
	return out
}
