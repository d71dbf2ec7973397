package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath string

	MailProvider string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string

	InboxSender     string
	InboxSearchTerm string
	InboxDaysBack   int
	InboxMaxResults int

	DriveRootFolderID     string
	AttachmentsFolderName string
	SpreadsheetFolderID   string
	FilesDaysBack         int
	FilesMaxResults       int

	SpreadsheetID    string
	SheetName        string
	SummarySheetName string
	HeaderRow        int

	POHeaderProbe    string
	SKUHeaderProbe   string
	SourceFileColumn string

	NotifyRecipients []string
	NotifySendToSelf bool

	RunIntervalHours int
	LeaseTTLMinutes  int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath: getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),

		MailProvider: getEnv("MAIL_PROVIDER", "gmail"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),

		InboxSender:     getEnv("INBOX_SENDER", "alerts@bigbasket.com"),
		InboxSearchTerm: getEnv("INBOX_SEARCH_TERM", "GRN"),
		InboxDaysBack:   getEnvInt("INBOX_DAYS_BACK", 2),
		InboxMaxResults: getEnvInt("INBOX_MAX_RESULTS", 5),

		DriveRootFolderID:     getEnv("DRIVE_ROOT_FOLDER_ID", ""),
		AttachmentsFolderName: getEnv("ATTACHMENTS_FOLDER_NAME", "GRN_Attachments"),
		SpreadsheetFolderID:   getEnv("SPREADSHEET_FOLDER_ID", ""),
		FilesDaysBack:         getEnvInt("FILES_DAYS_BACK", 2),
		FilesMaxResults:       getEnvInt("FILES_MAX_RESULTS", 1000),

		SpreadsheetID:    getEnv("SPREADSHEET_ID", ""),
		SheetName:        getEnv("SHEET_NAME", "grn_data"),
		SummarySheetName: getEnv("SUMMARY_SHEET_NAME", "workflow_log"),
		HeaderRow:        getEnvInt("HEADER_ROW", 0),

		POHeaderProbe:    getEnv("PO_HEADER_PROBE", "po"),
		SKUHeaderProbe:   getEnv("SKU_HEADER_PROBE", "sku"),
		SourceFileColumn: getEnv("SOURCE_FILE_COLUMN", "source_file_name"),

		NotifyRecipients: getEnvList("NOTIFY_RECIPIENTS", nil),
		NotifySendToSelf: getEnvBool("NOTIFY_SEND_TO_SELF", true),

		RunIntervalHours: getEnvInt("RUN_INTERVAL_HOURS", 3),
		LeaseTTLMinutes:  getEnvInt("LEASE_TTL_MINUTES", 170),
	}

	return cfg, nil
}

// DataRange is the full addressable range of the destination dataset.
func (c Config) DataRange() string {
	return c.SheetName + "!A1:ZZ"
}

// AppendRange is the anchor range for value appends.
func (c Config) AppendRange() string {
	return c.SheetName + "!A1"
}

func (c Config) SummaryRange() string {
	return c.SummarySheetName + "!A1"
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
