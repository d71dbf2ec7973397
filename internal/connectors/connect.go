package connectors

import (
	"fmt"
	"strings"

	"grnflow/internal/config"
	driveconnector "grnflow/internal/connectors/drive"
	gmailconnector "grnflow/internal/connectors/gmail"
	imapconnector "grnflow/internal/connectors/imap"
	sheetsconnector "grnflow/internal/connectors/sheets"
)

// Connect authenticates every remote collaborator for one run. The file store
// and dataset are always Google-backed; the mailbox is selected by
// MAIL_PROVIDER. The notifier rides on the Gmail connector and is left nil
// when the provider is IMAP-only, which downgrades notification to a logged
// soft failure.
func Connect(cfg config.Config) (*Bundle, error) {
	files, err := driveconnector.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}

	dataset, err := sheetsconnector.NewDataset(cfg)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	bundle := &Bundle{Files: files, Dataset: dataset}

	switch strings.ToLower(strings.TrimSpace(cfg.MailProvider)) {
	case "gmail":
		conn, err := gmailconnector.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("gmail connector: %w", err)
		}
		bundle.Mailbox = conn
		bundle.Notifier = conn
	case "imap":
		conn, err := imapconnector.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("imap connector: %w", err)
		}
		bundle.Mailbox = conn
		if gmail, err := gmailconnector.NewConnector(cfg); err == nil {
			bundle.Notifier = gmail
		}
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.MailProvider)
	}

	return bundle, nil
}
