package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"grnflow/internal/config"
)

// Dataset implements the master-table contract on a Google Sheets spreadsheet.
type Dataset struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewDataset(cfg config.Config) (*Dataset, error) {
	if err := cfg.Require("SPREADSHEET_ID", cfg.SpreadsheetID); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := sheets.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Dataset{service: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

func (d *Dataset) Read(rng string) ([][]string, error) {
	resp, err := d.service.Spreadsheets.Values.Get(d.spreadsheetID, rng).Do()
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		out = append(out, cells)
	}
	return out, nil
}

func (d *Dataset) Append(rng string, rows [][]any) error {
	_, err := d.service.Spreadsheets.Values.
		Append(d.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Do()
	return err
}

func (d *Dataset) Update(rng string, rows [][]any) error {
	_, err := d.service.Spreadsheets.Values.
		Update(d.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Do()
	return err
}

func (d *Dataset) Clear(rng string) error {
	_, err := d.service.Spreadsheets.Values.
		Clear(d.spreadsheetID, rng, &sheets.ClearValuesRequest{}).
		Do()
	return err
}
