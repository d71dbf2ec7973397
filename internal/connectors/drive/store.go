package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"grnflow/internal"
	"grnflow/internal/config"
)

const (
	spreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	legacyXLSMIME   = "application/vnd.ms-excel"
)

// Store implements the attachment archive contract on Google Drive.
type Store struct {
	service *drive.Service
}

func NewStore(cfg config.Config) (*Store, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{drive.DriveScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := drive.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Store{service: svc}, nil
}

func (s *Store) List(folderID, pageToken string) (internal.FilePage, error) {
	call := s.service.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		Fields("nextPageToken, files(name)").
		PageSize(1000)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return internal.FilePage{}, err
	}

	page := internal.FilePage{NextPageToken: resp.NextPageToken}
	for _, f := range resp.Files {
		page.Names = append(page.Names, f.Name)
	}
	return page, nil
}

func (s *Store) ListSpreadsheets(folderID string, since time.Time, max int64) ([]internal.SourceFile, error) {
	query := fmt.Sprintf(
		"'%s' in parents and trashed = false and (mimeType = '%s' or mimeType = '%s') and createdTime > '%s'",
		folderID, spreadsheetMIME, legacyXLSMIME, since.UTC().Format(time.RFC3339),
	)

	if max < 1 {
		max = 1
	}

	var out []internal.SourceFile
	pageToken := ""
	for {
		call := s.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, createdTime)").
			OrderBy("createdTime desc").
			PageSize(min(max-int64(len(out)), 1000))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, err
		}

		for _, f := range resp.Files {
			created, _ := time.Parse(time.RFC3339, f.CreatedTime)
			out = append(out, internal.SourceFile{ID: f.Id, Name: f.Name, CreatedAt: created})
			if int64(len(out)) >= max {
				return out, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}

// EnsureFolder finds a folder by name under parentID, creating it when absent.
// The created flag tells callers a fresh folder now exists, so any cached
// listing of the parent is stale.
func (s *Store) EnsureFolder(name, parentID string) (string, bool, error) {
	query := fmt.Sprintf(
		"name = '%s' and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`),
	)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", parentID)
	}

	resp, err := s.service.Files.List().Q(query).Fields("files(id)").PageSize(1).Do()
	if err != nil {
		return "", false, err
	}
	if len(resp.Files) > 0 {
		return resp.Files[0].Id, false, nil
	}

	meta := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := s.service.Files.Create(meta).Fields("id").Do()
	if err != nil {
		return "", false, err
	}
	return created.Id, true, nil
}

func (s *Store) Upload(parentID, name string, data []byte, mimeType string) (string, error) {
	meta := &drive.File{Name: name}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := s.service.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (s *Store) Download(fileID string) ([]byte, error) {
	resp, err := s.service.Files.Get(fileID).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
