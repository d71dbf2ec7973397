package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"grnflow/internal"
	"grnflow/internal/config"
)

// Connector implements the inbox search-and-fetch contract and the
// notification sink on top of the Gmail API.
type Connector struct {
	service *gmail.Service
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope, gmail.GmailSendScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

func (c *Connector) Search(q internal.MailQuery) ([]internal.MessageHandle, error) {
	parts := []string{"has:attachment"}
	if q.Sender != "" {
		parts = append(parts, fmt.Sprintf("from:%q", q.Sender))
	}
	if q.Term != "" {
		parts = append(parts, fmt.Sprintf("%q", q.Term))
	}
	if !q.Since.IsZero() {
		parts = append(parts, "after:"+q.Since.Format("2006/01/02"))
	}

	max := int64(q.Max)
	if max < 1 {
		max = 1
	}

	resp, err := c.service.Users.Messages.List("me").Q(strings.Join(parts, " ")).MaxResults(max).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.MessageHandle, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		if msg.Id != "" {
			out = append(out, internal.MessageHandle{ID: msg.Id})
		}
	}
	return out, nil
}

func (c *Connector) Message(id string) (internal.MailMessage, error) {
	resp, err := c.service.Users.Messages.Get("me", id).Format("full").Do()
	if err != nil {
		return internal.MailMessage{}, err
	}

	out := internal.MailMessage{ID: id, From: "Unknown"}
	if resp.Payload != nil {
		for _, h := range resp.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				out.From = h.Value
			case "subject":
				out.Subject = h.Value
			case "date":
				out.Date = h.Value
			}
		}
		out.Root = convertPart(resp.Payload)
	}
	return out, nil
}

func (c *Connector) Attachment(messageID, attachmentID string) ([]byte, error) {
	resp, err := c.service.Users.Messages.Attachments.Get("me", messageID, attachmentID).Do()
	if err != nil {
		return nil, err
	}
	return decodeBase64URL(resp.Data)
}

func (c *Connector) SelfAddress() (string, error) {
	profile, err := c.service.Users.GetProfile("me").Do()
	if err != nil {
		return "", err
	}
	return profile.EmailAddress, nil
}

// Send delivers the summary email as a raw RFC 822 message built with enmime,
// multipart/alternative with both renditions.
func (c *Connector) Send(recipients []string, subject, htmlBody, textBody string) error {
	self, err := c.SelfAddress()
	if err != nil {
		return err
	}

	addrs := make([]mail.Address, 0, len(recipients))
	for _, r := range recipients {
		addrs = append(addrs, mail.Address{Address: r})
	}

	root, err := enmime.Builder().
		From("", self).
		ToAddrs(addrs).
		Subject(subject).
		Text([]byte(textBody)).
		HTML([]byte(htmlBody)).
		Build()
	if err != nil {
		return fmt.Errorf("build notification message: %w", err)
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return fmt.Errorf("encode notification message: %w", err)
	}

	_, err = c.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(buf.Bytes()),
	}).Do()
	return err
}

func convertPart(part *gmail.MessagePart) internal.MessagePart {
	out := internal.MessagePart{
		Filename: part.Filename,
		MIMEType: part.MimeType,
	}
	if part.Body != nil {
		out.AttachmentID = part.Body.AttachmentId
		if part.Body.Data != "" {
			if data, err := decodeBase64URL(part.Body.Data); err == nil {
				out.Data = data
			}
		}
	}
	for _, child := range part.Parts {
		out.Parts = append(out.Parts, convertPart(child))
	}
	return out
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail payload: %w", err)
}
