package imap

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"

	"grnflow/internal"
	"grnflow/internal/config"
)

// Connector implements the inbox contract over IMAP. IMAP cannot refetch a
// message by an opaque id after logout, so Search downloads and parses the
// matching messages up front and Message/Attachment serve from that cache.
type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string

	messages    map[string]internal.MailMessage
	attachments map[string][]byte
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	return &Connector{
		host:        cfg.IMAPHost,
		port:        cfg.IMAPPort,
		secure:      cfg.IMAPSecure,
		user:        cfg.IMAPUser,
		password:    cfg.IMAPPassword,
		messages:    map[string]internal.MailMessage{},
		attachments: map[string][]byte{},
	}, nil
}

func (c *Connector) Search(q internal.MailQuery) ([]internal.MessageHandle, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, err
	}

	if _, err := client.Select("INBOX", true); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}
	if q.Sender != "" {
		criteria.Header.Add("From", q.Sender)
	}
	if q.Term != "" {
		criteria.Text = []string{q.Term}
	}

	ids, err := client.Search(criteria)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if q.Max > 0 && len(ids) > q.Max {
		ids = ids[len(ids)-q.Max:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	fetched := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, fetched) }()

	out := make([]internal.MessageHandle, 0, len(ids))
	for msg := range fetched {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}

		parsed, err := c.cacheMessage(msg, raw)
		if err != nil {
			continue
		}
		out = append(out, internal.MessageHandle{ID: parsed.ID})
	}

	if err := <-fetchDone; err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Connector) Message(id string) (internal.MailMessage, error) {
	msg, ok := c.messages[id]
	if !ok {
		return internal.MailMessage{}, fmt.Errorf("message %s not in fetch cache", id)
	}
	return msg, nil
}

func (c *Connector) Attachment(messageID, attachmentID string) ([]byte, error) {
	data, ok := c.attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s of message %s not in fetch cache", attachmentID, messageID)
	}
	return data, nil
}

func (c *Connector) cacheMessage(msg *imap.Message, raw []byte) (internal.MailMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.MailMessage{}, err
	}

	messageID := ""
	subject := ""
	from := ""
	if msg.Envelope != nil {
		messageID = strings.Trim(msg.Envelope.MessageId, "<>")
		subject = msg.Envelope.Subject
		from = formatAddresses(msg.Envelope.From)
	}
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}

	date := time.Now().UTC().Format(time.RFC1123Z)
	if !msg.InternalDate.IsZero() {
		date = msg.InternalDate.UTC().Format(time.RFC1123Z)
	}

	root := internal.MessagePart{MIMEType: "multipart/mixed"}
	for i, att := range env.Attachments {
		attachmentID := fmt.Sprintf("att-%d", i)
		root.Parts = append(root.Parts, internal.MessagePart{
			Filename:     att.FileName,
			MIMEType:     att.ContentType,
			AttachmentID: attachmentID,
			Data:         att.Content,
		})
		c.attachments[messageID+"/"+attachmentID] = att.Content
	}

	parsed := internal.MailMessage{
		ID:      messageID,
		Subject: subject,
		From:    from,
		Date:    date,
		Root:    root,
	}
	c.messages[messageID] = parsed
	return parsed, nil
}

func formatAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(strings.Join([]string{a.MailboxName, a.HostName}, "@"), "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
