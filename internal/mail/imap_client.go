package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/michaeltansg/grab-receipts-exporter/internal/config"
	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

// Client wraps an IMAP connection to the receipts mailbox
type Client struct {
	config    *config.Config
	client    *client.Client
	logger    *logrus.Logger
	connected bool
}

// NewClient creates a new IMAP client (does not connect immediately)
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger,
	}
}

// Connect establishes a connection to the IMAP server
func (c *Client) Connect() error {
	if c.connected && c.client != nil {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", c.config.IMAPHost, c.config.IMAPPort)

	cl, err := client.DialTLS(addr, &tls.Config{
		ServerName: c.config.IMAPHost,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	c.client = cl

	if err := c.client.Login(c.config.IMAPUsername, c.config.IMAPPassword); err != nil {
		c.logger.WithError(err).Error("Failed to login to IMAP server")
		c.client.Logout() //nolint:errcheck
		c.client = nil
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	c.connected = true
	c.logger.WithField("host", c.config.IMAPHost).Info("Connected to IMAP server")
	return nil
}

// Close closes the IMAP connection
func (c *Client) Close() error {
	if c.client != nil {
		if err := c.client.Logout(); err != nil {
			return err
		}
		c.client = nil
		c.connected = false
	}
	return nil
}

// FetchReceiptsAfter returns the receipt messages with UIDs strictly
// greater than lastUID, in ascending UID order. The mailbox is opened
// read-only; nothing is flagged or expunged.
func (c *Client) FetchReceiptsAfter(lastUID uint32) ([]*types.Message, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}

	mbox, err := c.client.Select(c.config.Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox: %w", err)
	}

	if mbox.Messages == 0 {
		return nil, nil
	}

	uids, err := c.searchAfter(lastUID)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchInternalDate, imap.FetchUid, imap.FetchRFC822}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var results []*types.Message
	for msg := range messages {
		results = append(results, c.parseMessage(msg))
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].UID < results[j].UID })

	return results, nil
}

// searchAfter runs a UID search for messages past the cursor, matching
// the configured subject filter. Servers treat a range starting past the
// newest message as including that message, so the result is filtered
// against the cursor once more.
func (c *Client) searchAfter(lastUID uint32) ([]uint32, error) {
	rangeSet := new(imap.SeqSet)
	rangeSet.AddRange(lastUID+1, 0)

	criteria := imap.NewSearchCriteria()
	criteria.Uid = rangeSet
	if c.config.SubjectFilter != "" {
		criteria.Header.Add("Subject", c.config.SubjectFilter)
	}

	found, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}

	uids := make([]uint32, 0, len(found))
	for _, uid := range found {
		if uid > lastUID {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

// parseMessage converts an IMAP message into a receipt message. The body
// keeps the HTML alternative when the email carries one, because the
// classification markers live in the markup.
func (c *Client) parseMessage(msg *imap.Message) *types.Message {
	m := &types.Message{
		UID: msg.Uid,
	}

	if msg.Envelope != nil {
		m.MessageID = msg.Envelope.MessageId
		m.Subject = msg.Envelope.Subject
		m.Date = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			m.Sender = msg.Envelope.From[0].Address()
		}
		if len(msg.Envelope.To) > 0 {
			m.Recipient = msg.Envelope.To[0].Address()
		}
	}
	if m.Date.IsZero() {
		m.Date = msg.InternalDate
	}

	bodyBytes := c.readBody(msg)
	if len(bodyBytes) == 0 {
		c.logger.WithField("uid", msg.Uid).Warn("No body content found")
		return m
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(bodyBytes))
	if err != nil {
		c.logger.WithError(err).WithField("uid", msg.Uid).Debug("Failed to parse MIME, using raw body")
		m.Body = string(bodyBytes)
		return m
	}

	m.Body = PreferredBody(env.HTML, env.Text)
	if m.Body == "" {
		m.Body = string(bodyBytes)
	}
	return m
}

// PreferredBody picks the part extraction runs on: the HTML alternative
// when present, the plain text otherwise.
func PreferredBody(html, text string) string {
	if html != "" {
		return html
	}
	return text
}

// readBody tries the ways servers key the RFC822 section in fetch
// results.
func (c *Client) readBody(msg *imap.Message) []byte {
	if literal, ok := msg.Body[nil]; ok {
		return c.readLiteral(literal)
	}
	// Section keys are pointers, so range over them instead of looking
	// up a freshly built BodySectionName.
	for _, literal := range msg.Body {
		if body := c.readLiteral(literal); len(body) > 0 {
			return body
		}
	}
	return nil
}

// readLiteral reads content from an IMAP literal and returns bytes
func (c *Client) readLiteral(literal imap.Literal) []byte {
	if literal == nil {
		return nil
	}
	body := make([]byte, 0, 8192)
	buf := make([]byte, 1024)
	for {
		n, err := literal.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			c.logger.WithError(err).Error("Error reading literal")
			break
		}
	}
	return body
}
