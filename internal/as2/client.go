package as2

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	as2Version          = "1.2"
	maxMDNResponseBytes = 1 << 20
	dispositionOptions  = "signed-receipt-protocol=optional, pkcs7-signature; signed-receipt-micalg=optional, sha-256"
)

// SendError reports a transport failure. StatusCode is zero when the
// partner could not be reached.
type SendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("as2 send failed: %v", e.Err)
	}
	return fmt.Sprintf("as2 send failed: unexpected status code %d: %s", e.StatusCode, e.Body)
}

func (e *SendError) Unwrap() error { return e.Err }

// SendRequest is one outbound AS2 message
type SendRequest struct {
	URL       string
	AS2From   string
	AS2To     string
	MessageID string
	Subject   string
	Packed    *Packed
	// RequestMDN adds the Disposition-Notification headers
	RequestMDN bool
	// AsyncMDNURL asks the partner to deliver the MDN to this URL instead of
	// the HTTP response
	AsyncMDNURL string
}

// SendResult carries the synchronous outcome of a send
type SendResult struct {
	MessageID  string
	StatusCode int
	MDN        *MdnData
	Duration   time.Duration
}

// Client posts AS2 messages to partners
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
}

// NewClient creates a client with the given request timeout
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
	}
}

// NewMessageID returns a Message-ID header value scoped to the sender
func NewMessageID(as2From string) string {
	host := strings.Map(func(r rune) rune {
		if r == ' ' || r == '<' || r == '>' || r == '@' {
			return '_'
		}
		return r
	}, as2From)
	return "<" + uuid.NewString() + "@" + host + ">"
}

// Send posts the packed body. A synchronous MDN in the response is parsed;
// a non-2xx status is returned as a SendError carrying the status.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if req.Packed == nil {
		return nil, fmt.Errorf("nothing to send")
	}
	messageID := req.MessageID
	if messageID == "" {
		messageID = NewMessageID(req.AS2From)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Packed.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	h := httpReq.Header
	h.Set("Content-Type", req.Packed.ContentType)
	h.Set("MIME-Version", "1.0")
	h.Set("AS2-Version", as2Version)
	h.Set("AS2-From", quoteAS2Name(req.AS2From))
	h.Set("AS2-To", quoteAS2Name(req.AS2To))
	h.Set("Message-ID", messageID)
	h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	if req.Subject != "" {
		h.Set("Subject", req.Subject)
	}
	if req.Packed.Signed || req.Packed.Encrypted {
		h.Set("Content-Transfer-Encoding", "binary")
		h.Set("Content-Disposition", `attachment; filename="smime.p7m"`)
	}
	if c.UserAgent != "" {
		h.Set("User-Agent", c.UserAgent)
	}
	if req.RequestMDN {
		h.Set("Disposition-Notification-To", req.AS2From)
		h.Set("Disposition-Notification-Options", dispositionOptions)
		if req.AsyncMDNURL != "" {
			h.Set("Receipt-Delivery-Option", req.AsyncMDNURL)
		}
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	started := time.Now()
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, &SendError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMDNResponseBytes))
	if err != nil {
		return nil, &SendError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	result := &SendResult{
		MessageID:  messageID,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(started),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &SendError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	if req.RequestMDN && req.AsyncMDNURL == "" && len(bytes.TrimSpace(body)) > 0 {
		mdn, err := ParseMDN(body)
		if err != nil {
			return result, fmt.Errorf("failed to parse MDN: %w", err)
		}
		result.MDN = mdn
	}
	return result, nil
}

// quoteAS2Name quotes AS2 identifiers that contain spaces
func quoteAS2Name(name string) string {
	if strings.ContainsAny(name, " \t") && !strings.HasPrefix(name, `"`) {
		return `"` + name + `"`
	}
	return name
}

// UnquoteAS2Name reverses quoteAS2Name for received headers
func UnquoteAS2Name(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name[1 : len(name)-1]
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// SendMDN delivers an asynchronous MDN to the URL named in the original
// message's Receipt-Delivery-Option header
func (c *Client) SendMDN(ctx context.Context, url string, body []byte, contentType string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("MIME-Version", "1.0")
	httpReq.Header.Set("AS2-Version", as2Version)
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return &SendError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxMDNResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SendError{StatusCode: resp.StatusCode}
	}
	return nil
}
