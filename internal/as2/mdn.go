package as2

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Disposition is the outcome reported by an MDN
type Disposition string

const (
	DispositionProcessed Disposition = "processed"
	DispositionFailed    Disposition = "failed"
)

const dispositionPrefix = "automatic-action/MDN-sent-automatically; "

// MdnData is the content of a message disposition notification
type MdnData struct {
	OriginalMessageID string
	Disposition       Disposition
	MIC               string
	ErrorMessage      string
	ReportingUA       string
	FinalRecipient    string
}

// Processed reports whether the partner accepted the message
func (m *MdnData) Processed() bool {
	return m != nil && m.Disposition == DispositionProcessed
}

// GenerateMDN builds a multipart/report body with a human readable part and
// a message/disposition-notification part. It returns the body and its
// Content-Type header value.
func GenerateMDN(d MdnData) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary("mdn-" + uuid.New().String()); err != nil {
		return nil, "", fmt.Errorf("failed to set boundary: %w", err)
	}

	ua := d.ReportingUA
	if ua == "" {
		ua = "edigate AS2"
	}
	reason := singleLine(d.ErrorMessage)

	var human string
	if d.Disposition == DispositionProcessed {
		human = fmt.Sprintf("The message %s was received and processed.", d.OriginalMessageID)
	} else {
		human = fmt.Sprintf("The message %s could not be processed: %s", d.OriginalMessageID, reason)
	}

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=us-ascii")
	textHeader.Set("Content-Transfer-Encoding", "7bit")
	part, err := w.CreatePart(textHeader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create text part: %w", err)
	}
	if _, err := part.Write([]byte(human + "\r\n")); err != nil {
		return nil, "", fmt.Errorf("failed to write text part: %w", err)
	}

	var report strings.Builder
	fmt.Fprintf(&report, "Reporting-UA: %s\r\n", ua)
	if d.FinalRecipient != "" {
		fmt.Fprintf(&report, "Original-Recipient: rfc822; %s\r\n", d.FinalRecipient)
		fmt.Fprintf(&report, "Final-Recipient: rfc822; %s\r\n", d.FinalRecipient)
	}
	fmt.Fprintf(&report, "Original-Message-ID: %s\r\n", d.OriginalMessageID)
	if d.Disposition == DispositionProcessed {
		report.WriteString("Disposition: " + dispositionPrefix + "processed\r\n")
	} else {
		report.WriteString("Disposition: " + dispositionPrefix + "failed/Failure: " + reason + "\r\n")
	}
	if d.MIC != "" {
		fmt.Fprintf(&report, "Received-Content-MIC: %s\r\n", d.MIC)
	}

	reportHeader := textproto.MIMEHeader{}
	reportHeader.Set("Content-Type", "message/disposition-notification")
	reportHeader.Set("Content-Transfer-Encoding", "7bit")
	part, err = w.CreatePart(reportHeader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create report part: %w", err)
	}
	if _, err := part.Write([]byte(report.String())); err != nil {
		return nil, "", fmt.Errorf("failed to write report part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	contentType := mime.FormatMediaType("multipart/report", map[string]string{
		"report-type": "disposition-notification",
		"boundary":    w.Boundary(),
	})
	return buf.Bytes(), contentType, nil
}

var (
	reOriginalMessageID = regexp.MustCompile(`(?mi)^Original-Message-ID:[ \t]*(.+?)[ \t]*\r?$`)
	reDisposition       = regexp.MustCompile(`(?mi)^Disposition:[ \t]*(.+?)[ \t]*\r?$`)
	reReceivedMIC       = regexp.MustCompile(`(?mi)^Received-Content-MIC:[ \t]*(.+?)[ \t]*\r?$`)
	reReportingUA       = regexp.MustCompile(`(?mi)^Reporting-UA:[ \t]*(.+?)[ \t]*\r?$`)
	reFinalRecipient    = regexp.MustCompile(`(?mi)^Final-Recipient:[ \t]*(?:rfc822;)?[ \t]*(.+?)[ \t]*\r?$`)
)

// ErrNotMDN is returned when a body carries no Disposition field
var ErrNotMDN = errors.New("body is not a disposition notification")

// ParseMDN extracts the disposition fields line by line. The body may be a
// bare report, a multipart/report or a signed wrapper around one.
func ParseMDN(body []byte) (*MdnData, error) {
	text := string(body)
	disp := firstMatch(reDisposition, text)
	if disp == "" {
		return nil, ErrNotMDN
	}

	d := &MdnData{
		OriginalMessageID: firstMatch(reOriginalMessageID, text),
		MIC:               firstMatch(reReceivedMIC, text),
		ReportingUA:       firstMatch(reReportingUA, text),
		FinalRecipient:    firstMatch(reFinalRecipient, text),
	}
	d.Disposition, d.ErrorMessage = classifyDisposition(disp)
	return d, nil
}

// classifyDisposition looks only at the disposition type after the first ';'
// with any modifier text removed, so a failure reason that happens to
// contain "processed" is still classified as failed.
func classifyDisposition(value string) (Disposition, string) {
	modifier := value
	if i := strings.Index(value, ";"); i >= 0 {
		modifier = value[i+1:]
	}
	modifier = strings.TrimSpace(modifier)

	kind, detail := modifier, ""
	if i := strings.Index(modifier, "/"); i >= 0 {
		kind, detail = modifier[:i], modifier[i+1:]
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	detail = strings.TrimSpace(detail)

	lowerDetail := strings.ToLower(detail)
	if kind == "processed" && !strings.HasPrefix(lowerDetail, "error") && !strings.HasPrefix(lowerDetail, "failure") {
		return DispositionProcessed, ""
	}

	reason := detail
	if i := strings.Index(detail, ":"); i >= 0 {
		reason = strings.TrimSpace(detail[i+1:])
	}
	if reason == "" {
		reason = modifier
	}
	return DispositionFailed, reason
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func singleLine(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return "unexpected-processing-error"
	}
	return s
}
