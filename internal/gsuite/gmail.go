package gsuite

import (
	"context"
	"encoding/base64"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"mime"
	"net/mail"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/weekrep/weekrep/internal/report"
)

// Gmail reads form submission receipts and writes report drafts.
type Gmail struct {
	svc         *gmail.Service
	loc         *time.Location
	formsSender string
	logger      *slog.Logger
}

var _ report.SubmissionSource = (*Gmail)(nil)

func NewGmail(ctx context.Context, creds *CredentialProvider, loc *time.Location, formsSender string, logger *slog.Logger) (*Gmail, error) {
	httpClient, err := creds.Client(ctx, "gmail", gmail.GmailReadonlyScope, gmail.GmailComposeScope)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Gmail{svc: svc, loc: loc, formsSender: formsSender, logger: logger}, nil
}

// Submissions returns the form receipts that arrived during the window.
// Gmail's before: operator is exclusive, so the query reaches one day past
// the window and the parsed Date header decides the final cut.
func (g *Gmail) Submissions(ctx context.Context, w report.Window) ([]report.Submission, error) {
	query := fmt.Sprintf("from:%s after:%s before:%s",
		g.formsSender,
		w.Start.Format("2006/01/02"),
		w.End.AddDate(0, 0, 1).Format("2006/01/02"))

	result, err := g.svc.Users.Messages.List("me").Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list form receipts: %w", err)
	}

	var subs []report.Submission
	for _, message := range result.Messages {
		msg, err := g.svc.Users.Messages.Get("me", message.Id).
			Format("metadata").
			MetadataHeaders("Subject", "Date").
			Context(ctx).Do()
		if err != nil {
			return subs, fmt.Errorf("failed to fetch form receipt: %w", err)
		}

		submittedAt, err := parseMailDate(header(msg, "Date"))
		if err != nil {
			g.logger.Warn("skipping receipt with unparseable date", "error", err)
			continue
		}
		submittedAt = submittedAt.In(g.loc)
		if !w.Contains(submittedAt) {
			continue
		}

		title := strings.TrimSpace(strings.TrimPrefix(header(msg, "Subject"), "Response submitted:"))
		subs = append(subs, report.Submission{
			Title:       title,
			SubmittedAt: submittedAt,
		})
	}

	return subs, nil
}

const mailStyle = `<html>
<head>
<style>
body {
	font-family: Arial, sans-serif;
	line-height: 1.6;
	color: #333;
}
hr {
	border: 0;
	height: 1px;
	background-color: #ddd;
	margin: 20px 0;
}
pre {
	background-color: #f5f5f5;
	padding: 10px;
	border-radius: 4px;
}
code {
	background-color: #f5f5f5;
	padding: 2px 4px;
	border-radius: 4px;
}
</style>
</head>
<body>
{{.Content}}
</body>
</html>
`

// CreateReportDraft renders the report body into the mail template, converts
// it to styled HTML, and stores it as a Gmail draft. It returns the draft ID.
func (g *Gmail) CreateReportDraft(ctx context.Context, body string, w report.Window, author, mailTemplate string, to, cc []string) (string, error) {
	content, err := renderMailBody(mailTemplate, w.RangeLabel(), body)
	if err != nil {
		return "", err
	}

	html, err := renderMailHTML(content)
	if err != nil {
		return "", err
	}

	subject := fmt.Sprintf("[Weekly Report: %s] %s", author, w.RangeLabel())
	raw := encodeMessage(to, cc, subject, html)

	draft, err := g.svc.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{Raw: raw},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}

	return draft.Id, nil
}

func renderMailBody(mailTemplate, rangeLabel, body string) (string, error) {
	t, err := texttemplate.New("mail").Option("missingkey=error").Parse(mailTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse mail template: %w", err)
	}

	var buf strings.Builder
	err = t.Execute(&buf, map[string]string{
		"date_range": rangeLabel,
		"report":     body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render mail template: %w", err)
	}

	return buf.String(), nil
}

func renderMailHTML(content string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var converted strings.Builder
	if err := md.Convert([]byte(content), &converted); err != nil {
		return "", fmt.Errorf("failed to convert report to HTML: %w", err)
	}

	t, err := htmltemplate.New("style").Parse(mailStyle)
	if err != nil {
		return "", err
	}

	var html strings.Builder
	err = t.Execute(&html, map[string]any{
		"Content": htmltemplate.HTML(converted.String()),
	})
	if err != nil {
		return "", err
	}

	return html.String(), nil
}

func encodeMessage(to, cc []string, subject, html string) string {
	var msg strings.Builder

	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	if len(cc) > 0 {
		msg.WriteString("Cc: " + strings.Join(cc, ", ") + "\r\n")
	}
	msg.WriteString("Subject: " + mime.QEncoding.Encode("UTF-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	return base64.URLEncoding.EncodeToString([]byte(msg.String()))
}

var (
	docAnchorPattern = regexp.MustCompile(`href="(https://docs\.google\.com/document/d/[\w-]+/edit)"[^>]*>Open Weekly Report<`)
	docLinkPattern   = regexp.MustCompile(`https://docs\.google\.com/document/d/[\w-]+/edit`)
)

// FindSyncDocURL locates the weekly report notification mail and pulls the
// Google Docs link out of it. The notification subject carries last week's
// Sunday and this week's Saturday; candidates are narrowed by the author
// name appearing in the mail body.
func (g *Gmail) FindSyncDocURL(ctx context.Context, sender, author string, now time.Time) (string, error) {
	daysSinceMonday := int(now.Weekday() - time.Monday)
	if daysSinceMonday < 0 {
		daysSinceMonday += 7
	}
	monday := now.AddDate(0, 0, -daysSinceMonday)
	sunday := monday.AddDate(0, 0, -1)
	saturday := monday.AddDate(0, 0, 5)

	subject := fmt.Sprintf("[Fill Weekly Report] %s - %s",
		sunday.Format("02 January 2006"), saturday.Format("02 January 2006"))
	query := fmt.Sprintf("subject:%q", subject)
	if sender != "" {
		query = fmt.Sprintf("from:%s %s", sender, query)
	}

	result, err := g.svc.Users.Messages.List("me").Q(query).MaxResults(10).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search for report notification: %w", err)
	}
	if len(result.Messages) == 0 {
		return "", fmt.Errorf("no report notification found for %q", subject)
	}

	for _, message := range result.Messages {
		msg, err := g.svc.Users.Messages.Get("me", message.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to fetch report notification: %w", err)
		}

		content := messageText(msg.Payload)
		if author != "" && !strings.Contains(strings.ToLower(content), strings.ToLower(author)) {
			continue
		}

		if m := docAnchorPattern.FindStringSubmatch(content); m != nil {
			return m[1], nil
		}
		if link := docLinkPattern.FindString(content); link != "" {
			return link, nil
		}
	}

	return "", fmt.Errorf("no Google Docs link found in report notification")
}

// messageText flattens a MIME tree into the concatenated text of its plain
// and HTML parts.
func messageText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}

	var out strings.Builder
	if part.MimeType == "text/plain" || part.MimeType == "text/html" {
		if part.Body != nil && part.Body.Data != "" {
			if data, err := decodeBase64URL(part.Body.Data); err == nil {
				out.Write(data)
			}
		}
	}
	for _, child := range part.Parts {
		out.WriteString(messageText(child))
	}

	return out.String()
}

func decodeBase64URL(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

func header(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// parseMailDate accepts RFC 5322 dates plus the trailing zone-name variant
// some providers still emit.
func parseMailDate(value string) (time.Time, error) {
	if t, err := mail.ParseDate(value); err == nil {
		return t, nil
	}
	return time.Parse("Mon, 2 Jan 2006 15:04:05 -0700 (MST)", value)
}
