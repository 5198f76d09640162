package reminder

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/taskfeed/internal/model"
)

// Subject returns the reminder subject line for a task.
func Subject(t model.Task) string {
	return fmt.Sprintf("Reminder: %q is due soon", t.Title)
}

// Recipient returns where a task's reminder goes: the assignee's email,
// or the assignee name at fallbackDomain. It is empty for unassigned
// tasks.
func Recipient(t model.Task, fallbackDomain string) string {
	if t.AssigneeEmail != "" {
		return t.AssigneeEmail
	}
	if t.Assignee == "" || fallbackDomain == "" {
		return ""
	}
	return t.Assignee + "@" + fallbackDomain
}

var htmlBody = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2 style="margin-bottom: 4px;">{{.Title}}</h2>
  <p style="color: #6b7280; margin-top: 0;">is due {{.Due}}</p>
  {{- if .Description}}
  <p>{{.Description}}</p>
  {{- end}}
  <table style="border-collapse: collapse;">
    <tr><td style="padding-right: 12px; color: #6b7280;">Due date</td><td>{{.DueDate}}</td></tr>
    <tr><td style="padding-right: 12px; color: #6b7280;">Priority</td><td>{{.Priority}}</td></tr>
    <tr><td style="padding-right: 12px; color: #6b7280;">Status</td><td>{{.Status}}</td></tr>
  </table>
</body>
</html>
`))

type bodyData struct {
	Title       string
	Description string
	DueDate     string
	Due         string
	Priority    string
	Status      string
}

// Compose renders the reminder for t as a multipart/alternative message
// with plain text and HTML parts.
func Compose(t model.Task, from, to string, now time.Time, loc *time.Location) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parsing sender %q: %w", from, err)
	}
	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient %q: %w", to, err)
	}

	data := bodyData{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     "none",
		Due:         "soon",
	}
	if t.DueDate != nil {
		data.DueDate = t.DueDate.Format(model.DateLayout)
		data.Due = relativeDay(*t.DueDate, now, loc)
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", []*mail.Address{toAddr})
	h.SetSubject(Subject(t))
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}
	h.Set("X-Taskfeed-Task-Id", t.ID)

	var buf bytes.Buffer
	w, err := mail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	if err := writePart(w, "text/plain", func(pw io.Writer) error {
		_, err := io.WriteString(pw, plainBody(data))
		return err
	}); err != nil {
		return nil, err
	}
	if err := writePart(w, "text/html", func(pw io.Writer) error {
		return htmlBody.Execute(pw, data)
	}); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(w *mail.InlineWriter, contentType string, body func(io.Writer) error) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	pw, err := w.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if err := body(pw); err != nil {
		pw.Close()
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return pw.Close()
}

func plainBody(d bodyData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is due %s.\n\n", d.Title, d.Due)
	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Due date: %s\n", d.DueDate)
	fmt.Fprintf(&b, "Priority: %s\n", d.Priority)
	fmt.Fprintf(&b, "Status:   %s\n", d.Status)
	return b.String()
}

func relativeDay(due, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc).Format(model.DateLayout)
	switch due.Format(model.DateLayout) {
	case today:
		return "today"
	case now.In(loc).AddDate(0, 0, 1).Format(model.DateLayout):
		return "tomorrow"
	}
	return "on " + due.Format(model.DateLayout)
}
