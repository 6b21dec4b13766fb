package export

import (
	"bytes"
	"context"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/entity"
)

const defaultFrom = "inspection-reports@localhost"

// Message overrides the configured addressing for one outgoing message.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// BuildMessage renders the report and wraps it as a PDF attachment in an
// RFC 5322 message. Delivery is left to the caller.
func (s *Service) BuildMessage(ctx context.Context, report *entity.Report, msg Message) ([]byte, error) {
	to := msg.To
	if len(to) == 0 {
		to = s.cfg.Recipients
	}
	addrs, err := parseAddresses(to)
	if err != nil {
		return nil, err
	}
	from := s.cfg.From
	if from == "" {
		from = defaultFrom
	}
	pdf, err := s.RenderPDF(ctx, report)
	if err != nil {
		return nil, err
	}

	subject := msg.Subject
	if subject == "" {
		subject = s.cfg.Subject
	}
	if subject == "" {
		subject = fmt.Sprintf("Inspection report %s %s", report.Header.SiteID, report.Header.Date)
	}
	body := msg.Body
	if body == "" {
		body = summary(report)
	}

	m := mail.NewMsg(mail.WithNoDefaultUserAgent())
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %v", common.ErrInvalidInput, from, err)
	}
	if err := m.To(addrs...); err != nil {
		return nil, fmt.Errorf("%w: recipients: %v", common.ErrInvalidInput, err)
	}
	m.Subject(subject)
	m.SetDateWithValue(s.now())
	m.SetMessageIDWithValue(uuid.NewString() + "@inspection-reports")
	m.SetBodyString(mail.TypeTextPlain, body)
	if err := m.AttachReader(Filename(report, "pdf"), bytes.NewReader(pdf),
		mail.WithFileContentType(mail.ContentType("application/pdf"))); err != nil {
		return nil, fmt.Errorf("attach pdf: %w", err)
	}

	var out bytes.Buffer
	if _, err := m.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("write message: %w", err)
	}

	s.logger.Info("export.message.ok",
		"site_id", report.Header.SiteID,
		"recipients", len(addrs),
		"bytes", out.Len(),
	)
	return out.Bytes(), nil
}

// parseAddresses checks every recipient up front so a bad one is reported as
// invalid input rather than a composition failure.
func parseAddresses(list []string) ([]string, error) {
	var addrs []string
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		a, err := netmail.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: recipient %q: %v", common.ErrInvalidInput, raw, err)
		}
		addrs = append(addrs, a.String())
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no recipients", common.ErrInvalidInput)
	}
	return addrs, nil
}

func summary(r *entity.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inspection report for site %s, %s.\r\n", r.Header.SiteID, r.Header.Date)
	fmt.Fprintf(&b, "%d items, %d photos.\r\n", len(r.Items), r.PhotoCount())
	for i, it := range r.Items {
		fmt.Fprintf(&b, "  %d. %s - %sm - %s\r\n", i+1, it.Type, strings.TrimSpace(it.Depth), it.Status)
	}
	b.WriteString("\r\nThe full report is attached.\r\n")
	return b.String()
}
