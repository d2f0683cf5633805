package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/smart-schedule/pkg/logging"
)

// BookingNotice describes a confirmed appointment for the shop inbox.
type BookingNotice struct {
	AppointmentID string
	ServiceName   string
	ServicePrice  string
	CustomerName  string
	CustomerPhone string
	DateTime      time.Time
}

// Service sends booking notifications to the shop.
type Service struct {
	email        EmailSender
	to           string
	businessName string
	loc          *time.Location
	logger       *logging.Logger
}

// NewService creates a notification service. An empty to address disables
// delivery.
func NewService(email EmailSender, to, businessName string, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if strings.TrimSpace(businessName) == "" {
		businessName = defaultFromName
	}
	return &Service{
		email:        email,
		to:           strings.TrimSpace(to),
		businessName: businessName,
		loc:          loc,
		logger:       logger,
	}
}

// Enabled reports whether notifications will be delivered.
func (s *Service) Enabled() bool {
	return s != nil && s.email != nil && s.to != ""
}

// NotifyBooking emails the shop about a new appointment.
func (s *Service) NotifyBooking(ctx context.Context, n BookingNotice) error {
	if !s.Enabled() {
		return nil
	}

	when := n.DateTime.In(s.loc).Format("02/01/2006 15:04")
	msg := EmailMessage{
		To:      s.to,
		ToName:  s.businessName,
		Subject: fmt.Sprintf("Novo agendamento: %s em %s", n.ServiceName, when),
		Body:    s.formatText(n, when),
		HTML:    s.formatHTML(n, when),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking email: %w", err)
	}
	s.logger.Info("booking notification sent", "appointment_id", n.AppointmentID)
	return nil
}

func (s *Service) formatText(n BookingNotice, when string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Novo agendamento pelo assistente da %s.\n\n", s.businessName)
	fmt.Fprintf(&b, "Serviço: %s", n.ServiceName)
	if n.ServicePrice != "" {
		fmt.Fprintf(&b, " (%s)", n.ServicePrice)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Cliente: %s\n", n.CustomerName)
	fmt.Fprintf(&b, "Telefone: %s\n", n.CustomerPhone)
	fmt.Fprintf(&b, "Data: %s\n", when)
	fmt.Fprintf(&b, "Código: %s\n", n.AppointmentID)
	return b.String()
}

func (s *Service) formatHTML(n BookingNotice, when string) string {
	rows := [][2]string{
		{"Serviço", n.ServiceName},
		{"Cliente", n.CustomerName},
		{"Telefone", n.CustomerPhone},
		{"Data", when},
		{"Código", n.AppointmentID},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Novo agendamento pelo assistente da %s.</p><table>", html.EscapeString(s.businessName))
	for _, row := range rows {
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", row[0], html.EscapeString(row[1]))
	}
	b.WriteString("</table>")
	return b.String()
}
