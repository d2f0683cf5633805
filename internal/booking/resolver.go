package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/smart-schedule/internal/notify"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var bookingTracer = otel.Tracer("smartschedule.internal.booking")

// DefaultConflictWindow is the minimum separation between two appointments.
const DefaultConflictWindow = time.Hour

const notifyTimeout = 15 * time.Second

// Outcome labels a resolution for logs and metrics.
type Outcome string

const (
	OutcomeConfirmed       Outcome = "confirmed"
	OutcomeMissingFields   Outcome = "missing_fields"
	OutcomeServiceNotFound Outcome = "service_not_found"
	OutcomeInvalidDate     Outcome = "invalid_date"
	OutcomeSlotTaken       Outcome = "slot_taken"
	OutcomeError           Outcome = "error"
)

// Request holds the book_appointment arguments.
type Request struct {
	CustomerName  string
	CustomerPhone string
	ServiceName   string
	DateTimeISO   string
}

// Missing lists the names of empty fields, in declaration order.
func (r Request) Missing() []string {
	var missing []string
	if strings.TrimSpace(r.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(r.CustomerPhone) == "" {
		missing = append(missing, "customerPhone")
	}
	if strings.TrimSpace(r.ServiceName) == "" {
		missing = append(missing, "serviceName")
	}
	if strings.TrimSpace(r.DateTimeISO) == "" {
		missing = append(missing, "dateTimeIso")
	}
	return missing
}

// Result is what the conversation layer shows the customer.
type Result struct {
	Message     string
	Outcome     Outcome
	Appointment *schedule.Appointment
	Service     *schedule.Service
}

// Confirmed reports whether an appointment was written.
func (r Result) Confirmed() bool {
	return r.Outcome == OutcomeConfirmed
}

// Store is the part of the schedule repository the resolver needs.
type Store interface {
	ListServices(ctx context.Context) ([]schedule.Service, error)
	BookAppointment(ctx context.Context, appt schedule.NewAppointment, window time.Duration) (*schedule.Appointment, error)
}

// Observer receives booking outcomes.
type Observer interface {
	ObserveBooking(outcome string)
}

// Notifier is told about confirmed appointments. Delivery happens off the
// request path; failures are only logged.
type Notifier interface {
	NotifyBooking(ctx context.Context, n notify.BookingNotice) error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConflictWindow overrides DefaultConflictWindow.
func WithConflictWindow(window time.Duration) Option {
	return func(r *Resolver) {
		if window > 0 {
			r.window = window
		}
	}
}

// WithLocation sets the business timezone used for offset-less timestamps
// and for formatting confirmations.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(obs Observer) Option {
	return func(r *Resolver) {
		r.observer = obs
	}
}

// WithNotifier sends a notice for every confirmed appointment.
func WithNotifier(n Notifier) Option {
	return func(r *Resolver) {
		r.notifier = n
	}
}

// Resolver validates booking requests and writes appointments.
type Resolver struct {
	store    Store
	window   time.Duration
	loc      *time.Location
	observer Observer
	notifier Notifier
	logger   *logging.Logger
}

// NewResolver constructs a resolver over store.
func NewResolver(store Store, logger *logging.Logger, opts ...Option) *Resolver {
	if store == nil {
		panic("booking: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Resolver{
		store:  store,
		window: DefaultConflictWindow,
		loc:    time.UTC,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConflictWindow returns the configured window.
func (r *Resolver) ConflictWindow() time.Duration {
	return r.window
}

// Resolve runs the validation pipeline and books the appointment. It never
// returns an error: every failure becomes a customer-facing rejection.
func (r *Resolver) Resolve(ctx context.Context, req Request) Result {
	ctx, span := bookingTracer.Start(ctx, "booking.resolve")
	defer span.End()

	res := r.resolve(ctx, req)
	span.SetAttributes(attribute.String("booking.outcome", string(res.Outcome)))
	if r.observer != nil {
		r.observer.ObserveBooking(string(res.Outcome))
	}
	if res.Confirmed() && r.notifier != nil {
		go r.notify(context.WithoutCancel(ctx), req, res)
	}
	return res
}

func (r *Resolver) notify(ctx context.Context, req Request, res Result) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	err := r.notifier.NotifyBooking(ctx, notify.BookingNotice{
		AppointmentID: res.Appointment.ID,
		ServiceName:   res.Service.Name,
		ServicePrice:  res.Service.Price(),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		DateTime:      res.Appointment.DateTime,
	})
	if err != nil {
		r.logger.Warn("booking notification failed", "appointment_id", res.Appointment.ID, "error", err)
	}
}

func (r *Resolver) resolve(ctx context.Context, req Request) Result {
	if missing := req.Missing(); len(missing) > 0 {
		r.logger.Info("booking rejected: missing fields", "missing", missing)
		return Result{Message: MsgMissingFields, Outcome: OutcomeMissingFields}
	}

	services, err := r.store.ListServices(ctx)
	if err != nil {
		r.logger.Error("booking failed: list services", "error", err)
		return Result{Message: MsgTechnicalError, Outcome: OutcomeError}
	}
	svc, ok := MatchService(services, req.ServiceName)
	if !ok {
		r.logger.Info("booking rejected: service not found", "service_name", req.ServiceName)
		return Result{
			Message: fmt.Sprintf(MsgServiceNotFound, strings.TrimSpace(req.ServiceName)),
			Outcome: OutcomeServiceNotFound,
		}
	}

	at, err := ParseDateTime(req.DateTimeISO, r.loc)
	if err != nil {
		r.logger.Info("booking rejected: invalid date", "date_time", req.DateTimeISO)
		return Result{Message: MsgInvalidDate, Outcome: OutcomeInvalidDate, Service: svc}
	}

	appt, err := r.store.BookAppointment(ctx, schedule.NewAppointment{
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		ServiceID:      svc.ID,
		ProfessionalID: svc.ProfessionalID,
		DateTime:       at,
	}, r.window)
	if err != nil {
		if errors.Is(err, schedule.ErrSlotTaken) {
			r.logger.Info("booking rejected: slot taken", "date_time", at.UTC().Format(time.RFC3339))
			return Result{Message: MsgSlotTaken, Outcome: OutcomeSlotTaken, Service: svc}
		}
		r.logger.Error("booking failed: persist appointment", "error", err)
		return Result{Message: MsgTechnicalError, Outcome: OutcomeError, Service: svc}
	}

	r.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"service_id", svc.ID,
		"customer_id", appt.CustomerID,
		"date_time", appt.DateTime.Format(time.RFC3339),
	)
	return Result{
		Message: fmt.Sprintf(MsgConfirmed,
			svc.Name,
			strings.TrimSpace(req.CustomerName),
			at.In(r.loc).Format(DisplayLayout),
		),
		Outcome:     OutcomeConfirmed,
		Appointment: appt,
		Service:     svc,
	}
}

// MatchService returns the first service, in catalog order, whose name
// contains query case-insensitively.
func MatchService(services []schedule.Service, query string) (*schedule.Service, bool) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, false
	}
	for i := range services {
		if strings.Contains(strings.ToLower(services[i].Name), needle) {
			svc := services[i]
			return &svc, true
		}
	}
	return nil, false
}
