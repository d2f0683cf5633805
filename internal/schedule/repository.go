package schedule

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the storage operations the booking flow relies on.
type Repository interface {
	ListServices(ctx context.Context) ([]Service, error)
	GetService(ctx context.Context, id string) (*Service, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	GetAppointment(ctx context.Context, id string) (*Appointment, error)
	UpsertCustomer(ctx context.Context, name, phone string) (*Customer, error)
	// BookAppointment upserts the customer and inserts the appointment only
	// when no other appointment lies within window of DateTime. The check and
	// the write happen atomically.
	BookAppointment(ctx context.Context, appt NewAppointment, window time.Duration) (*Appointment, error)
}

// Seeder is implemented by repositories that can load the catalog.
type Seeder interface {
	UpsertProfessional(ctx context.Context, p Professional) (*Professional, error)
	CreateService(ctx context.Context, svc NewService) (*Service, error)
}

// InMemoryRepository keeps the schedule in process memory. It backs local
// development and tests.
type InMemoryRepository struct {
	mu            sync.RWMutex
	professionals map[string]*Professional
	services      []*Service
	customers     map[string]*Customer // phone -> customer
	appointments  []*Appointment
	now           func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		professionals: make(map[string]*Professional),
		customers:     make(map[string]*Customer),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ListServices returns services in insertion order.
func (r *InMemoryRepository) ListServices(ctx context.Context) ([]Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, *svc)
	}
	return out, nil
}

// GetService looks a service up by id.
func (r *InMemoryRepository) GetService(ctx context.Context, id string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, svc := range r.services {
		if svc.ID == id {
			cp := *svc
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListAppointments returns every appointment ordered by time.
func (r *InMemoryRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0, len(r.appointments))
	for _, appt := range r.appointments {
		out = append(out, *appt)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

// GetAppointment looks an appointment up by id.
func (r *InMemoryRepository) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, appt := range r.appointments {
		if appt.ID == id {
			cp := *appt
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// UpsertCustomer inserts the customer or overwrites the stored name.
func (r *InMemoryRepository) UpsertCustomer(ctx context.Context, name, phone string) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertCustomerLocked(name, phone)
}

func (r *InMemoryRepository) upsertCustomerLocked(name, phone string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidAppointment
	}
	now := r.now()
	if existing, ok := r.customers[phone]; ok {
		existing.Name = name
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}
	c := &Customer{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.customers[phone] = c
	cp := *c
	return &cp, nil
}

// BookAppointment checks the window and writes under a single lock.
func (r *InMemoryRepository) BookAppointment(ctx context.Context, appt NewAppointment, window time.Duration) (*Appointment, error) {
	if strings.TrimSpace(appt.CustomerPhone) == "" || appt.ServiceID == "" || appt.ProfessionalID == "" {
		return nil, ErrInvalidAppointment
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.appointments {
		if withinWindow(existing.DateTime, appt.DateTime, window) {
			return nil, ErrSlotTaken
		}
	}

	customer, err := r.upsertCustomerLocked(appt.CustomerName, appt.CustomerPhone)
	if err != nil {
		return nil, err
	}

	created := &Appointment{
		ID:             uuid.NewString(),
		DateTime:       appt.DateTime.UTC(),
		CustomerID:     customer.ID,
		ServiceID:      appt.ServiceID,
		ProfessionalID: appt.ProfessionalID,
		CreatedAt:      r.now(),
	}
	r.appointments = append(r.appointments, created)
	cp := *created
	return &cp, nil
}

// UpsertProfessional inserts a professional keyed by email.
func (r *InMemoryRepository) UpsertProfessional(ctx context.Context, p Professional) (*Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(p.Email))
	if existing, ok := r.professionals[key]; ok {
		cp := *existing
		return &cp, nil
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.now()
	stored := p
	r.professionals[key] = &stored
	return &p, nil
}

// CreateService appends a service unless one with the same name exists.
func (r *InMemoryRepository) CreateService(ctx context.Context, svc NewService) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.services {
		if existing.Name == svc.Name {
			cp := *existing
			return &cp, nil
		}
	}
	created := &Service{
		ID:              uuid.NewString(),
		Name:            svc.Name,
		Description:     svc.Description,
		PriceCents:      svc.PriceCents,
		DurationMinutes: svc.DurationMinutes,
		ProfessionalID:  svc.ProfessionalID,
		CreatedAt:       r.now(),
	}
	r.services = append(r.services, created)
	cp := *created
	return &cp, nil
}

// CustomerCount reports how many distinct customers are stored.
func (r *InMemoryRepository) CustomerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.customers)
}

// CustomerByPhone returns the stored customer for phone.
func (r *InMemoryRepository) CustomerByPhone(phone string) (*Customer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[strings.TrimSpace(phone)]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}
