package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// appointmentsLockKey serializes BookAppointment across connections. The
// calendar is global, so a single advisory lock key is enough.
const appointmentsLockKey int64 = 7_240_001

// PgxPool is the subset of pgxpool.Pool the repository uses.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores the schedule in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// ListServices returns the catalog in creation order.
func (r *PostgresRepository) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, description, price_cents, duration_minutes, professional_id::text, created_at
		FROM services
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("schedule: list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(
			&svc.ID,
			&svc.Name,
			&svc.Description,
			&svc.PriceCents,
			&svc.DurationMinutes,
			&svc.ProfessionalID,
			&svc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("schedule: scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list services: %w", err)
	}
	return out, nil
}

// GetService fetches one service by id.
func (r *PostgresRepository) GetService(ctx context.Context, id string) (*Service, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var svc Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, description, price_cents, duration_minutes, professional_id::text, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(
		&svc.ID,
		&svc.Name,
		&svc.Description,
		&svc.PriceCents,
		&svc.DurationMinutes,
		&svc.ProfessionalID,
		&svc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("schedule: get service: %w", err)
	}
	return &svc, nil
}

// ListAppointments returns every appointment ordered by time.
func (r *PostgresRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, date_time, customer_id::text, service_id::text, professional_id::text, created_at
		FROM appointments
		ORDER BY date_time
	`)
	if err != nil {
		return nil, fmt.Errorf("schedule: list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.DateTime,
			&appt.CustomerID,
			&appt.ServiceID,
			&appt.ProfessionalID,
			&appt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("schedule: scan appointment: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list appointments: %w", err)
	}
	return out, nil
}

// GetAppointment fetches one appointment by id.
func (r *PostgresRepository) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var appt Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, date_time, customer_id::text, service_id::text, professional_id::text, created_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(
		&appt.ID,
		&appt.DateTime,
		&appt.CustomerID,
		&appt.ServiceID,
		&appt.ProfessionalID,
		&appt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("schedule: get appointment: %w", err)
	}
	return &appt, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UpsertCustomer inserts by phone or overwrites the stored name.
func (r *PostgresRepository) UpsertCustomer(ctx context.Context, name, phone string) (*Customer, error) {
	return upsertCustomer(ctx, r.pool, name, phone)
}

func upsertCustomer(ctx context.Context, q queryRower, name, phone string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidAppointment
	}
	c := Customer{Name: name, Phone: phone}
	err := q.QueryRow(ctx, `
		INSERT INTO customers (id, name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
		RETURNING id::text, created_at, updated_at
	`, uuid.NewString(), name, phone).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("schedule: upsert customer: %w", err)
	}
	return &c, nil
}

// BookAppointment runs the conflict check, customer upsert and insert in one
// transaction holding an advisory lock, so concurrent bookings for the same
// slot cannot both pass the check.
func (r *PostgresRepository) BookAppointment(ctx context.Context, appt NewAppointment, window time.Duration) (*Appointment, error) {
	if strings.TrimSpace(appt.CustomerPhone) == "" || appt.ServiceID == "" || appt.ProfessionalID == "" {
		return nil, ErrInvalidAppointment
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appointmentsLockKey); err != nil {
		return nil, fmt.Errorf("schedule: lock calendar: %w", err)
	}

	at := appt.DateTime.UTC()
	var taken bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE date_time > $1 AND date_time < $2
		)
	`, at.Add(-window), at.Add(window)).Scan(&taken); err != nil {
		return nil, fmt.Errorf("schedule: check conflicts: %w", err)
	}
	if taken {
		return nil, ErrSlotTaken
	}

	customer, err := upsertCustomer(ctx, tx, appt.CustomerName, appt.CustomerPhone)
	if err != nil {
		return nil, err
	}

	created := Appointment{
		ID:             uuid.NewString(),
		DateTime:       at,
		CustomerID:     customer.ID,
		ServiceID:      appt.ServiceID,
		ProfessionalID: appt.ProfessionalID,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, date_time, customer_id, service_id, professional_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, created.ID, created.DateTime, created.CustomerID, created.ServiceID, created.ProfessionalID).Scan(&created.CreatedAt); err != nil {
		return nil, fmt.Errorf("schedule: insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("schedule: commit booking: %w", err)
	}
	return &created, nil
}

// UpsertProfessional inserts a professional keyed by email, leaving an
// existing row untouched.
func (r *PostgresRepository) UpsertProfessional(ctx context.Context, p Professional) (*Professional, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO professionals (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id::text, name, phone, created_at
	`, p.ID, p.Name, p.Email, p.Phone).Scan(&p.ID, &p.Name, &p.Phone, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("schedule: upsert professional: %w", err)
	}
	return &p, nil
}

// CreateService inserts a catalog entry, skipping duplicates by name.
func (r *PostgresRepository) CreateService(ctx context.Context, svc NewService) (*Service, error) {
	out := Service{
		Name:            svc.Name,
		Description:     svc.Description,
		PriceCents:      svc.PriceCents,
		DurationMinutes: svc.DurationMinutes,
		ProfessionalID:  svc.ProfessionalID,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, description, price_cents, duration_minutes, professional_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text, created_at
	`, uuid.NewString(), svc.Name, svc.Description, svc.PriceCents, svc.DurationMinutes, svc.ProfessionalID).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("schedule: create service: %w", err)
	}
	return &out, nil
}
