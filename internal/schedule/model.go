package schedule

import (
	"fmt"
	"time"
)

// Professional performs services and owns appointments booked against them.
type Professional struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is a catalog entry offered by a professional.
type Service struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	DurationMinutes int       `json:"duration_minutes"`
	ProfessionalID  string    `json:"professional_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Price renders the service price the way customers see it, e.g. R$45.00.
func (s Service) Price() string {
	return FormatPrice(s.PriceCents)
}

// FormatPrice renders an amount in cents as reais.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$%d.%02d", sign, cents/100, cents%100)
}

// Customer is keyed by phone; the name follows the latest booking.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Appointment is a booked slot for a customer and service.
type Appointment struct {
	ID             string    `json:"id"`
	DateTime       time.Time `json:"date_time"`
	CustomerID     string    `json:"customer_id"`
	ServiceID      string    `json:"service_id"`
	ProfessionalID string    `json:"professional_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAppointment carries everything BookAppointment needs to write a row.
type NewAppointment struct {
	CustomerName   string
	CustomerPhone  string
	ServiceID      string
	ProfessionalID string
	DateTime       time.Time
}

// NewService is the input for catalog seeding.
type NewService struct {
	Name            string
	Description     string
	PriceCents      int64
	DurationMinutes int
	ProfessionalID  string
}

// withinWindow reports whether a and b are strictly closer than window.
func withinWindow(a, b time.Time, window time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff < window
}
