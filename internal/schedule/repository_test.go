package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemoryRepo(t *testing.T) (*InMemoryRepository, []Service) {
	t.Helper()
	repo := NewInMemoryRepository()
	services, err := Seed(context.Background(), repo, DefaultCatalog())
	require.NoError(t, err)
	return repo, services
}

func TestInMemoryListServicesKeepsCatalogOrder(t *testing.T) {
	repo, _ := seededMemoryRepo(t)

	services, err := repo.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 3)
	assert.Equal(t, "Corte Degradê", services[0].Name)
	assert.Equal(t, "Barba Terapia", services[1].Name)
	assert.Equal(t, "Combo Completo", services[2].Name)
}

func TestInMemoryUpsertCustomerOverwritesName(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first, err := repo.UpsertCustomer(ctx, "Carlos", "11999998888")
	require.NoError(t, err)
	second, err := repo.UpsertCustomer(ctx, "Carlos Silva", "11999998888")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Carlos Silva", second.Name)
	assert.Equal(t, 1, repo.CustomerCount())
}

func TestInMemoryBookAppointmentConflictWindow(t *testing.T) {
	repo, services := seededMemoryRepo(t)
	ctx := context.Background()
	window := time.Hour
	base := time.Date(2026, 10, 20, 13, 0, 0, 0, time.UTC)

	book := func(at time.Time, phone string) (*Appointment, error) {
		return repo.BookAppointment(ctx, NewAppointment{
			CustomerName:   "Carlos",
			CustomerPhone:  phone,
			ServiceID:      services[0].ID,
			ProfessionalID: services[0].ProfessionalID,
			DateTime:       at,
		}, window)
	}

	_, err := book(base, "111")
	require.NoError(t, err)

	_, err = book(base.Add(59*time.Minute), "222")
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = book(base.Add(-30*time.Minute), "222")
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = book(base.Add(window), "333")
	assert.NoError(t, err, "exactly one window apart must be accepted")

	appts, err := repo.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 2)
	assert.Equal(t, 2, repo.CustomerCount(), "rejected bookings must not create customers")
}

func TestInMemoryBookAppointmentIsAtomicUnderConcurrency(t *testing.T) {
	repo, services := seededMemoryRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.BookAppointment(ctx, NewAppointment{
				CustomerName:   "Race",
				CustomerPhone:  "5511000000000",
				ServiceID:      services[1].ID,
				ProfessionalID: services[1].ProfessionalID,
				DateTime:       at,
			}, time.Minute)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotTaken)
	}
	assert.Equal(t, 1, succeeded)
}

func TestInMemoryBookAppointmentRequiresFields(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.BookAppointment(context.Background(), NewAppointment{CustomerName: "x"}, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidAppointment)
}

func TestInMemoryLookups(t *testing.T) {
	repo, services := seededMemoryRepo(t)
	ctx := context.Background()

	svc, err := repo.GetService(ctx, services[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "Combo Completo", svc.Name)

	_, err = repo.GetService(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetAppointment(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	repo, first := seededMemoryRepo(t)
	second, err := Seed(context.Background(), repo, DefaultCatalog())
	require.NoError(t, err)

	services, err := repo.ListServices(context.Background())
	require.NoError(t, err)
	assert.Len(t, services, 3)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].ProfessionalID, second[2].ProfessionalID)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "R$45.00", FormatPrice(4500))
	assert.Equal(t, "R$7.05", FormatPrice(705))
	assert.Equal(t, "-R$0.50", FormatPrice(-50))
	assert.Equal(t, "R$35.00", Service{PriceCents: 3500}.Price())
}
