package schedule

import (
	"context"
	"fmt"
)

// SeedCatalog describes the professional and services loaded by cmd/seed.
type SeedCatalog struct {
	Professional Professional
	Services     []NewService
}

// DefaultCatalog is the BarberPro launch catalog.
func DefaultCatalog() SeedCatalog {
	return SeedCatalog{
		Professional: Professional{
			Name:  "Mestre da Navalha",
			Email: "contato@barberking.com",
			Phone: "5511999999999",
		},
		Services: []NewService{
			{
				Name:            "Corte Degradê",
				Description:     "Corte moderno com acabamento na navalha",
				PriceCents:      4500,
				DurationMinutes: 45,
			},
			{
				Name:            "Barba Terapia",
				Description:     "Modelagem de barba com toalha quente",
				PriceCents:      3500,
				DurationMinutes: 30,
			},
			{
				Name:            "Combo Completo",
				Description:     "Corte + Barba + Sobrancelha",
				PriceCents:      7500,
				DurationMinutes: 60,
			},
		},
	}
}

// Seed loads the catalog idempotently: the professional is matched by email
// and services by name.
func Seed(ctx context.Context, s Seeder, catalog SeedCatalog) ([]Service, error) {
	pro, err := s.UpsertProfessional(ctx, catalog.Professional)
	if err != nil {
		return nil, fmt.Errorf("schedule: seed professional: %w", err)
	}

	out := make([]Service, 0, len(catalog.Services))
	for _, svc := range catalog.Services {
		svc.ProfessionalID = pro.ID
		created, err := s.CreateService(ctx, svc)
		if err != nil {
			return nil, fmt.Errorf("schedule: seed service %q: %w", svc.Name, err)
		}
		out = append(out, *created)
	}
	return out, nil
}
