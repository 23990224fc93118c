package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	clinics Repository
}

func NewService(clinics Repository) *Service {
	return &Service{clinics: clinics}
}

func (s *Service) Create(ctx context.Context, cl *Clinic) error {
	if cl.Name == "" {
		return fmt.Errorf("name is required")
	}
	if cl.DefaultConsultMinutes != nil && *cl.DefaultConsultMinutes <= 0 {
		return fmt.Errorf("default_consult_minutes must be positive")
	}
	return s.clinics.Create(ctx, cl)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.clinics.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, cl *Clinic) error {
	if cl.Name == "" {
		return fmt.Errorf("name is required")
	}
	if cl.DefaultConsultMinutes != nil && *cl.DefaultConsultMinutes <= 0 {
		return fmt.Errorf("default_consult_minutes must be positive")
	}
	return s.clinics.Update(ctx, cl)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.clinics.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return s.clinics.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Clinic, int, error) {
	return s.clinics.Search(ctx, params, limit, offset)
}
