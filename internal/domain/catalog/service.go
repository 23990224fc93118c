package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	medicines MedicineRepository
	labTests  LabTestRepository
}

func NewService(medicines MedicineRepository, labTests LabTestRepository) *Service {
	return &Service{medicines: medicines, labTests: labTests}
}

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.medicines.Create(ctx, m)
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

func (s *Service) UpdateMedicine(ctx context.Context, m *Medicine) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.medicines.Update(ctx, m)
}

func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	return s.medicines.Delete(ctx, id)
}

func (s *Service) SearchMedicines(ctx context.Context, name string, limit, offset int) ([]*Medicine, int, error) {
	return s.medicines.Search(ctx, name, limit, offset)
}

func (s *Service) CreateLabTest(ctx context.Context, lt *LabTest) error {
	if lt.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.labTests.Create(ctx, lt)
}

func (s *Service) GetLabTest(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return s.labTests.GetByID(ctx, id)
}

func (s *Service) UpdateLabTest(ctx context.Context, lt *LabTest) error {
	if lt.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.labTests.Update(ctx, lt)
}

func (s *Service) DeleteLabTest(ctx context.Context, id uuid.UUID) error {
	return s.labTests.Delete(ctx, id)
}

func (s *Service) SearchLabTests(ctx context.Context, name string, limit, offset int) ([]*LabTest, int, error) {
	return s.labTests.Search(ctx, name, limit, offset)
}
