package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient not found")
	}
	return p, nil
}

func (m *mockPatientRepo) GetByPhone(_ context.Context, phone string) (*Patient, error) {
	for _, p := range m.patients {
		if p.Phone == phone {
			return p, nil
		}
	}
	return nil, fmt.Errorf("patient not found")
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return fmt.Errorf("patient not found")
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		items = append(items, p)
	}
	return items, len(items), nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor not found")
	}
	return d, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return fmt.Errorf("doctor not found")
	}
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.doctors, id)
	return nil
}

func (m *mockDoctorRepo) ListByClinic(_ context.Context, clinicID uuid.UUID, _, _ int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		if d.ClinicID == clinicID {
			items = append(items, d)
		}
	}
	return items, len(items), nil
}

func (m *mockDoctorRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		items = append(items, d)
	}
	return items, len(items), nil
}

func newTestService() *Service {
	return NewService(newMockPatientRepo(), newMockDoctorRepo())
}

func TestCreatePatientValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.CreatePatient(ctx, &Patient{Phone: "555-0100"}); err == nil {
		t.Error("expected error for missing full_name")
	}
	if err := svc.CreatePatient(ctx, &Patient{FullName: "Asha Rao"}); err == nil {
		t.Error("expected error for missing phone")
	}

	p := &Patient{FullName: "Asha Rao", Phone: "555-0100"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("valid patient should be created: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
}

func TestGetPatientByPhone(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := &Patient{FullName: "Asha Rao", Phone: "555-0100"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("creating patient: %v", err)
	}

	got, err := svc.GetPatientByPhone(ctx, "555-0100")
	if err != nil {
		t.Fatalf("getting patient by phone: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("got patient %s, want %s", got.ID, p.ID)
	}
}

func TestCreateDoctorValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	clinicID := uuid.New()

	if err := svc.CreateDoctor(ctx, &Doctor{FullName: "Dr. Mehta", Specialty: "cardiology"}); err == nil {
		t.Error("expected error for missing clinic_id")
	}
	if err := svc.CreateDoctor(ctx, &Doctor{ClinicID: clinicID, Specialty: "cardiology"}); err == nil {
		t.Error("expected error for missing full_name")
	}
	if err := svc.CreateDoctor(ctx, &Doctor{ClinicID: clinicID, FullName: "Dr. Mehta"}); err == nil {
		t.Error("expected error for missing specialty")
	}

	bad := -5
	if err := svc.CreateDoctor(ctx, &Doctor{ClinicID: clinicID, FullName: "Dr. Mehta", Specialty: "cardiology", AverageConsultMinutes: &bad}); err == nil {
		t.Error("expected error for negative average_consult_minutes")
	}

	d := &Doctor{ClinicID: clinicID, FullName: "Dr. Mehta", Specialty: "cardiology", Active: true}
	if err := svc.CreateDoctor(ctx, d); err != nil {
		t.Fatalf("valid doctor should be created: %v", err)
	}
}

func TestListDoctorsByClinic(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	clinicA := uuid.New()
	clinicB := uuid.New()

	for i, cid := range []uuid.UUID{clinicA, clinicA, clinicB} {
		d := &Doctor{ClinicID: cid, FullName: fmt.Sprintf("Dr. %d", i), Specialty: "general", Active: true}
		if err := svc.CreateDoctor(ctx, d); err != nil {
			t.Fatalf("creating doctor: %v", err)
		}
	}

	items, total, err := svc.ListDoctorsByClinic(ctx, clinicA, 20, 0)
	if err != nil {
		t.Fatalf("listing doctors: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("got %d doctors for clinic A, want 2", total)
	}
}
